// Package cardtrader is a client of the CardTrader marketplace API (v2).
//
// CardTrader catalogs cards as blueprints grouped in expansions, and sells
// products: copies of a blueprint in a condition, at a price in cents. Calls
// are authenticated by a bearer token.
package cardtrader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/fetch"
	"github.com/shopspring/decimal"
)

// BaseURL is the CardTrader API root.
const BaseURL = "https://api.cardtrader.com/api/v2"

// ErrNoToken is returned by New without token.
var ErrNoToken = errors.New("CardTrader token is not set. Use -cardtrader-token flag or CARDTRADER_TOKEN environment variable")

// Client calls the CardTrader API.
type Client struct {
	http *fetch.Client
}

// New returns a client authenticated by token.
func New(token string, opts ...fetch.Option) (*Client, error) {
	return NewAt(BaseURL, token, opts...)
}

// NewAt returns a client for an API root. An empty token is allowed when base
// is a proxy that injects it.
func NewAt(base, token string, opts ...fetch.Option) (*Client, error) {
	if token == "" && base == BaseURL {
		return nil, ErrNoToken
	}
	if token != "" {
		opts = append([]fetch.Option{fetch.WithBearer(token)}, opts...)
	}
	return &Client{http: fetch.New(base, opts...)}, nil
}

// Info describes the authenticated app.
type Info struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Game is a game sold on CardTrader.
type Game struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Expansion is a set.
type Expansion struct {
	ID     int    `json:"id"`
	GameID int    `json:"game_id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
}

// Blueprint is the catalog entry of a card, not a copy for sale.
type Blueprint struct {
	ID              int            `json:"id"`
	Name            string         `json:"name"`
	Version         string         `json:"version"`
	GameID          int            `json:"game_id"`
	CategoryID      int            `json:"category_id"`
	ExpansionID     int            `json:"expansion_id"`
	ImageURL        string         `json:"image_url"`
	FixedProperties map[string]any `json:"fixed_properties"`

	// Expansion is filled by [Client.Blueprints].
	Expansion Expansion `json:"-"`
}

// CollectorNumber returns the collector number in the fixed properties.
func (b Blueprint) CollectorNumber() string {
	v, ok := b.FixedProperties["collector_number"]
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

// Printing returns the printing of the blueprint for a game, in normal finish.
func (b Blueprint) Printing(game cardvault.Game) cardvault.Printing {
	name := b.Name
	if b.Version != "" {
		name += " - " + b.Version
	}
	return cardvault.Printing{
		Game:     game,
		Set:      b.Expansion.Code,
		Number:   b.CollectorNumber(),
		Name:     name,
		Finish:   cardvault.Normal,
		Language: "en",
		SetName:  b.Expansion.Name,
		Image:    b.ImageURL,
		Refs:     map[string]string{cardvault.RefCardTrader: strconv.Itoa(b.ID)},
	}
}

// Price is an amount in cents.
type Price struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency"`
}

// Money converts the price.
func (p Price) Money() cardvault.Money { return cardvault.Cents(p.Cents, p.Currency) }

// Product is a copy of a blueprint for sale.
type Product struct {
	ID          int            `json:"id"`
	BlueprintID int            `json:"blueprint_id"`
	NameEn      string         `json:"name_en"`
	Quantity    int            `json:"quantity"`
	Price       Price          `json:"price"`
	Description string         `json:"description"`
	Properties  map[string]any `json:"properties_hash"`
	Graded      bool           `json:"graded"`
	OnVacation  bool           `json:"on_vacation"`
}

// Condition returns the condition of the product.
func (p Product) Condition() cardvault.Condition {
	s, _ := p.Properties["condition"].(string)
	return ParseCondition(s)
}

// Foil reports whether any game specific foil property is set.
func (p Product) Foil() bool {
	for k, v := range p.Properties {
		if k == "foil" || strings.HasSuffix(k, "_foil") {
			if b, ok := v.(bool); ok && b {
				return true
			}
		}
	}
	return false
}

// Language returns the game specific language property, "en" if none.
func (p Product) Language() string {
	for k, v := range p.Properties {
		if strings.HasSuffix(k, "_language") {
			if s, ok := v.(string); ok && s != "" {
				return strings.ToLower(s)
			}
		}
	}
	return "en"
}

var conditionNames = map[cardvault.Condition]string{
	cardvault.NearMint:         "Near Mint",
	cardvault.LightlyPlayed:    "Slightly Played",
	cardvault.ModeratelyPlayed: "Moderately Played",
	cardvault.HeavilyPlayed:    "Played",
	cardvault.Damaged:          "Poor",
}

// ConditionName returns the CardTrader name of a condition.
func ConditionName(c cardvault.Condition) string { return conditionNames[c] }

// ParseCondition reads CardTrader condition names. Unknown names are near mint
// ("Mint" included).
func ParseCondition(s string) cardvault.Condition {
	for c, name := range conditionNames {
		if strings.EqualFold(name, s) {
			return c
		}
	}
	return cardvault.NearMint
}

// Info returns the authenticated app.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var info Info
	if err := c.http.GetJSON(ctx, "info", nil, &info); err != nil {
		return Info{}, fmt.Errorf("cardtrader info: %w", err)
	}
	return info, nil
}

// Games lists the games.
func (c *Client) Games(ctx context.Context) ([]Game, error) {
	var games []Game
	if err := c.http.GetJSONAt(ctx, "games", nil, "$.array", &games); err != nil {
		return nil, fmt.Errorf("cardtrader games: %w", err)
	}
	return games, nil
}

// Expansions lists all expansions of all games.
func (c *Client) Expansions(ctx context.Context) ([]Expansion, error) {
	var exps []Expansion
	if err := c.http.GetJSON(ctx, "expansions", nil, &exps); err != nil {
		return nil, fmt.Errorf("cardtrader expansions: %w", err)
	}
	return exps, nil
}

// Blueprints lists the blueprints of an expansion.
func (c *Client) Blueprints(ctx context.Context, expansionID int) ([]Blueprint, error) {
	exps, err := c.Expansions(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(exps, func(e Expansion) bool { return e.ID == expansionID })
	if i < 0 {
		return nil, fmt.Errorf("cardtrader expansion %d not found", expansionID)
	}
	var bps []Blueprint
	q := url.Values{"expansion_id": {strconv.Itoa(expansionID)}}
	if err := c.http.GetJSON(ctx, "blueprints/export", q, &bps); err != nil {
		return nil, fmt.Errorf("cardtrader blueprints of %d: %w", expansionID, err)
	}
	for j := range bps {
		bps[j].Expansion = exps[i]
	}
	return bps, nil
}

// Marketplace lists the products for sale of a blueprint, cheapest first.
func (c *Client) Marketplace(ctx context.Context, blueprintID int) ([]Product, error) {
	var products []Product
	q := url.Values{"blueprint_id": {strconv.Itoa(blueprintID)}}
	// the response is keyed by blueprint id.
	path := fmt.Sprintf(`$["%d"]`, blueprintID)
	if err := c.http.GetJSONAt(ctx, "marketplace/products", q, path, &products); err != nil {
		return nil, fmt.Errorf("cardtrader marketplace of %d: %w", blueprintID, err)
	}
	slices.SortStableFunc(products, func(a, b Product) int { return int(a.Price.Cents - b.Price.Cents) })
	return products, nil
}

// NewProduct is a listing to create.
type NewProduct struct {
	BlueprintID int             `json:"blueprint_id"`
	Price       decimal.Decimal `json:"price"` // in the seller currency
	Quantity    int             `json:"quantity"`
	Description string          `json:"description,omitempty"`
	Properties  map[string]any  `json:"properties,omitempty"`
}

// ForSale prepares a listing of copies of a printing.
func ForSale(blueprintID int, cond cardvault.Condition, finish cardvault.Finish, q cardvault.Quantity, unit cardvault.Money) NewProduct {
	props := map[string]any{"condition": ConditionName(cond)}
	if finish != "" && finish != cardvault.Normal {
		props["foil"] = true
	}
	return NewProduct{BlueprintID: blueprintID, Price: unit.Decimal(), Quantity: int(q), Properties: props}
}

// CreateProduct puts a product for sale and returns it.
func (c *Client) CreateProduct(ctx context.Context, p NewProduct) (Product, error) {
	var resp struct {
		Result   string  `json:"result"`
		Resource Product `json:"resource"`
	}
	if err := c.http.PostJSON(ctx, "products", p, &resp); err != nil {
		return Product{}, fmt.Errorf("cardtrader create product: %w", err)
	}
	return resp.Resource, nil
}

// Products lists the products of the authenticated seller.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.http.GetJSON(ctx, "products/export", nil, &products); err != nil {
		return nil, fmt.Errorf("cardtrader products: %w", err)
	}
	return products, nil
}

// DeleteProduct removes a product from sale.
func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	if err := c.http.Delete(ctx, "products/"+strconv.Itoa(id)); err != nil {
		return fmt.Errorf("cardtrader delete product %d: %w", id, err)
	}
	return nil
}

// Publish puts the copies of a list transaction for sale when the printing
// has a CardTrader blueprint. The returned transaction carries the product id
// as listing id. Other printings are returned unchanged.
func (c *Client) Publish(ctx context.Context, p cardvault.Printing, tx cardvault.List) (cardvault.List, error) {
	ref, ok := p.Ref(cardvault.RefCardTrader)
	if !ok {
		return tx, nil
	}
	blueprint, err := strconv.Atoi(ref)
	if err != nil {
		return tx, fmt.Errorf("invalid CardTrader blueprint %q", ref)
	}
	prod, err := c.CreateProduct(ctx, ForSale(blueprint, tx.Condition, tx.Key.Finish(), tx.Quantity, tx.Price))
	if err != nil {
		return tx, err
	}
	tx.Listing = strconv.Itoa(prod.ID)
	tx.Marketplace = cardvault.RefCardTrader
	return tx, nil
}

// Withdraw removes the product of a CardTrader listing. Listings of other
// marketplaces are ignored.
func (c *Client) Withdraw(ctx context.Context, lst cardvault.Listing) error {
	if lst.Marketplace != cardvault.RefCardTrader {
		return nil
	}
	id, err := strconv.Atoi(lst.ID)
	if err != nil {
		return fmt.Errorf("invalid CardTrader product %q", lst.ID)
	}
	return c.DeleteProduct(ctx, id)
}

// Source quotes printings referenced by a CardTrader blueprint id with the
// cheapest product for sale in the condition and finish.
type Source struct {
	Client    *Client
	Condition cardvault.Condition // near mint if empty
}

// Name implements cardvault.PriceSource.
func (Source) Name() string { return cardvault.RefCardTrader }

// Quote implements cardvault.PriceSource.
func (s Source) Quote(ctx context.Context, p cardvault.Printing) (cardvault.Money, error) {
	ref, ok := p.Ref(cardvault.RefCardTrader)
	if !ok {
		return cardvault.Money{}, cardvault.ErrNoQuote
	}
	id, err := strconv.Atoi(ref)
	if err != nil {
		return cardvault.Money{}, fmt.Errorf("invalid blueprint id %q: %w", ref, err)
	}
	cond := s.Condition
	if cond == "" {
		cond = cardvault.NearMint
	}
	foil := p.Finish != "" && p.Finish != cardvault.Normal
	products, err := s.Client.Marketplace(ctx, id)
	if err != nil {
		return cardvault.Money{}, err
	}
	for _, prod := range products {
		if prod.Condition() == cond && prod.Foil() == foil && !prod.Graded && prod.Quantity > 0 {
			return prod.Price.Money(), nil
		}
	}
	return cardvault.Money{}, cardvault.ErrNoQuote
}
