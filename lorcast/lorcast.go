// Package lorcast is a client of the Lorcast catalog of Disney Lorcana cards.
//
// The API needs no key. Prices are in USD, refreshed daily.
package lorcast

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/fetch"
	"github.com/shopspring/decimal"
)

// BaseURL is the Lorcast API root.
const BaseURL = "https://api.lorcast.com/v0"

// Client calls the Lorcast API.
type Client struct {
	http *fetch.Client
}

// New returns a client, options are passed to [fetch.New].
func New(opts ...fetch.Option) *Client {
	return NewAt(BaseURL, opts...)
}

// NewAt returns a client for an API root, e.g. a local proxy or a test server.
func NewAt(base string, opts ...fetch.Option) *Client {
	return &Client{http: fetch.New(base, opts...)}
}

// Set is a Lorcana set.
type Set struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	ReleasedAt string `json:"released_at"`
}

// Prices are market prices in USD, as decimal strings or null.
type Prices struct {
	USD     *string `json:"usd"`
	USDFoil *string `json:"usd_foil"`
}

// Card is a Lorcast card.
type Card struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Version         string `json:"version"`
	CollectorNumber string `json:"collector_number"`
	Rarity          string `json:"rarity"`
	Lang            string `json:"lang"`
	Ink             string `json:"ink"`
	Cost            int    `json:"cost"`
	TCGPlayerID     int    `json:"tcgplayer_id"`
	ImageURIs       struct {
		Digital struct {
			Small  string `json:"small"`
			Normal string `json:"normal"`
			Large  string `json:"large"`
		} `json:"digital"`
	} `json:"image_uris"`
	Set    Set    `json:"set"`
	Prices Prices `json:"prices"`
}

// FullName is the card name and its version, e.g. "Elsa - Spirit of Winter".
func (c Card) FullName() string {
	if c.Version == "" {
		return c.Name
	}
	return c.Name + " - " + c.Version
}

// Printing returns the printing of this card in a finish.
func (c Card) Printing(finish cardvault.Finish) cardvault.Printing {
	lang := c.Lang
	if lang == "" {
		lang = "en"
	}
	return cardvault.Printing{
		Game:     cardvault.Lorcana,
		Set:      c.Set.Code,
		Number:   c.CollectorNumber,
		Name:     c.FullName(),
		Finish:   finish,
		Language: lang,
		SetName:  c.Set.Name,
		Rarity:   strings.ToLower(c.Rarity),
		Image:    c.ImageURIs.Digital.Normal,
		Refs:     map[string]string{cardvault.RefLorcast: c.ID},
	}
}

// Price returns the USD price of the card in a finish. Foil prices apply to
// every non normal finish.
func (c Card) Price(finish cardvault.Finish) (cardvault.Money, bool) {
	p := c.Prices.USD
	if finish != "" && finish != cardvault.Normal {
		p = c.Prices.USDFoil
	}
	if p == nil || *p == "" {
		return cardvault.Money{}, false
	}
	v, err := decimal.NewFromString(*p)
	if err != nil {
		return cardvault.Money{}, false
	}
	return cardvault.M(v, "USD"), true
}

// Search runs a full text search, see https://lorcast.com/docs/api for the syntax.
func (c *Client) Search(ctx context.Context, q string) ([]Card, error) {
	var cards []Card
	if err := c.http.GetJSONAt(ctx, "cards/search", url.Values{"q": {q}}, "$.results", &cards); err != nil {
		return nil, fmt.Errorf("lorcast search %q: %w", q, err)
	}
	return cards, nil
}

// Sets lists all sets.
func (c *Client) Sets(ctx context.Context) ([]Set, error) {
	var sets []Set
	if err := c.http.GetJSONAt(ctx, "sets", nil, "$.results", &sets); err != nil {
		return nil, fmt.Errorf("lorcast sets: %w", err)
	}
	return sets, nil
}

// SetCards lists the cards of a set, by code or id.
func (c *Client) SetCards(ctx context.Context, set string) ([]Card, error) {
	var cards []Card
	if err := c.http.GetJSON(ctx, "sets/"+url.PathEscape(set)+"/cards", nil, &cards); err != nil {
		return nil, fmt.Errorf("lorcast cards of set %q: %w", set, err)
	}
	return cards, nil
}

// Card returns a card by set code and collector number.
func (c *Client) Card(ctx context.Context, set, number string) (Card, error) {
	var card Card
	path := "cards/" + url.PathEscape(set) + "/" + url.PathEscape(number)
	if err := c.http.GetJSON(ctx, path, nil, &card); err != nil {
		return Card{}, fmt.Errorf("lorcast card %s/%s: %w", set, number, err)
	}
	return card, nil
}

// Source quotes Lorcana printings from Lorcast.
type Source struct {
	Client *Client
}

// Name implements cardvault.PriceSource.
func (Source) Name() string { return cardvault.RefLorcast }

// Quote implements cardvault.PriceSource.
func (s Source) Quote(ctx context.Context, p cardvault.Printing) (cardvault.Money, error) {
	if p.Game != cardvault.Lorcana {
		return cardvault.Money{}, cardvault.ErrNoQuote
	}
	card, err := s.Client.Card(ctx, p.Set, p.Number)
	if fetch.IsNotFound(err) {
		return cardvault.Money{}, cardvault.ErrNoQuote
	}
	if err != nil {
		return cardvault.Money{}, err
	}
	price, ok := card.Price(p.Finish)
	if !ok {
		return cardvault.Money{}, cardvault.ErrNoQuote
	}
	return price, nil
}
