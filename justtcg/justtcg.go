// Package justtcg is a client of the JustTCG pricing API.
//
// JustTCG prices cards of many games by condition and printing. Every call
// needs an API key sent in the "x-api-key" header. Responses are wrapped in
// {"data": ..., "meta": ...} and unwrapped to their data.
package justtcg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/date"
	"github.com/etnz/cardvault/fetch"
	"github.com/shopspring/decimal"
)

// BaseURL is the JustTCG API root.
const BaseURL = "https://api.justtcg.com/v1"

// KeyHeader carries the API key.
const KeyHeader = "x-api-key"

// ErrNoKey is returned by New without key.
var ErrNoKey = errors.New("JustTCG API key is not set. Use -justtcg-api-key flag or JUSTTCG_API_KEY environment variable")

// Client calls the JustTCG API.
type Client struct {
	http *fetch.Client
}

// New returns a client authenticated by key.
func New(key string, opts ...fetch.Option) (*Client, error) {
	return NewAt(BaseURL, key, opts...)
}

// NewAt returns a client for an API root. An empty key is allowed when base
// is a proxy that injects it.
func NewAt(base, key string, opts ...fetch.Option) (*Client, error) {
	if key == "" && base == BaseURL {
		return nil, ErrNoKey
	}
	if key != "" {
		opts = append([]fetch.Option{fetch.WithHeader(KeyHeader, key)}, opts...)
	}
	return &Client{http: fetch.New(base, opts...)}, nil
}

// Game is a game priced by JustTCG.
type Game struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CardsCount int    `json:"cards_count"`
	SetsCount  int    `json:"sets_count"`
}

// Set is a set of a game.
type Set struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	GameID     string `json:"game_id"`
	CardsCount int    `json:"cards_count"`
}

// Point is a price observation, t is a unix time in seconds.
type Point struct {
	Price decimal.Decimal `json:"p"`
	Time  int64           `json:"t"`
}

// Variant is a card in a condition, printing and language, with its USD price.
type Variant struct {
	ID              string          `json:"id"`
	Condition       string          `json:"condition"`
	Printing        string          `json:"printing"`
	Language        string          `json:"language"`
	Price           decimal.Decimal `json:"price"`
	LastUpdated     int64           `json:"lastUpdated"`
	PriceChange24h  *float64        `json:"priceChange24hr"`
	PriceChange7d   *float64        `json:"priceChange7d"`
	PriceChange30d  *float64        `json:"priceChange30d"`
	PriceHistory    []Point         `json:"priceHistory"`
	TCGPlayerSKU    string          `json:"tcgplayerSkuId"`
	AvgPrice        decimal.Decimal `json:"avgPrice"`
	MinPrice7d      decimal.Decimal `json:"minPrice7d"`
	MaxPrice7d      decimal.Decimal `json:"maxPrice7d"`
}

// Updated returns the day of the last price update.
func (v Variant) Updated() date.Date {
	if v.LastUpdated == 0 {
		return date.Date{}
	}
	return date.FromTime(time.Unix(v.LastUpdated, 0).UTC())
}

// History returns the price history, one point per day, the last one wins.
func (v Variant) History() *date.History[decimal.Decimal] {
	h := new(date.History[decimal.Decimal])
	for _, p := range v.PriceHistory {
		h.Append(date.FromTime(time.Unix(p.Time, 0).UTC()), p.Price)
	}
	return h
}

// Finish maps the JustTCG printing to a finish.
func (v Variant) Finish() cardvault.Finish {
	f, err := cardvault.ParseFinish(v.Printing)
	if err != nil {
		return cardvault.Normal
	}
	return f
}

// Card is a card with its priced variants.
type Card struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Game        string    `json:"game"`
	Set         string    `json:"set"`
	SetName     string    `json:"set_name"`
	Number      string    `json:"number"`
	Rarity      string    `json:"rarity"`
	TCGPlayerID string    `json:"tcgplayerId"`
	Variants    []Variant `json:"variants"`
}

// Printing returns the printing of a variant of the card. The set is the
// JustTCG set id unless the card is known under another set code.
func (c Card) Printing(v Variant) cardvault.Printing {
	game, err := cardvault.ParseGame(c.Game)
	if err != nil {
		game = cardvault.Game(strings.ToLower(c.Game))
	}
	lang := strings.ToLower(v.Language)
	switch lang {
	case "", "english":
		lang = "en"
	case "japanese":
		lang = "ja"
	}
	return cardvault.Printing{
		Game:     game,
		Set:      c.Set,
		Number:   c.Number,
		Name:     c.Name,
		Finish:   v.Finish(),
		Language: lang,
		SetName:  c.SetName,
		Rarity:   strings.ToLower(c.Rarity),
		Refs:     map[string]string{cardvault.RefJustTCG: c.ID},
	}
}

// Variant returns the variant of the card in a condition and finish.
func (c Card) Variant(cond cardvault.Condition, finish cardvault.Finish) (Variant, bool) {
	if finish == "" {
		finish = cardvault.Normal
	}
	for _, v := range c.Variants {
		vc, err := cardvault.ParseCondition(v.Condition)
		if err != nil || vc != cond {
			continue
		}
		if v.Finish() == finish {
			return v, true
		}
	}
	return Variant{}, false
}

// Games lists the supported games.
func (c *Client) Games(ctx context.Context) ([]Game, error) {
	var games []Game
	if err := c.http.GetJSONAt(ctx, "games", nil, "$.data", &games); err != nil {
		return nil, fmt.Errorf("justtcg games: %w", err)
	}
	return games, nil
}

// Sets lists the sets of a game.
func (c *Client) Sets(ctx context.Context, game string) ([]Set, error) {
	var sets []Set
	if err := c.http.GetJSONAt(ctx, "sets", url.Values{"game": {game}}, "$.data", &sets); err != nil {
		return nil, fmt.Errorf("justtcg sets of %q: %w", game, err)
	}
	return sets, nil
}

// CardQuery filters Cards. Empty fields are not sent.
type CardQuery struct {
	CardID    string
	Game      string
	Set       string
	Query     string
	Printing  string
	Condition string
	Limit     int
	Offset    int
}

func (q CardQuery) values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("cardId", q.CardID)
	set("game", q.Game)
	set("set", q.Set)
	set("q", q.Query)
	set("printing", q.Printing)
	set("condition", q.Condition)
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprint(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", fmt.Sprint(q.Offset))
	}
	return v
}

// Cards searches cards.
func (c *Client) Cards(ctx context.Context, q CardQuery) ([]Card, error) {
	var cards []Card
	if err := c.http.GetJSONAt(ctx, "cards", q.values(), "$.data", &cards); err != nil {
		return nil, fmt.Errorf("justtcg cards: %w", err)
	}
	return cards, nil
}

// LookupItem identifies a card in a batch lookup.
type LookupItem struct {
	CardID    string `json:"cardId,omitempty"`
	VariantID string `json:"variantId,omitempty"`
	Printing  string `json:"printing,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// Lookup fetches cards in a single batch call.
func (c *Client) Lookup(ctx context.Context, items ...LookupItem) ([]Card, error) {
	if len(items) == 0 {
		return nil, nil
	}
	raw, err := c.http.Do(ctx, http.MethodPost, "cards", nil, items)
	if err != nil {
		return nil, fmt.Errorf("justtcg lookup: %w", err)
	}
	var cards []Card
	if err := fetch.Unwrap(raw, "$.data", &cards); err != nil {
		return nil, fmt.Errorf("justtcg lookup: %w", err)
	}
	return cards, nil
}

// conditionNames are the JustTCG names of conditions.
var conditionNames = map[cardvault.Condition]string{
	cardvault.NearMint:         "Near Mint",
	cardvault.LightlyPlayed:    "Lightly Played",
	cardvault.ModeratelyPlayed: "Moderately Played",
	cardvault.HeavilyPlayed:    "Heavily Played",
	cardvault.Damaged:          "Damaged",
}

// ConditionName returns the JustTCG name of a condition.
func ConditionName(c cardvault.Condition) string { return conditionNames[c] }

// Source quotes printings referenced by a JustTCG card id, in near mint.
type Source struct {
	Client    *Client
	Condition cardvault.Condition // near mint if empty
}

// Name implements cardvault.PriceSource.
func (Source) Name() string { return cardvault.RefJustTCG }

// Quote implements cardvault.PriceSource.
func (s Source) Quote(ctx context.Context, p cardvault.Printing) (cardvault.Money, error) {
	id, ok := p.Ref(cardvault.RefJustTCG)
	if !ok {
		return cardvault.Money{}, cardvault.ErrNoQuote
	}
	cond := s.Condition
	if cond == "" {
		cond = cardvault.NearMint
	}
	cards, err := s.Client.Lookup(ctx, LookupItem{CardID: id})
	if err != nil {
		return cardvault.Money{}, err
	}
	for _, card := range cards {
		if v, ok := card.Variant(cond, p.Finish); ok && v.Price.IsPositive() {
			return cardvault.M(v.Price, "USD"), nil
		}
	}
	return cardvault.Money{}, cardvault.ErrNoQuote
}

// History returns the price history of a printing in near mint.
func (s Source) History(ctx context.Context, p cardvault.Printing) (*date.History[decimal.Decimal], error) {
	id, ok := p.Ref(cardvault.RefJustTCG)
	if !ok {
		return nil, cardvault.ErrNoQuote
	}
	cond := s.Condition
	if cond == "" {
		cond = cardvault.NearMint
	}
	cards, err := s.Client.Cards(ctx, CardQuery{CardID: id})
	if err != nil {
		return nil, err
	}
	for _, card := range cards {
		if card.ID != id {
			continue
		}
		if v, ok := card.Variant(cond, p.Finish); ok {
			return v.History(), nil
		}
	}
	return nil, cardvault.ErrNoQuote
}
