package justtcg

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/date"
	"github.com/etnz/cardvault/fetch"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardJSON = `{"id":"disney-lorcana-the-first-chapter-elsa-spirit-of-winter-legendary","name":"Elsa - Spirit of Winter",
"game":"Disney Lorcana","set":"the-first-chapter-disney-lorcana","set_name":"The First Chapter","number":"42/204","rarity":"Legendary",
"variants":[
 {"id":"v-nm","condition":"Near Mint","printing":"Normal","language":"English","price":24.5,"lastUpdated":1746403200,"priceChange7d":-2.1,
  "priceHistory":[{"p":26,"t":1746057600},{"p":25,"t":1746230400},{"p":24.5,"t":1746403200}]},
 {"id":"v-nm-foil","condition":"Near Mint","printing":"Foil","language":"English","price":80},
 {"id":"v-lp","condition":"Lightly Played","printing":"Normal","language":"English","price":20}
]}`

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/games", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"disney-lorcana","name":"Disney Lorcana","cards_count":2000}],"meta":{}}`))
	})
	mux.HandleFunc("GET /v1/sets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "disney-lorcana", r.URL.Query().Get("game"))
		w.Write([]byte(`{"data":[{"id":"the-first-chapter-disney-lorcana","name":"The First Chapter","game_id":"disney-lorcana"}]}`))
	})
	mux.HandleFunc("GET /v1/cards", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[` + cardJSON + `],"meta":{"total":1}}`))
	})
	mux.HandleFunc("POST /v1/cards", func(w http.ResponseWriter, r *http.Request) {
		var items []LookupItem
		require.NoError(t, json.NewDecoder(r.Body).Decode(&items))
		if len(items) == 1 && items[0].CardID == "unknown" {
			w.Write([]byte(`{"data":[]}`))
			return
		}
		w.Write([]byte(`{"data":[` + cardJSON + `]}`))
	})
	auth := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(KeyHeader) != "k" {
			http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	})
	srv := httptest.NewServer(auth)
	t.Cleanup(srv.Close)
	c, err := NewAt(srv.URL+"/v1", "k", fetch.WithRetry(1))
	require.NoError(t, err)
	return c
}

func TestNew_requiresKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestClient(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	games, err := c.Games(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, 2000, games[0].CardsCount)

	sets, err := c.Sets(ctx, "disney-lorcana")
	require.NoError(t, err)
	require.Len(t, sets, 1)

	cards, err := c.Cards(ctx, CardQuery{Game: "disney-lorcana", Query: "elsa"})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Len(t, cards[0].Variants, 3)

	v, ok := cards[0].Variant(cardvault.NearMint, cardvault.Foil)
	require.True(t, ok)
	assert.Equal(t, "v-nm-foil", v.ID)

	p := cards[0].Printing(cards[0].Variants[0])
	assert.Equal(t, cardvault.PrintingKey("lorcana/the-first-chapter-disney-lorcana/42/normal/en"), p.Key())
	assert.Equal(t, "legendary", p.Rarity)

	h := cards[0].Variants[0].History()
	assert.Equal(t, 3, h.Len())
	last, price := h.Latest()
	assert.Equal(t, date.MustParse("2025-05-05"), last)
	assert.True(t, price.Equal(decimal.NewFromFloat(24.5)))
	assert.Equal(t, date.MustParse("2025-05-05"), cards[0].Variants[0].Updated())

	wrong, err := NewAt(c.http.BaseURL, "bad", fetch.WithRetry(1))
	require.NoError(t, err)
	_, err = wrong.Games(ctx)
	var se *fetch.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
}

func TestSource(t *testing.T) {
	src := Source{Client: newTestClient(t)}
	ctx := context.Background()
	p := cardvault.Printing{
		Game: cardvault.Lorcana, Set: "1", Number: "42",
		Refs: map[string]string{cardvault.RefJustTCG: "disney-lorcana-the-first-chapter-elsa-spirit-of-winter-legendary"},
	}

	price, err := src.Quote(ctx, p)
	require.NoError(t, err)
	assert.True(t, price.Equal(cardvault.M(24.5, "USD")), "got %v", price)

	lp := Source{Client: src.Client, Condition: cardvault.LightlyPlayed}
	price, err = lp.Quote(ctx, p)
	require.NoError(t, err)
	assert.True(t, price.Equal(cardvault.M(20, "USD")), "got %v", price)

	h, err := src.History(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Len())

	_, err = src.Quote(ctx, cardvault.Printing{Game: cardvault.Lorcana, Set: "1", Number: "1"})
	assert.True(t, errors.Is(err, cardvault.ErrNoQuote))
	p.Refs[cardvault.RefJustTCG] = "unknown"
	_, err = src.Quote(ctx, p)
	assert.True(t, errors.Is(err, cardvault.ErrNoQuote))
}
