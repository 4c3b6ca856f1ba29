package cardtrader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsJSON = `{"1042":[
 {"id":3,"blueprint_id":1042,"name_en":"Elsa","quantity":1,"price":{"cents":2100,"currency":"EUR"},"properties_hash":{"condition":"Near Mint","lorcana_foil":true}},
 {"id":2,"blueprint_id":1042,"name_en":"Elsa","quantity":2,"price":{"cents":1990,"currency":"EUR"},"properties_hash":{"condition":"Near Mint","lorcana_foil":false}},
 {"id":1,"blueprint_id":1042,"name_en":"Elsa","quantity":1,"price":{"cents":1500,"currency":"EUR"},"properties_hash":{"condition":"Slightly Played"}},
 {"id":4,"blueprint_id":1042,"name_en":"Elsa","quantity":1,"price":{"cents":900,"currency":"EUR"},"graded":true,"properties_hash":{"condition":"Near Mint"}}
]}`

type fakeMarket struct {
	created []NewProduct
	deleted []string
}

func newTestClient(t *testing.T) (*Client, *fakeMarket) {
	t.Helper()
	fake := &fakeMarket{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/info", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":7,"name":"cardvault"}`))
	})
	mux.HandleFunc("GET /api/v2/games", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"array":[{"id":18,"name":"Lorcana","display_name":"Disney Lorcana"}]}`))
	})
	mux.HandleFunc("GET /api/v2/expansions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":3301,"game_id":18,"code":"tfc","name":"The First Chapter"}]`))
	})
	mux.HandleFunc("GET /api/v2/blueprints/export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3301", r.URL.Query().Get("expansion_id"))
		w.Write([]byte(`[{"id":1042,"name":"Elsa","version":"Spirit of Winter","game_id":18,"expansion_id":3301,
"image_url":"https://img/elsa.jpg","fixed_properties":{"collector_number":"042"}}]`))
	})
	mux.HandleFunc("GET /api/v2/marketplace/products", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("blueprint_id") != "1042" {
			w.Write([]byte(`{"` + r.URL.Query().Get("blueprint_id") + `":[]}`))
			return
		}
		w.Write([]byte(productsJSON))
	})
	mux.HandleFunc("POST /api/v2/products", func(w http.ResponseWriter, r *http.Request) {
		var p NewProduct
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		fake.created = append(fake.created, p)
		w.Write([]byte(`{"result":"ok","resource":{"id":99,"blueprint_id":1042,"quantity":1,"price":{"cents":2500,"currency":"EUR"}}}`))
	})
	mux.HandleFunc("GET /api/v2/products/export", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":99,"blueprint_id":1042,"quantity":1,"price":{"cents":2500,"currency":"EUR"}}]`))
	})
	mux.HandleFunc("DELETE /api/v2/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		fake.deleted = append(fake.deleted, r.PathValue("id"))
		w.Write([]byte(`{"result":"ok"}`))
	})
	auth := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	})
	srv := httptest.NewServer(auth)
	t.Cleanup(srv.Close)
	c, err := NewAt(srv.URL+"/api/v2", "tok", fetch.WithRetry(1))
	require.NoError(t, err)
	return c, fake
}

func TestNew_requiresToken(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestClient_catalog(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	info, err := c.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cardvault", info.Name)

	games, err := c.Games(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, 18, games[0].ID)

	bps, err := c.Blueprints(ctx, 3301)
	require.NoError(t, err)
	require.Len(t, bps, 1)
	p := bps[0].Printing(cardvault.Lorcana)
	assert.Equal(t, cardvault.PrintingKey("lorcana/tfc/42/normal/en"), p.Key())
	assert.Equal(t, "Elsa - Spirit of Winter", p.Name)
	assert.Equal(t, "The First Chapter", p.SetName)
	assert.Equal(t, "1042", p.Refs[cardvault.RefCardTrader])

	_, err = c.Blueprints(ctx, 1)
	assert.Error(t, err)
}

func TestClient_Marketplace(t *testing.T) {
	c, _ := newTestClient(t)
	products, err := c.Marketplace(context.Background(), 1042)
	require.NoError(t, err)
	require.Len(t, products, 4)
	assert.Equal(t, 4, products[0].ID, "cheapest first")
	assert.Equal(t, 3, products[3].ID)
	assert.True(t, products[3].Foil())
	assert.False(t, products[1].Foil())
	assert.Equal(t, cardvault.LightlyPlayed, products[1].Condition())
	assert.Equal(t, "en", products[1].Language())
}

func TestClient_products(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	np := ForSale(1042, cardvault.LightlyPlayed, cardvault.Foil, 1, cardvault.M(25, "EUR"))
	prod, err := c.CreateProduct(ctx, np)
	require.NoError(t, err)
	assert.Equal(t, 99, prod.ID)
	assert.True(t, prod.Price.Money().Equal(cardvault.M(25, "EUR")))
	require.Len(t, fake.created, 1)
	assert.Equal(t, 1042, fake.created[0].BlueprintID)
	assert.Equal(t, "Slightly Played", fake.created[0].Properties["condition"])
	assert.Equal(t, true, fake.created[0].Properties["foil"])
	assert.True(t, fake.created[0].Price.Equal(cardvault.M(25, "EUR").Decimal()))

	products, err := c.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)

	require.NoError(t, c.DeleteProduct(ctx, 99))
	assert.Equal(t, []string{"99"}, fake.deleted)
}

func TestSource_Quote(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	elsa := cardvault.Printing{
		Game: cardvault.Lorcana, Set: "1", Number: "42",
		Refs: map[string]string{cardvault.RefCardTrader: "1042"},
	}

	testCases := []struct {
		name string
		src  Source
		p    cardvault.Printing
		want cardvault.Money
	}{
		{"graded copies are skipped", Source{Client: c}, elsa, cardvault.M(19.9, "EUR")},
		{"condition", Source{Client: c, Condition: cardvault.LightlyPlayed}, elsa, cardvault.M(15, "EUR")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.src.Quote(ctx, tc.p)
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %v, want %v", got, tc.want)
		})
	}

	foil := elsa
	foil.Finish = cardvault.Foil
	got, err := Source{Client: c}.Quote(ctx, foil)
	require.NoError(t, err)
	assert.True(t, got.Equal(cardvault.M(21, "EUR")), "got %v", got)

	_, err = Source{Client: c}.Quote(ctx, cardvault.Printing{Game: cardvault.Lorcana, Set: "1", Number: "1"})
	assert.ErrorIs(t, err, cardvault.ErrNoQuote)

	other := elsa
	other.Refs = map[string]string{cardvault.RefCardTrader: "7"}
	_, err = Source{Client: c}.Quote(ctx, other)
	assert.ErrorIs(t, err, cardvault.ErrNoQuote)
}

func TestClient_PublishWithdraw(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	elsa := cardvault.Printing{Game: cardvault.Lorcana, Set: "tfc", Number: "42", Refs: map[string]string{cardvault.RefCardTrader: "1042"}}
	local := cardvault.Printing{Game: cardvault.Lorcana, Set: "tfc", Number: "7"}
	day := cardvault.Today()

	tx := cardvault.NewList(day, "l-1", "local", elsa.Key(), cardvault.NearMint, 2, cardvault.M(25, "EUR"))
	got, err := c.Publish(ctx, elsa, tx)
	require.NoError(t, err)
	assert.Equal(t, "99", got.Listing)
	assert.Equal(t, cardvault.RefCardTrader, got.Marketplace)
	require.Len(t, fake.created, 1)
	assert.Equal(t, 2, fake.created[0].Quantity)

	tx = cardvault.NewList(day, "l-2", "local", local.Key(), cardvault.NearMint, 1, cardvault.M(1, "EUR"))
	got, err = c.Publish(ctx, local, tx)
	require.NoError(t, err)
	assert.Equal(t, "l-2", got.Listing)
	assert.Len(t, fake.created, 1)

	require.NoError(t, c.Withdraw(ctx, cardvault.Listing{ID: "l-2", Marketplace: "local"}))
	assert.Empty(t, fake.deleted)
	require.NoError(t, c.Withdraw(ctx, cardvault.Listing{ID: "99", Marketplace: cardvault.RefCardTrader}))
	assert.Equal(t, []string{"99"}, fake.deleted)
	assert.Error(t, c.Withdraw(ctx, cardvault.Listing{ID: "abc", Marketplace: cardvault.RefCardTrader}))
}
