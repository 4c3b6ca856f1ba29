package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var elsa = cardvault.Printing{Game: cardvault.Lorcana, Set: "1", Number: "42", Name: "Elsa - Spirit of Winter"}

func testCollection(t *testing.T) Collection {
	t.Helper()
	l := cardvault.NewLedger("binder")
	d := date.MustParse("2025-01-01")
	_, err := l.Apply(
		cardvault.NewDeclare(d, elsa),
		cardvault.NewAcquire(d, elsa.Key(), cardvault.NearMint, 2, cardvault.M(10, "USD")),
		cardvault.NewUpdatePrice(date.MustParse("2025-01-02"), elsa.Key(), cardvault.M(14, "USD")),
	)
	require.NoError(t, err)
	return func(context.Context) (*cardvault.Ledger, error) { return l, nil }
}

func call(t *testing.T, lib Library, name string, args map[string]any) map[string]any {
	t.Helper()
	resp := lib(context.Background(), &genai.FunctionCall{ID: "1", Name: name, Args: args})
	require.NotNil(t, resp)
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, name, resp.Name)
	return resp.Response
}

func TestCuratorFunctions(t *testing.T) {
	lib := NewLibrary(CuratorFunctions(testCollection(t), "USD"))

	got := call(t, lib, "Holdings", map[string]any{"date": "2025-01-02"})
	assert.Contains(t, got["output"], "2 copies worth $28.00")

	got = call(t, lib, "Holdings", map[string]any{"date": "2025-01-02", "by_name": true})
	assert.Contains(t, got["output"], "| Card | Printings | Qty | Value |")

	got = call(t, lib, "Printings", map[string]any{"date": "2025-01-02"})
	assert.Contains(t, got["output"], "lorcana/1/42/normal/en")

	got = call(t, lib, "History", map[string]any{"key": "lorcana/1/42/normal/en"})
	assert.Contains(t, got["output"], "$14.00")

	got = call(t, lib, "History", map[string]any{"key": "lorcana/1/7/normal/en"})
	assert.Contains(t, got["error"], "not in the collection")

	got = call(t, lib, "Listings", nil)
	assert.Contains(t, got["output"], "No listing.")

	got = call(t, lib, "Holdings", map[string]any{"date": "someday"})
	assert.Contains(t, got["error"], "must be a valid date")

	got = call(t, lib, "Unknown", nil)
	assert.Equal(t, "unknown function Unknown", got["error"])
}

func TestCuratorFunctions_loadError(t *testing.T) {
	fail := func(context.Context) (*cardvault.Ledger, error) { return nil, errors.New("boom") }
	got := call(t, NewLibrary(CuratorFunctions(fail, "USD")), "Printings", nil)
	assert.Equal(t, "could not load collection: boom", got["error"])
}

func TestExperts(t *testing.T) {
	appraiser := NewAppraiser()
	curator := NewCurator(testCollection(t), "USD")
	f := NewFacilitator(appraiser, curator)

	decls := f.Config.Tools[0].FunctionDeclarations
	require.Len(t, decls, 2)
	assert.Equal(t, "Appraiser", decls[0].Name)
	assert.Equal(t, []string{"question"}, decls[1].Parameters.Required)

	assert.NotNil(t, appraiser.Config.Tools[0].GoogleSearch)
	assert.Len(t, curator.Config.Tools[0].FunctionDeclarations, 4)

	resp := curator.Call(context.Background(), "2", map[string]any{"question": 42})
	assert.Contains(t, resp.Response["error"], "invalid question type int")
}
