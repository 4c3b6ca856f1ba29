package cardvault

import (
	"testing"

	"github.com/etnz/cardvault/date"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

var (
	elsa = Printing{
		Game: Lorcana, Set: "1", Number: "42", Name: "Elsa - Spirit of Winter",
		Finish: Normal, Language: "en", Rarity: "legendary",
		Refs: map[string]string{RefLorcast: "crd_elsa"},
	}
	elsaFoil = Printing{
		Game: Lorcana, Set: "1", Number: "42", Name: "Elsa - Spirit of Winter",
		Finish: Foil, Language: "en",
	}
	mickey = Printing{Game: Lorcana, Set: "1", Number: "12", Name: "Mickey Mouse - Brave Little Tailor", Finish: Normal, Language: "en"}
)

// day is a short hand for date.MustParse.
func day(s string) Date { return date.MustParse(s) }

// newTestLedger validates and appends txs, failing the test on the first invalid one.
func newTestLedger(t *testing.T, txs ...Transaction) *Ledger {
	t.Helper()
	l := NewLedger("test")
	for i, tx := range txs {
		fixed, err := l.Validate(tx)
		if err != nil {
			t.Fatalf("transaction #%d: Validate() unexpected error: %v", i, err)
		}
		l.AppendOrUpdate(fixed)
	}
	return l
}
