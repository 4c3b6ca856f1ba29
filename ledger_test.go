package cardvault

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLedger_AppendOrUpdate(t *testing.T) {
	l := newTestLedger(t,
		NewDeclare(day("2025-03-01"), elsa),
		NewDeclare(day("2025-03-01"), mickey),
		NewUpdatePrice(day("2025-03-02"), elsa.Key(), USD(10)),
		NewUpdatePrice(day("2025-03-02"), mickey.Key(), USD(2)),
		NewUpdatePrice(day("2025-03-02"), elsa.Key(), USD(11)),
		NewUpdatePrice(day("2025-03-02"), elsa.Key(), EUR(9)),
	)
	updates := 0
	for _, tx := range l.Transactions(ByCommand(CmdUpdatePrice)) {
		updates++
		up := tx.(UpdatePrice)
		if up.Currency == "USD" {
			if len(up.Prices) != 2 {
				t.Errorf("merged update has %d prices, want 2", len(up.Prices))
			}
			if got := up.Prices[elsa.Key()]; !got.Equal(decimal.NewFromInt(11)) {
				t.Errorf("merged elsa price = %v, want 11", got)
			}
		}
	}
	if updates != 2 {
		t.Errorf("got %d update-price transactions, want 2 (one per currency)", updates)
	}
}

func TestLedger_Declare_merges(t *testing.T) {
	update := Printing{Game: Lorcana, Set: "1", Number: "042", Image: "https://img/elsa.png", Refs: map[string]string{RefJustTCG: "jt-1"}}
	l := newTestLedger(t,
		NewDeclare(day("2025-03-01"), elsa),
		NewDeclare(day("2025-03-05"), update),
	)
	p, ok := l.Printing(elsa.Key())
	if !ok {
		t.Fatalf("Printing(%q) not found", elsa.Key())
	}
	if p.Name != elsa.Name || p.Image != "https://img/elsa.png" {
		t.Errorf("merged printing = %+v", p)
	}
	if p.Refs[RefLorcast] != "crd_elsa" || p.Refs[RefJustTCG] != "jt-1" {
		t.Errorf("merged refs = %v", p.Refs)
	}
	n := 0
	for range l.Printings() {
		n++
	}
	if n != 1 {
		t.Errorf("Printings() yields %d printings, want 1", n)
	}
}

func TestLedger_Validate(t *testing.T) {
	k := elsa.Key()
	l := newTestLedger(t,
		NewDeclare(day("2025-03-01"), elsa),
		NewAcquire(day("2025-03-01"), k, NearMint, 3, USD(5)),
	)

	testCases := []struct {
		name    string
		tx      Transaction
		wantErr bool
		check   func(t *testing.T, tx Transaction)
	}{
		{
			name: "dispose all",
			tx:   NewDispose(day("2025-03-02"), k, NearMint, 0, Money{}),
			check: func(t *testing.T, tx Transaction) {
				if q := tx.(Dispose).Quantity; q != 3 {
					t.Errorf("quantity = %d, want 3", q)
				}
			},
		},
		{
			name:    "dispose too many",
			tx:      NewDispose(day("2025-03-02"), k, NearMint, 4, Money{}),
			wantErr: true,
		},
		{
			name:    "dispose before acquire",
			tx:      NewDispose(day("2025-02-28"), k, NearMint, 1, Money{}),
			wantErr: true,
		},
		{
			name: "default condition and date",
			tx:   NewAcquire(Date{}, k, "", 1, Money{}),
			check: func(t *testing.T, tx Transaction) {
				a := tx.(Acquire)
				if a.Condition != NearMint {
					t.Errorf("condition = %q, want NM", a.Condition)
				}
				if a.Date != Today() {
					t.Errorf("date = %v, want today", a.Date)
				}
			},
		},
		{
			name: "default currency",
			tx:   NewAcquire(day("2025-03-02"), k, NearMint, 1, M(3, "")),
			check: func(t *testing.T, tx Transaction) {
				if c := tx.(Acquire).Cost.Currency(); c != DefaultCurrency {
					t.Errorf("currency = %q, want %q", c, DefaultCurrency)
				}
			},
		},
		{
			name:    "cost in another currency",
			tx:      NewAcquire(day("2025-03-02"), k, NearMint, 1, EUR(3)),
			wantErr: true,
		},
		{
			name:    "undeclared printing",
			tx:      NewAcquire(day("2025-03-02"), mickey.Key(), NearMint, 1, Money{}),
			wantErr: true,
		},
		{
			name:    "unknown condition",
			tx:      NewAcquire(day("2025-03-02"), k, "shiny", 1, Money{}),
			wantErr: true,
		},
		{
			name:    "delist unknown listing",
			tx:      NewDelist(day("2025-03-02"), "nope"),
			wantErr: true,
		},
		{
			name:    "declare without set",
			tx:      NewDeclare(day("2025-03-02"), Printing{Game: Lorcana, Number: "1"}),
			wantErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := l.Validate(tc.tx)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.check != nil {
				tc.check(t, got)
			}
		})
	}
}

func TestLedger_Validate_insufficient(t *testing.T) {
	k := elsa.Key()
	l := newTestLedger(t,
		NewDeclare(day("2025-03-01"), elsa),
		NewAcquire(day("2025-03-01"), k, LightlyPlayed, 1, Money{}),
	)
	_, err := l.Validate(NewDispose(day("2025-03-02"), k, LightlyPlayed, 2, Money{}))
	if !errors.Is(err, ErrInsufficient) {
		t.Errorf("Validate() error = %v, want ErrInsufficient", err)
	}
}

func TestLedger_Transactions_filters(t *testing.T) {
	l := newTestLedger(t,
		NewDeclare(day("2025-03-01"), elsa),
		NewDeclare(day("2025-03-01"), mickey),
		NewAcquire(day("2025-03-02"), mickey.Key(), NearMint, 1, Money{}),
		NewAcquire(day("2025-03-03"), elsa.Key(), NearMint, 1, Money{}),
	)
	count := func(filters ...func(Transaction) bool) int {
		n := 0
		for range l.Transactions(filters...) {
			n++
		}
		return n
	}
	if got := count(); got != 4 {
		t.Errorf("no filter: got %d, want 4", got)
	}
	if got := count(ByKey(elsa.Key())); got != 2 {
		t.Errorf("ByKey: got %d, want 2", got)
	}
	if got := count(l.ByName("MICKEY")); got != 2 {
		t.Errorf("ByName: got %d, want 2", got)
	}
	if got := count(ByCommand(CmdAcquire), ByKey(elsa.Key())); got != 3 {
		t.Errorf("ByCommand or ByKey: got %d, want 3", got)
	}
	if got, want := l.NewestTransactionDate(), day("2025-03-03"); got != want {
		t.Errorf("NewestTransactionDate() = %v, want %v", got, want)
	}
}

func TestLedger_Fmt(t *testing.T) {
	l := NewLedger("raw")
	// out of order on purpose, Append sorts.
	l.Append(
		NewAcquire(day("2025-03-02"), elsa.Key(), "nm", 2, M(1, "")),
		NewDeclare(day("2025-03-01"), elsa),
	)
	out, err := l.Fmt()
	if err != nil {
		t.Fatalf("Fmt() unexpected error: %v", err)
	}
	if out.Name() != "raw" || out.Len() != 2 {
		t.Fatalf("Fmt() = %q with %d transactions", out.Name(), out.Len())
	}
	var got Acquire
	for _, tx := range out.Transactions(ByCommand(CmdAcquire)) {
		got = tx.(Acquire)
	}
	if got.Condition != NearMint || got.Cost.Currency() != "USD" {
		t.Errorf("Fmt() acquire = %+v, want canonical condition and currency", got)
	}
}

func TestLedger_Apply(t *testing.T) {
	l := NewLedger("binder")
	fixed, err := l.Apply(
		NewDeclare(day("2025-01-10"), elsa),
		NewAcquire(day("2025-01-10"), elsa.Key(), "", 2, USD(10)),
		NewDispose(day("2025-01-11"), elsa.Key(), NearMint, 3, USD(15)),
	)
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("Apply() error = %v, want ErrInsufficient", err)
	}
	if len(fixed) != 2 || l.Len() != 2 {
		t.Fatalf("Apply() appended %d transactions, ledger has %d, want 2", len(fixed), l.Len())
	}
	if got := fixed[1].(Acquire).Condition; got != NearMint {
		t.Errorf("Apply() condition = %q, want quick fixed NM", got)
	}
}

func TestLedger_Validate_proceedsCurrency(t *testing.T) {
	k := elsa.Key()
	l := newTestLedger(t,
		NewDeclare(day("2025-03-01"), elsa),
		NewAcquire(day("2025-03-01"), k, NearMint, 2, Money{}),
		NewDispose(day("2025-03-02"), k, NearMint, 1, USD(5)),
	)
	if _, err := l.Validate(NewDispose(day("2025-03-03"), k, NearMint, 1, EUR(5))); err == nil {
		t.Errorf("Validate() of proceeds in EUR after USD proceeds: expected an error")
	}

	// an unchecked ledger must still fold.
	l.Append(NewDispose(day("2025-03-03"), k, NearMint, 1, EUR(5)))
	s := l.NewSnapshot(day("2025-03-04"))
	if got := s.Proceeds(k); !got.Equal(USD(5)) {
		t.Errorf("Proceeds() = %v, want $5", got)
	}
	if got := len(s.Holdings()); got != 0 {
		t.Errorf("Holdings() = %d lines, want none", got)
	}
}

func TestLedger_Validate_costCurrencyAfterSellOut(t *testing.T) {
	k := elsa.Key()
	l := newTestLedger(t,
		NewDeclare(day("2025-03-01"), elsa),
		NewAcquire(day("2025-03-01"), k, NearMint, 1, USD(3)),
		NewDispose(day("2025-03-02"), k, NearMint, 1, Money{}),
		NewAcquire(day("2025-03-03"), k, NearMint, 1, EUR(4)),
	)
	s := l.NewSnapshot(day("2025-03-04"))
	if got := s.CostBasis(k); !got.Equal(EUR(4)) {
		t.Errorf("CostBasis() = %v, want €4", got)
	}

	// while USD copies are held, EUR costs are rejected.
	l = newTestLedger(t,
		NewDeclare(day("2025-03-01"), elsa),
		NewAcquire(day("2025-03-01"), k, NearMint, 2, USD(3)),
		NewDispose(day("2025-03-02"), k, NearMint, 1, Money{}),
	)
	if _, err := l.Validate(NewAcquire(day("2025-03-03"), k, NearMint, 1, EUR(4))); err == nil {
		t.Errorf("Validate() of a EUR cost on USD copies: expected an error")
	}
}
