package cardvault

import (
	"testing"
	"unicode/utf8"

	"github.com/etnz/cardvault/date"
	"github.com/shopspring/decimal"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestLedger_PriceHistory(t *testing.T) {
	k := elsa.Key()
	l := newTestLedger(t,
		NewDeclare(day("2025-01-01"), elsa),
		NewUpdatePrice(day("2025-01-02"), k, USD(10)),
		NewUpdatePrice(day("2025-01-03"), k, EUR(9)),
		NewUpdatePrice(day("2025-01-04"), k, USD(11)),
	)
	h := l.PriceHistory(k, "")
	if h.Len() != 2 {
		t.Fatalf("PriceHistory(%q, \"\") has %d points, want 2 USD points", k, h.Len())
	}
	if v, _ := h.Get(day("2025-01-04")); !v.Equal(dec(11)) {
		t.Errorf("price on 2025-01-04 = %v, want 11", v)
	}
	if eur := l.PriceHistory(k, "eur"); eur.Len() != 1 {
		t.Errorf("PriceHistory(%q, eur) has %d points, want 1", k, eur.Len())
	}
}

func TestTrend(t *testing.T) {
	h := new(date.History[decimal.Decimal])
	h.Append(day("2025-01-01"), dec(10))
	h.Append(day("2025-01-05"), dec(8))
	h.Append(day("2025-01-10"), dec(15))
	h.Append(day("2025-01-20"), dec(12))

	tr := Trend(h, day("2025-01-02"), day("2025-01-15"))
	if tr.Points != 2 || tr.From != day("2025-01-05") || tr.To != day("2025-01-10") {
		t.Fatalf("Trend() window = %d points %v..%v", tr.Points, tr.From, tr.To)
	}
	if !tr.Change.Equal(dec(7)) || !tr.ChangePct.Equal(dec(87.5)) {
		t.Errorf("Trend() change = %v (%v%%), want 7 (87.5%%)", tr.Change, tr.ChangePct)
	}

	all := Trend(h, Date{}, Date{})
	if !all.Min.Equal(dec(8)) || !all.Max.Equal(dec(15)) || !all.Last.Equal(dec(12)) {
		t.Errorf("Trend() min/max/last = %v/%v/%v", all.Min, all.Max, all.Last)
	}
	if empty := Trend(h, day("2026-01-01"), Date{}); !empty.IsZero() {
		t.Errorf("Trend() after the last price = %+v, want zero", empty)
	}
}

func TestSparkline(t *testing.T) {
	h := new(date.History[decimal.Decimal])
	if got := Sparkline(h, 10); got != "" {
		t.Errorf("Sparkline(empty) = %q", got)
	}
	h.Append(day("2025-01-01"), dec(1))
	h.Append(day("2025-01-02"), dec(8))
	if got, want := Sparkline(h, 10), "▁█"; got != want {
		t.Errorf("Sparkline() = %q, want %q", got, want)
	}
	for i := 3; i <= 30; i++ {
		h.Append(day("2025-01-01").Add(i-1), dec(float64(i%5)))
	}
	if got := utf8.RuneCountInString(Sparkline(h, 12)); got != 12 {
		t.Errorf("Sparkline() has %d runes, want 12", got)
	}
}

func TestMergeHistory(t *testing.T) {
	k := elsa.Key()
	l := newTestLedger(t,
		NewDeclare(day("2025-01-01"), elsa),
		NewUpdatePrice(day("2025-01-02"), k, USD(10)),
	)
	h := new(date.History[decimal.Decimal])
	h.Append(day("2025-01-02"), dec(10)) // known
	h.Append(day("2025-01-03"), dec(10.5))
	h.Append(day("2025-01-04"), dec(11))

	if n := MergeHistory(l, k, "usd", "justtcg", h); n != 2 {
		t.Errorf("MergeHistory() = %d, want 2", n)
	}
	if got := l.PriceHistory(k, "USD").Len(); got != 3 {
		t.Errorf("PriceHistory() has %d points after merge, want 3", got)
	}
	if n := MergeHistory(l, k, "USD", "justtcg", h); n != 0 {
		t.Errorf("MergeHistory() twice = %d, want 0", n)
	}
}
