package cardvault

import (
	"strings"

	"github.com/etnz/cardvault/date"
	"github.com/shopspring/decimal"
)

// PriceHistory returns the prices recorded for a printing in currency.
// An empty currency selects the currency of the most recent price update.
func (l *Ledger) PriceHistory(key PrintingKey, currency string) *date.History[decimal.Decimal] {
	currency = strings.ToUpper(currency)
	if currency == "" {
		currency = l.PriceCurrency(key)
	}
	h := new(date.History[decimal.Decimal])
	for _, tx := range l.Transactions(ByCommand(CmdUpdatePrice)) {
		v := tx.(UpdatePrice)
		if v.Currency != currency {
			continue
		}
		if p, ok := v.Prices[key]; ok {
			h.Append(v.Date, p)
		}
	}
	return h
}

// PriceCurrency returns the currency of the most recent price of a printing,
// empty if it was never priced.
func (l *Ledger) PriceCurrency(key PrintingKey) string {
	var currency string
	for _, tx := range l.Transactions(ByCommand(CmdUpdatePrice)) {
		v := tx.(UpdatePrice)
		if _, priced := v.Prices[key]; priced {
			currency = v.Currency
		}
	}
	return currency
}

// PriceTrend summarizes the prices of a history over a range.
type PriceTrend struct {
	From, To  Date // first and last days with a price
	First     decimal.Decimal
	Last      decimal.Decimal
	Min, Max  decimal.Decimal
	Change    decimal.Decimal // Last - First
	ChangePct decimal.Decimal // Change in percent of First, zero when First is zero
	Points    int
}

// IsZero reports whether the trend has no price.
func (t PriceTrend) IsZero() bool { return t.Points == 0 }

// Trend computes the trend of the prices between from and to, inclusive.
// A zero from or to leaves that side open.
func Trend(h *date.History[decimal.Decimal], from, to Date) PriceTrend {
	var t PriceTrend
	for day, v := range h.Values() {
		if !from.IsZero() && day.Before(from) {
			continue
		}
		if !to.IsZero() && day.After(to) {
			break
		}
		if t.Points == 0 {
			t.From, t.First, t.Min, t.Max = day, v, v, v
		}
		t.To, t.Last = day, v
		t.Min = decimal.Min(t.Min, v)
		t.Max = decimal.Max(t.Max, v)
		t.Points++
	}
	if t.Points == 0 {
		return t
	}
	t.Change = t.Last.Sub(t.First)
	if !t.First.IsZero() {
		t.ChangePct = t.Change.Div(t.First).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return t
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders the history as width unicode blocks. Each block shows the
// last price known at the end of its slice of the history's time span.
func Sparkline(h *date.History[decimal.Decimal], width int) string {
	if h.Len() == 0 || width <= 0 {
		return ""
	}
	first, _ := h.First()
	last, _ := h.Latest()
	span := last.Sub(first)
	if h.Len() < width {
		width = h.Len()
	}
	values := make([]decimal.Decimal, width)
	for i := range values {
		day := last
		if width > 1 {
			day = first.Add(span * i / (width - 1))
		}
		values[i], _ = h.ValueAsOf(day)
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = decimal.Min(lo, v)
		hi = decimal.Max(hi, v)
	}
	var b strings.Builder
	top := decimal.NewFromInt(int64(len(sparks) - 1))
	for _, v := range values {
		idx := 0
		if hi.GreaterThan(lo) {
			idx = int(v.Sub(lo).Div(hi.Sub(lo)).Mul(top).Round(0).IntPart())
		}
		b.WriteRune(sparks[idx])
	}
	return b.String()
}

// MergeHistory records provider supplied prices of a printing as update-price
// transactions. Days already holding the same price are skipped. It returns the
// number of prices added or changed.
func MergeHistory(l *Ledger, key PrintingKey, currency, source string, h *date.History[decimal.Decimal]) int {
	currency = strings.ToUpper(currency)
	known := l.PriceHistory(key, currency)
	n := 0
	for day, price := range h.Values() {
		if old, ok := known.Get(day); ok && old.Equal(price) {
			continue
		}
		up := UpdatePrice{
			baseCmd:  baseCmd{Command: CmdUpdatePrice, Date: day},
			Currency: currency,
			Source:   source,
			Prices:   map[PrintingKey]decimal.Decimal{key: price},
		}
		l.AppendOrUpdate(up)
		n++
	}
	return n
}
