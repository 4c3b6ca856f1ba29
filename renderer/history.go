package renderer

import (
	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/date"
	"github.com/shopspring/decimal"
)

// History is the price history of a printing.
type History struct {
	Key       cardvault.PrintingKey `json:"key"`
	Name      string                `json:"name"`
	Currency  string                `json:"currency"`
	Sparkline string                `json:"sparkline,omitempty"`
	Trend     cardvault.PriceTrend  `json:"trend"`
	First     cardvault.Money       `json:"first"`
	Last      cardvault.Money       `json:"last"`
	Min       cardvault.Money       `json:"min"`
	Max       cardvault.Money       `json:"max"`
	ChangePct decimal.Decimal       `json:"changePct"`
	Points    []HistoryPoint        `json:"points"`
}

// HistoryPoint is a price and its change since the previous point.
type HistoryPoint struct {
	Date   cardvault.Date  `json:"date"`
	Price  cardvault.Money `json:"price"`
	Change cardvault.Money `json:"change"`
}

// SparklineWidth is the number of blocks of the sparkline.
const SparklineWidth = 30

// NewHistory creates the price history of a printing in a collection between
// from and to. A zero from or to leaves that side open, an empty currency is the
// one of the latest price.
func NewHistory(l *cardvault.Ledger, key cardvault.PrintingKey, currency string, from, to cardvault.Date) *History {
	if currency == "" {
		currency = l.PriceCurrency(key)
	}
	h := l.PriceHistory(key, currency)
	r := &History{Key: key, Name: string(key), Currency: currency, Points: make([]HistoryPoint, 0)}
	if p, ok := l.Printing(key); ok {
		r.Name = p.String()
	}
	r.Trend = cardvault.Trend(h, from, to)
	m := func(d decimal.Decimal) cardvault.Money { return cardvault.M(d, currency) }
	r.First, r.Last, r.Min, r.Max = m(r.Trend.First), m(r.Trend.Last), m(r.Trend.Min), m(r.Trend.Max)
	r.ChangePct = r.Trend.ChangePct

	var prev *decimal.Decimal
	for day, price := range h.Values() {
		if (!from.IsZero() && day.Before(from)) || (!to.IsZero() && day.After(to)) {
			continue
		}
		pt := HistoryPoint{Date: day, Price: m(price)}
		if prev != nil {
			pt.Change = m(price.Sub(*prev))
		}
		p := price
		prev = &p
		r.Points = append(r.Points, pt)
	}
	window := new(date.History[decimal.Decimal])
	for _, pt := range r.Points {
		window.Append(pt.Date, pt.Price.Decimal())
	}
	r.Sparkline = cardvault.Sparkline(window, SparklineWidth)
	return r
}
