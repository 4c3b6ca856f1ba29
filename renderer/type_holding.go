package renderer

import (
	"github.com/etnz/cardvault"
)

// Holding is the holdings report of a collection on a day.
// Amounts are cardvault.Money so that templates can use their String and
// SignedString methods.
type Holding struct {
	// Name of the collection.
	Name string `json:"name,omitempty"`
	// Date of the holding.
	Date cardvault.Date `json:"date"`
	// Currency of the totals.
	Currency string `json:"currency"`
	// Copies is the number of copies held.
	Copies cardvault.Quantity `json:"copies"`
	// TotalValue is the market value of the copies priced in Currency.
	TotalValue cardvault.Money `json:"totalValue"`
	// TotalCost is the cost basis of the copies bought in Currency.
	TotalCost cardvault.Money `json:"totalCost"`
	// Gain is TotalValue minus TotalCost.
	Gain cardvault.Money `json:"gain"`
	// ByName groups lines by card name instead of listing printings.
	ByName bool `json:"-"`
	// Lines are the copies by printing and condition.
	Lines []HoldingLine `json:"lines"`
	// Names are the lines grouped by card name.
	Names []HoldingName `json:"names,omitempty"`
	// Unpriced lists the printings held without a known price.
	Unpriced []cardvault.PrintingKey `json:"unpriced,omitempty"`
}

// HoldingLine is the copies of a printing in a condition.
type HoldingLine struct {
	Key       cardvault.PrintingKey `json:"key"`
	Name      string                `json:"name"`
	Set       string                `json:"set"`
	Number    string                `json:"number"`
	Finish    cardvault.Finish      `json:"finish"`
	Condition cardvault.Condition   `json:"condition"`
	Quantity  cardvault.Quantity    `json:"quantity"`
	Listed    cardvault.Quantity    `json:"listed,omitempty"`
	UnitCost  cardvault.Money       `json:"unitCost"`
	Price     cardvault.Money       `json:"price"`
	Value     cardvault.Money       `json:"value"`
}

// HoldingName is the copies of a card across its printings.
type HoldingName struct {
	Name      string             `json:"name"`
	Printings int                `json:"printings"`
	Quantity  cardvault.Quantity `json:"quantity"`
	Value     cardvault.Money    `json:"value"`
}

// NewHolding creates the holdings report of a snapshot, totals in currency.
func NewHolding(s *cardvault.Snapshot, currency string) *Holding {
	h := &Holding{
		Name:       s.Ledger().Name(),
		Date:       s.On(),
		Currency:   currency,
		Copies:     s.Copies(),
		TotalValue: s.TotalValue(currency),
		TotalCost:  s.TotalCost(currency),
		Lines:      make([]HoldingLine, 0),
		Unpriced:   s.Unpriced(),
	}
	h.Gain = h.TotalValue.Sub(h.TotalCost)

	holdings := s.Holdings()
	for _, hd := range holdings {
		name := hd.Printing.Name
		if name == "" {
			name = string(hd.Key)
		}
		h.Lines = append(h.Lines, HoldingLine{
			Key:       hd.Key,
			Name:      name,
			Set:       hd.Key.Set(),
			Number:    hd.Key.Number(),
			Finish:    hd.Key.Finish(),
			Condition: hd.Condition,
			Quantity:  hd.Quantity,
			Listed:    hd.Listed,
			UnitCost:  hd.UnitCost.Round(),
			Price:     hd.Price,
			Value:     hd.Value,
		})
	}
	for _, g := range cardvault.GroupByName(holdings) {
		keys := make(map[cardvault.PrintingKey]bool)
		for _, hd := range g.Holdings {
			keys[hd.Key] = true
		}
		h.Names = append(h.Names, HoldingName{Name: g.Name, Printings: len(keys), Quantity: g.Quantity, Value: g.Value})
	}
	return h
}
