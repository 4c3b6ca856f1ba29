package cardvault

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/cardvault/date"
)

// holdingKey identifies copies of a printing in a condition.
type holdingKey struct {
	Key       PrintingKey
	Condition Condition
}

// costBasis tracks the average cost of the copies of a printing.
type costBasis struct {
	quantity Quantity // copies with a known cost
	total    Money
}

// Listing is the state of a marketplace listing.
type Listing struct {
	ID          string      `json:"id"`
	Marketplace string      `json:"marketplace"`
	Key         PrintingKey `json:"key"`
	Condition   Condition   `json:"condition"`
	Quantity    Quantity    `json:"quantity"`
	Price       Money       `json:"price"`
	Listed      Date        `json:"listed"`
	Closed      Date        `json:"closed,omitzero"`
	Open        bool        `json:"open"`
}

// Snapshot is the state of a collection at the end of a day.
type Snapshot struct {
	ledger    *Ledger
	on        Date
	positions map[holdingKey]Quantity
	costs     map[PrintingKey]*costBasis
	proceeds  map[PrintingKey]Money
	prices    map[PrintingKey]*date.History[Money]
	listings  map[string]*Listing
}

// NewSnapshot folds the ledger's transactions up to and including day 'on'.
func (l *Ledger) NewSnapshot(on Date) *Snapshot {
	s := &Snapshot{
		ledger:    l,
		on:        on,
		positions: make(map[holdingKey]Quantity),
		costs:     make(map[PrintingKey]*costBasis),
		proceeds:  make(map[PrintingKey]Money),
		prices:    make(map[PrintingKey]*date.History[Money]),
		listings:  make(map[string]*Listing),
	}
	for _, tx := range l.transactions {
		if tx.When().After(on) {
			break // transactions are sorted
		}
		s.apply(tx)
	}
	return s
}

func (s *Snapshot) apply(tx Transaction) {
	switch v := tx.(type) {
	case Acquire:
		hk := holdingKey{v.Key, v.Condition}
		s.positions[hk] += v.Quantity
		if !v.Cost.IsZero() {
			cb := s.costs[v.Key]
			if cb == nil {
				cb = &costBasis{}
				s.costs[v.Key] = cb
			}
			if !cb.total.SameCurrency(v.Cost) {
				// rejected by Validate, only unchecked ledgers get here.
				break
			}
			cb.quantity += v.Quantity
			cb.total = cb.total.Add(v.Cost.Mul(v.Quantity))
		}
	case Dispose:
		hk := holdingKey{v.Key, v.Condition}
		held := s.Position(v.Key)
		if cb := s.costs[v.Key]; cb != nil && held > 0 && cb.quantity > 0 {
			// average cost: the disposed copies take their share of the known cost.
			share := min(v.Quantity, cb.quantity)
			cb.total = cb.total.Sub(cb.total.Div(cb.quantity).Mul(share))
			cb.quantity -= share
			if cb.quantity == 0 {
				delete(s.costs, v.Key)
			}
		}
		s.positions[hk] -= v.Quantity
		if s.positions[hk] <= 0 {
			delete(s.positions, hk)
		}
		if p := s.proceeds[v.Key]; !v.Proceeds.IsZero() && p.SameCurrency(v.Proceeds) {
			s.proceeds[v.Key] = p.Add(v.Proceeds.Mul(v.Quantity))
		}
	case UpdatePrice:
		for key := range v.Prices {
			h := s.prices[key]
			if h == nil {
				h = new(date.History[Money])
				s.prices[key] = h
			}
			price, _ := v.Price(key)
			h.Append(v.Date, price)
		}
	case List:
		s.listings[v.Listing] = &Listing{
			ID:          v.Listing,
			Marketplace: v.Marketplace,
			Key:         v.Key,
			Condition:   v.Condition,
			Quantity:    v.Quantity,
			Price:       v.Price,
			Listed:      v.Date,
			Open:        true,
		}
	case Delist:
		if lst, ok := s.listings[v.Listing]; ok {
			lst.Open = false
			lst.Closed = v.Date
		}
	}
}

// On returns the snapshot's day.
func (s *Snapshot) On() Date { return s.on }

// Ledger returns the collection this snapshot is computed from.
func (s *Snapshot) Ledger() *Ledger { return s.ledger }

// Position returns the number of copies held for a printing, all conditions.
func (s *Snapshot) Position(key PrintingKey) Quantity {
	var q Quantity
	for hk, v := range s.positions {
		if hk.Key == key {
			q += v
		}
	}
	return q
}

// PositionBy returns the number of copies held for a printing in a condition.
func (s *Snapshot) PositionBy(key PrintingKey, cond Condition) Quantity {
	return s.positions[holdingKey{key, cond}]
}

// Price returns the latest known price of a printing on the snapshot day.
func (s *Snapshot) Price(key PrintingKey) (Money, bool) {
	h := s.prices[key]
	if h == nil {
		return Money{}, false
	}
	return h.ValueAsOf(s.on)
}

// PriceHistory returns the prices recorded for a printing up to the snapshot day.
func (s *Snapshot) PriceHistory(key PrintingKey) *date.History[Money] {
	if h := s.prices[key]; h != nil {
		return h
	}
	return new(date.History[Money])
}

// MarketValue returns the value of all copies of a printing at the latest known price.
func (s *Snapshot) MarketValue(key PrintingKey) Money {
	price, ok := s.Price(key)
	if !ok {
		return Money{}
	}
	return price.Mul(s.Position(key))
}

// CostBasis returns the total cost of the copies held, for the copies whose cost is known.
// It is zero, with no currency, once every costed copy is disposed.
func (s *Snapshot) CostBasis(key PrintingKey) Money {
	if cb := s.costs[key]; cb != nil {
		return cb.total
	}
	return Money{}
}

// UnitCost returns the average cost per copy.
func (s *Snapshot) UnitCost(key PrintingKey) Money {
	cb := s.costs[key]
	if cb == nil || cb.quantity == 0 {
		return Money{}
	}
	return cb.total.Div(cb.quantity)
}

// UnrealizedGain returns market value minus cost basis for the copies with a known cost.
func (s *Snapshot) UnrealizedGain(key PrintingKey) Money {
	cb := s.costs[key]
	price, ok := s.Price(key)
	if cb == nil || cb.quantity == 0 || !ok || !price.SameCurrency(cb.total) {
		return Money{}
	}
	return price.Mul(cb.quantity).Sub(cb.total)
}

// Proceeds returns the total proceeds of disposed copies.
func (s *Snapshot) Proceeds(key PrintingKey) Money { return s.proceeds[key] }

// Keys returns the printings held, sorted by key.
func (s *Snapshot) Keys() []PrintingKey {
	set := make(map[PrintingKey]bool)
	for hk := range s.positions {
		set[hk.Key] = true
	}
	return slices.Sorted(maps.Keys(set))
}

// Holding is a line of the holdings: copies of a printing in a condition.
type Holding struct {
	Key       PrintingKey `json:"key"`
	Printing  Printing    `json:"printing"`
	Condition Condition   `json:"condition"`
	Quantity  Quantity    `json:"quantity"`
	Listed    Quantity    `json:"listed"`
	UnitCost  Money       `json:"unit_cost"`
	Price     Money       `json:"price"`
	Value     Money       `json:"value"`
}

// Holdings returns one line per printing and condition, sorted by name then
// key then condition (best first).
func (s *Snapshot) Holdings() []Holding {
	var out []Holding
	for hk, q := range s.positions {
		p, _ := s.ledger.Printing(hk.Key)
		h := Holding{
			Key:       hk.Key,
			Printing:  p,
			Condition: hk.Condition,
			Quantity:  q,
			Listed:    s.ListedBy(hk.Key, hk.Condition),
			UnitCost:  s.UnitCost(hk.Key),
		}
		if price, ok := s.Price(hk.Key); ok {
			h.Price = price
			h.Value = price.Mul(q)
		}
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b Holding) int {
		return cmp.Or(
			strings.Compare(strings.ToLower(a.Printing.Name), strings.ToLower(b.Printing.Name)),
			strings.Compare(string(a.Key), string(b.Key)),
			cmp.Compare(conditionRank(a.Condition), conditionRank(b.Condition)),
		)
	})
	return out
}

func conditionRank(c Condition) int {
	if i := slices.Index(Conditions, c); i >= 0 {
		return i
	}
	return len(Conditions)
}

// Copies returns the total number of copies held.
func (s *Snapshot) Copies() Quantity {
	var q Quantity
	for _, v := range s.positions {
		q += v
	}
	return q
}

// TotalValue sums the market value of the printings priced in currency.
func (s *Snapshot) TotalValue(currency string) Money {
	total := M(0, currency)
	for _, key := range s.Keys() {
		if v := s.MarketValue(key); v.InCurrency(currency) {
			total = total.Add(v)
		}
	}
	return total
}

// TotalCost sums the cost basis of the printings bought in currency.
func (s *Snapshot) TotalCost(currency string) Money {
	total := M(0, currency)
	for _, key := range s.Keys() {
		if c := s.CostBasis(key); c.InCurrency(currency) {
			total = total.Add(c)
		}
	}
	return total
}

// Unpriced returns the printings held without any known price.
func (s *Snapshot) Unpriced() []PrintingKey {
	var out []PrintingKey
	for _, key := range s.Keys() {
		if _, ok := s.Price(key); !ok {
			out = append(out, key)
		}
	}
	return out
}

// Listing returns a listing by id.
func (s *Snapshot) Listing(id string) (Listing, bool) {
	if lst, ok := s.listings[id]; ok {
		return *lst, true
	}
	return Listing{}, false
}

// ListedBy returns the number of copies in open listings for a printing in a condition.
func (s *Snapshot) ListedBy(key PrintingKey, cond Condition) Quantity {
	var q Quantity
	for _, lst := range s.listings {
		if lst.Open && lst.Key == key && lst.Condition == cond {
			q += lst.Quantity
		}
	}
	return q
}

// Listings returns all listings, open ones first, then by date and id.
func (s *Snapshot) Listings() []Listing {
	out := make([]Listing, 0, len(s.listings))
	for _, lst := range s.listings {
		out = append(out, *lst)
	}
	slices.SortFunc(out, func(a, b Listing) int {
		if a.Open != b.Open {
			if a.Open {
				return -1
			}
			return 1
		}
		return cmp.Or(a.Listed.Compare(b.Listed), strings.Compare(a.ID, b.ID))
	})
	return out
}

// OpenListings returns the open listings.
func (s *Snapshot) OpenListings() []Listing {
	var out []Listing
	for _, lst := range s.Listings() {
		if lst.Open {
			out = append(out, lst)
		}
	}
	return out
}

// Listed returns the number of copies of a printing in open listings, all conditions.
func (s *Snapshot) Listed(key PrintingKey) Quantity {
	var q Quantity
	for _, lst := range s.listings {
		if lst.Open && lst.Key == key {
			q += lst.Quantity
		}
	}
	return q
}
