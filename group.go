package cardvault

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Copy is a raw line describing copies of a printing, as read from a CSV row
// or returned by a catalog.
type Copy struct {
	Printing  Printing
	Condition Condition
	Quantity  Quantity
	Cost      Money // unit cost, zero when unknown
	Date      Date
	Line      int // source line, 0 when unknown
}

// GroupBy returns the key copies are merged on.
type GroupBy func(Copy) string

// ByPrinting merges copies of the same printing whatever their condition.
func ByPrinting(c Copy) string { return string(c.Printing.Key()) }

// ByPrintingCondition merges copies of the same printing in the same condition.
func ByPrintingCondition(c Copy) string {
	cond := c.Condition
	if cond == "" {
		cond = NearMint
	}
	return string(c.Printing.Key()) + "#" + string(cond)
}

// Group merges copies sharing the same key, in order of first appearance.
// Quantities are summed, metadata is the first non-empty value, the date is
// the earliest one and the unit cost is the average of the known costs
// weighted by quantity.
func Group(copies []Copy, by GroupBy) ([]Copy, error) {
	type acc struct {
		Copy
		costed Quantity
		total  Money
	}
	index := make(map[string]int)
	var groups []*acc
	for _, c := range copies {
		k := by(c)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, &acc{Copy: Copy{Printing: c.Printing, Condition: c.Condition, Date: c.Date, Line: c.Line}})
		}
		g := groups[i]
		g.Printing = g.Printing.merge(c.Printing)
		g.Quantity += c.Quantity
		if g.Condition == "" {
			g.Condition = c.Condition
		}
		if !c.Date.IsZero() && (g.Date.IsZero() || c.Date.Before(g.Date)) {
			g.Date = c.Date
		}
		if c.Cost.IsZero() {
			continue
		}
		if !g.total.SameCurrency(c.Cost) {
			return nil, fmt.Errorf("line %d: %s costs %s but an earlier line used %s", c.Line, c.Printing.Key(), c.Cost.Currency(), g.total.Currency())
		}
		g.costed += c.Quantity
		g.total = g.total.Add(c.Cost.Mul(c.Quantity))
	}
	out := make([]Copy, len(groups))
	for i, g := range groups {
		out[i] = g.Copy
		if g.costed > 0 {
			out[i].Cost = g.total.Div(g.costed).Round()
		}
	}
	return out, nil
}

// NameGroup gathers the holdings of a card across all its printings.
type NameGroup struct {
	Name     string
	Holdings []Holding
	Quantity Quantity
	Value    Money
}

// GroupByName groups holdings by card name (case insensitive), sorted by name.
// Holdings without name are grouped under their printing key.
func GroupByName(holdings []Holding) []NameGroup {
	index := make(map[string]int)
	var out []NameGroup
	for _, h := range holdings {
		name := h.Printing.Name
		if name == "" {
			name = string(h.Key)
		}
		k := strings.ToLower(name)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, NameGroup{Name: name})
		}
		g := &out[i]
		g.Holdings = append(g.Holdings, h)
		g.Quantity += h.Quantity
		if !h.Value.IsZero() && g.Value.SameCurrency(h.Value) {
			g.Value = g.Value.Add(h.Value)
		}
	}
	slices.SortStableFunc(out, func(a, b NameGroup) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}
