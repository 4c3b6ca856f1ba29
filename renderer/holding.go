package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/cardvault"
)

// PrintingsMarkdown renders the declared printings of a collection, marking the
// ones currently held. The assistant uses it to learn printing keys.
func PrintingsMarkdown(s *cardvault.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Printings\n\n")
	fmt.Fprintln(&b, "| Key | Held | Name | Set | Rarity |")
	fmt.Fprintln(&b, "|:---|---:|:---|:---|:---|")

	for p := range s.Ledger().Printings() {
		held := ""
		if q := s.Position(p.Key()); q > 0 {
			held = q.String()
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			p.Key(),
			held,
			p.Name,
			p.SetName,
			p.Rarity,
		)
	}
	return b.String()
}

// Listings are the marketplace listings of a collection.
type Listings struct {
	Name  string        `json:"name"`
	Date  cardvault.Date `json:"date"`
	Open  int           `json:"open"`
	Lines []ListingLine `json:"lines"`
}

// ListingLine is a listing with its printing name.
type ListingLine struct {
	cardvault.Listing
	Name string `json:"name"`
}

// NewListings creates the listings report of a snapshot. Closed listings are
// included when all is set.
func NewListings(s *cardvault.Snapshot, all bool) *Listings {
	r := &Listings{Name: s.Ledger().Name(), Date: s.On(), Lines: make([]ListingLine, 0)}
	for _, lst := range s.Listings() {
		if lst.Open {
			r.Open++
		} else if !all {
			continue
		}
		name := string(lst.Key)
		if p, ok := s.Ledger().Printing(lst.Key); ok {
			name = p.String()
		}
		r.Lines = append(r.Lines, ListingLine{Listing: lst, Name: name})
	}
	return r
}

// Search is a catalog search result.
type Search struct {
	Provider string       `json:"provider"`
	Query    string       `json:"query"`
	Cards    []SearchCard `json:"cards"`
}

// SearchCard is a printing found in a catalog, with its price if known.
type SearchCard struct {
	Key     cardvault.PrintingKey `json:"key"`
	Name    string                `json:"name"`
	SetName string                `json:"setName"`
	Rarity  string                `json:"rarity"`
	Price   cardvault.Money       `json:"price"`
}

// Add appends a printing to the result.
func (s *Search) Add(p cardvault.Printing, price cardvault.Money) {
	s.Cards = append(s.Cards, SearchCard{Key: p.Key(), Name: p.Name, SetName: p.SetName, Rarity: p.Rarity, Price: price})
}
