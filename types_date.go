package cardvault

import "github.com/etnz/cardvault/date"

// Date is a calendar day, see package [date].
type Date = date.Date

// Today returns the current date.
func Today() Date { return date.Today() }

// ParseDate parses a day in the lenient [date.Parse] format.
func ParseDate(s string) (Date, error) { return date.Parse(s) }
