package date

import "fmt"

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// NewRange returns the period range containing d.
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// Last returns the range of the n days ending on 'to'.
func Last(to Date, n int) Range {
	return Range{From: to.Add(1 - n), To: to}
}

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(d Date) bool { return !d.Before(r.From) && !d.After(r.To) }

// Days returns the number of days in the range.
func (r Range) Days() int { return r.To.Sub(r.From) + 1 }

// Identifier computes a short unique identifier for the range of a period p.
func (r Range) Identifier(p Period) string {
	switch p {
	case Daily:
		return r.From.String()
	case Weekly:
		y, week := r.From.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, week)
	case Monthly:
		return r.From.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", r.From.Year(), (r.From.Month()-1)/3+1)
	case Yearly:
		return r.From.Format("2006")
	default:
		return fmt.Sprintf("%s_%s", r.From, r.To)
	}
}

func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }
