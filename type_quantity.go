package cardvault

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Quantity is a whole number of card copies.
type Quantity int

func (q Quantity) decimal() decimal.Decimal { return decimal.NewFromInt(int64(q)) }
func (q Quantity) IsZero() bool              { return q == 0 }
func (q Quantity) IsPositive() bool          { return q > 0 }
func (q Quantity) String() string            { return strconv.Itoa(int(q)) }
