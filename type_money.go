package cardvault

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a price comes without currency.
const DefaultCurrency = "USD"

// Money represents a monetary value.
type Money struct {
	value decimal.Decimal // as major unit value
	cur   string
}

// M returns value in the given currency.
func M[T float64 | int | int64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: strings.ToUpper(currency)}
}

// Cents returns an amount expressed in the minor unit of currency, as most marketplaces do.
func Cents(amount int64, currency string) Money {
	m := Money{cur: strings.ToUpper(currency)}
	return Money{value: decimal.New(amount, -int32(m.currency().Fraction)), cur: m.cur}
}

// ParseMoney parses amounts like "12.5", "12.5 EUR" or "EUR 12.5".
func ParseMoney(s, defaultCurrency string) (Money, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	cur := defaultCurrency
	var amount string
	switch len(fields) {
	case 1:
		amount = fields[0]
	case 2:
		amount, cur = fields[0], fields[1]
		if _, err := decimal.NewFromString(amount); err != nil {
			amount, cur = fields[1], fields[0]
		}
	default:
		return Money{}, fmt.Errorf("invalid amount %q", s)
	}
	amount = strings.TrimPrefix(amount, "$")
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{value: v, cur: strings.ToUpper(cur)}, nil
}

func newDecimal[T float64 | int | int64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	default:
		panic("unsupported type")
	}
}

// currency returns the go-money currency, the default one when m has none.
func (m Money) currency() money.Currency {
	code := m.cur
	if code == "" {
		code = DefaultCurrency
	}
	return *money.New(0, code).Currency()
}

// String returns the amount formatted for its currency, e.g. "$1.50".
func (m Money) String() string {
	if m.cur == "" {
		return m.value.StringFixed(2)
	}
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(dec.IntPart())
}

// SignedString returns the string representation with a sign, "-" for zero.
func (m Money) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

func (m Money) Currency() string                { return m.cur }
func (m Money) Decimal() decimal.Decimal        { return m.value }
func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) Neg() Money                      { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Mul(q Quantity) Money            { return Money{value: m.value.Mul(q.decimal()), cur: m.cur} }
func (m Money) Div(q Quantity) Money            { return Money{value: m.value.Div(q.decimal()), cur: m.cur} }
func (m Money) Ratio(n Money) decimal.Decimal   { return m.value.Div(n.value) }
func (m Money) SameCurrency(n Money) bool       { return m.cur == "" || n.cur == "" || m.cur == n.cur }
func (m Money) Round() Money                    { return Money{value: m.value.Round(int32(m.currency().Fraction)), cur: m.cur} }
func (m Money) InCurrency(currency string) bool { return m.cur == strings.ToUpper(currency) }

// Add returns m+n. The "" currency is weak: it takes the other operand's currency.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }

// Sub returns m-n.
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + " != " + b.cur)
	}
	return a.cur
}

// MarshalJSON writes {"amount": "1.5", "currency": "USD"}.
func (m Money) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("amount", m.value)
	w.Optional("currency", m.cur)
	return w.MarshalJSON()
}

// UnmarshalJSON reads the object form, or a bare number in the default currency.
func (m *Money) UnmarshalJSON(data []byte) error {
	var obj struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		var v decimal.Decimal
		if nerr := v.UnmarshalJSON(data); nerr != nil {
			return fmt.Errorf("invalid money %s: %w", data, err)
		}
		obj.Amount, obj.Currency = v, ""
	}
	m.value, m.cur = obj.Amount, strings.ToUpper(obj.Currency)
	return nil
}
