package cardvault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInsufficient is returned when a transaction needs more copies than held.
var ErrInsufficient = errors.New("insufficient copies")

// Validate checks tx against the ledger state on the transaction date and
// returns a copy with quick fixes applied:
//   - a zero date is today,
//   - a missing condition is near mint,
//   - a dispose of zero copies disposes all copies held in that condition,
//   - a missing currency is the default currency.
func (l *Ledger) Validate(tx Transaction) (Transaction, error) {
	switch v := tx.(type) {
	case Declare:
		err := v.validate()
		return v, err
	case Acquire:
		err := v.validate(l)
		return v, err
	case Dispose:
		err := v.validate(l)
		return v, err
	case UpdatePrice:
		err := v.validate()
		return v, err
	case List:
		err := v.validate(l)
		return v, err
	case Delist:
		err := v.validate(l)
		return v, err
	}
	return tx, fmt.Errorf("unsupported transaction %T", tx)
}

func (t *Declare) validate() error {
	t.baseCmd.validate()
	p := &t.Printing
	var errs []error
	if p.Game == "" {
		errs = append(errs, errors.New("game is missing"))
	}
	if strings.TrimSpace(p.Set) == "" {
		errs = append(errs, errors.New("set is missing"))
	}
	if strings.TrimSpace(p.Number) == "" {
		errs = append(errs, errors.New("collector number is missing"))
	}
	if p.Finish == "" {
		p.Finish = Normal
	}
	if p.Language == "" {
		p.Language = "en"
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid declare: %w", err)
	}
	return nil
}

// validate checks the shared fields of transactions on copies.
func (t *copyCmd) validate(l *Ledger) error {
	t.baseCmd.validate()
	if t.Key == "" {
		return fmt.Errorf("invalid %s: printing key is missing", t.Command)
	}
	key, err := ParseKey(string(t.Key))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", t.Command, err)
	}
	t.Key = key
	if _, declared := l.Printing(key); !declared {
		return fmt.Errorf("invalid %s: printing %q not declared in collection %q", t.Command, key, l.Name())
	}
	if t.Condition == "" {
		t.Condition = NearMint
	}
	cond, err := ParseCondition(string(t.Condition))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", t.Command, err)
	}
	t.Condition = cond
	if t.Quantity < 0 {
		return fmt.Errorf("invalid %s: negative quantity %d", t.Command, t.Quantity)
	}
	return nil
}

func (t *Acquire) validate(l *Ledger) error {
	if err := t.copyCmd.validate(l); err != nil {
		return err
	}
	if t.Quantity == 0 {
		return fmt.Errorf("invalid acquire: quantity must be positive")
	}
	if t.Cost.IsNegative() {
		return fmt.Errorf("invalid acquire: negative cost %v", t.Cost)
	}
	if !t.Cost.IsZero() && t.Cost.Currency() == "" {
		t.Cost = M(t.Cost.Decimal(), DefaultCurrency)
	}
	if t.Cost.IsZero() {
		return nil
	}
	s := l.NewSnapshot(t.Date)
	if basis := s.CostBasis(t.Key); basis.Currency() != "" && !basis.SameCurrency(t.Cost) {
		return fmt.Errorf("invalid acquire: cost in %s but %s was bought in %s", t.Cost.Currency(), t.Key, basis.Currency())
	}
	return nil
}

func (t *Dispose) validate(l *Ledger) error {
	if err := t.copyCmd.validate(l); err != nil {
		return err
	}
	if t.Proceeds.IsNegative() {
		return fmt.Errorf("invalid dispose: negative proceeds %v", t.Proceeds)
	}
	if !t.Proceeds.IsZero() && t.Proceeds.Currency() == "" {
		t.Proceeds = M(t.Proceeds.Decimal(), DefaultCurrency)
	}
	s := l.NewSnapshot(t.Date)
	if p := s.Proceeds(t.Key); !t.Proceeds.IsZero() && !p.SameCurrency(t.Proceeds) {
		return fmt.Errorf("invalid dispose: proceeds in %s but %s was sold in %s", t.Proceeds.Currency(), t.Key, p.Currency())
	}
	held := s.PositionBy(t.Key, t.Condition)
	if t.Quantity == 0 {
		// dispose all
		t.Quantity = held
	}
	if t.Quantity == 0 {
		return fmt.Errorf("invalid dispose: no %s copy of %s held on %s", t.Condition, t.Key, t.Date)
	}
	if t.Quantity > held {
		return fmt.Errorf("invalid dispose of %d %s %s, %d held: %w", t.Quantity, t.Condition, t.Key, held, ErrInsufficient)
	}
	return nil
}

func (t *UpdatePrice) validate() error {
	t.baseCmd.validate()
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	t.Currency = strings.ToUpper(t.Currency)
	if len(t.Currency) != 3 {
		return fmt.Errorf("invalid update-price: currency %q is not an ISO code", t.Currency)
	}
	prices := make(map[PrintingKey]decimal.Decimal, len(t.Prices))
	for key, price := range t.Prices {
		nk, err := ParseKey(string(key))
		if err != nil {
			return fmt.Errorf("invalid update-price: %w", err)
		}
		if price.IsNegative() {
			return fmt.Errorf("invalid update-price: negative price %s for %s", price, key)
		}
		prices[nk] = price
	}
	t.Prices = prices
	return nil
}

func (t *List) validate(l *Ledger) error {
	if err := t.copyCmd.validate(l); err != nil {
		return err
	}
	if t.Listing == "" {
		return errors.New("invalid list: listing id is missing")
	}
	if t.Quantity == 0 {
		return errors.New("invalid list: quantity must be positive")
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("invalid list: price must be positive, got %v", t.Price)
	}
	if t.Price.Currency() == "" {
		t.Price = M(t.Price.Decimal(), DefaultCurrency)
	}
	s := l.NewSnapshot(t.Date)
	if _, exists := s.Listing(t.Listing); exists {
		return fmt.Errorf("invalid list: listing %q already exists", t.Listing)
	}
	free := s.PositionBy(t.Key, t.Condition) - s.ListedBy(t.Key, t.Condition)
	if t.Quantity > free {
		return fmt.Errorf("invalid list of %d %s %s, %d available: %w", t.Quantity, t.Condition, t.Key, free, ErrInsufficient)
	}
	return nil
}

func (t *Delist) validate(l *Ledger) error {
	t.baseCmd.validate()
	if t.Listing == "" {
		return errors.New("invalid delist: listing id is missing")
	}
	if lst, ok := l.NewSnapshot(t.Date).Listing(t.Listing); !ok || !lst.Open {
		return fmt.Errorf("invalid delist: no open listing %q on %s", t.Listing, t.Date)
	}
	return nil
}

// Apply validates and appends txs in order, so that each transaction sees the
// previous ones. It stops at the first invalid transaction and returns the
// fixed transactions appended so far.
func (l *Ledger) Apply(txs ...Transaction) ([]Transaction, error) {
	fixed := make([]Transaction, 0, len(txs))
	for i, tx := range txs {
		v, err := l.Validate(tx)
		if err != nil {
			return fixed, fmt.Errorf("transaction #%d: %w", i+1, err)
		}
		l.Append(v)
		fixed = append(fixed, v)
	}
	return fixed, nil
}
