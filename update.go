package cardvault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrNoQuote is returned by a PriceSource that has no price for a printing.
var ErrNoQuote = errors.New("no quote")

// PriceSource quotes the market price of a printing.
type PriceSource interface {
	Name() string
	Quote(ctx context.Context, p Printing) (Money, error)
}

// MaxConcurrentQuotes bounds the number of printings quoted at the same time.
var MaxConcurrentQuotes = 8

// UpdatePrices quotes every printing held on day 'on' and records the prices
// found as a single update-price transaction in currency. Sources are tried in
// order, the first one with a price wins. A printing no source could price is
// reported in the returned error, the others are still recorded.
// It returns the recorded transaction, with no prices if nothing was found.
func UpdatePrices(ctx context.Context, l *Ledger, on Date, currency string, sources ...PriceSource) (UpdatePrice, error) {
	currency = strings.ToUpper(currency)
	if currency == "" {
		currency = DefaultCurrency
	}
	up := UpdatePrice{
		baseCmd:  baseCmd{Command: CmdUpdatePrice, Date: on},
		Currency: currency,
		Prices:   make(map[PrintingKey]decimal.Decimal),
	}
	if len(sources) == 0 {
		return up, errors.New("no price source configured")
	}

	var (
		mu      sync.Mutex
		errs    []error
		used    = make(map[string]bool)
		keys    = l.NewSnapshot(on).Keys()
		g, gctx = errgroup.WithContext(ctx)
	)
	g.SetLimit(MaxConcurrentQuotes)
	for _, key := range keys {
		p, ok := l.Printing(key)
		if !ok {
			continue
		}
		g.Go(func() error {
			price, source, err := quote(gctx, p, currency, sources)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return nil
			}
			up.Prices[key] = price.Decimal()
			used[source] = true
			return nil
		})
	}
	// goroutines never fail the group, quote errors are collected instead.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return up, err
	}
	if len(used) == 1 {
		for name := range used {
			up.Source = name
		}
	}
	if len(up.Prices) > 0 {
		l.AppendOrUpdate(up)
	}
	return up, errors.Join(errs...)
}

func quote(ctx context.Context, p Printing, currency string, sources []PriceSource) (Money, string, error) {
	var errs []error
	for _, src := range sources {
		price, err := src.Quote(ctx, p)
		if err != nil {
			if !errors.Is(err, ErrNoQuote) {
				errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			}
			continue
		}
		if !price.InCurrency(currency) {
			errs = append(errs, fmt.Errorf("%s: quoted in %s, want %s", src.Name(), price.Currency(), currency))
			continue
		}
		return price, src.Name(), nil
	}
	if len(errs) == 0 {
		return Money{}, "", ErrNoQuote
	}
	return Money{}, "", errors.Join(errs...)
}
