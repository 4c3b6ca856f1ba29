package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/renderer"
	"github.com/google/subcommands"
)

// holdingCmd holds the flags for the 'holding' subcommand.
type holdingCmd struct {
	collection string
	date       string
	byName     bool
	update     bool
	json       bool
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "display the copies held on a date" }
func (*holdingCmd) Usage() string {
	return `cv holding [-c <collection>] [-d <date>] [-n] [-u]

  Displays the copies held on a date, with their cost, price and value.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collection, "c", "", "Collection. Defaults to the only collection.")
	f.StringVar(&c.date, "d", "today", "Date for the holdings report. See 'cv topic dates'.")
	f.BoolVar(&c.byName, "n", false, "Group the printings of a card")
	f.BoolVar(&c.update, "u", false, "Update today's prices before the report")
	f.BoolVar(&c.json, "json", false, "Print the report as JSON")
}

func (c *holdingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDate(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	st, err := OpenStore(ctx)
	if err != nil {
		return failed("%v", err)
	}
	defer st.Close()
	ledger, err := LoadCollection(ctx, st, c.collection)
	if err != nil {
		return failed("could not load collection: %v", err)
	}

	if c.update && on.IsToday() {
		if err := updateLedger(ctx, ledger, on); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		if err := st.Save(ctx, ledger); err != nil {
			return failed("could not save prices: %v", err)
		}
	}

	report := renderer.NewHolding(ledger.NewSnapshot(on), Currency())
	report.ByName = c.byName
	if c.json {
		return printJSON(report)
	}
	printMarkdown(renderer.RenderHolding(report))
	return subcommands.ExitSuccess
}

// updateLedger records the prices of the day in l.
func updateLedger(ctx context.Context, l *cardvault.Ledger, on cardvault.Date) error {
	p, err := NewProviders()
	if err != nil {
		return err
	}
	up, err := cardvault.UpdatePrices(ctx, l, on, Currency(), p.Sources()...)
	fmt.Fprintf(os.Stderr, "Priced %d printings of %s\n", len(up.Prices), l.Name())
	return err
}
