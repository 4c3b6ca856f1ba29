package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cardvault"
	"github.com/google/subcommands"
)

type updateCmd struct {
	collection string
}

func (*updateCmd) Name() string { return "update" }
func (*updateCmd) Synopsis() string {
	return "record today's prices of the copies held"
}
func (*updateCmd) Usage() string {
	return `cv update [-c <collection>]

  Quotes every printing held from CardTrader, JustTCG and Lorcast, in this
  order, and records the prices. All collections are updated by default.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collection, "c", "", "Collection to update. Updates all by default.")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "Error: no arguments expected")
		return subcommands.ExitUsageError
	}
	st, err := OpenStore(ctx)
	if err != nil {
		return failed("%v", err)
	}
	defer st.Close()

	names := []string{c.collection}
	if c.collection == "" {
		if names, err = st.Collections(ctx); err != nil {
			return failed("%v", err)
		}
	}
	today := cardvault.Today()
	status := subcommands.ExitSuccess
	for _, name := range names {
		l, err := st.Load(ctx, name)
		if err != nil {
			return failed("%v", err)
		}
		if err := updateLedger(ctx, l, today); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", name, err)
			status = subcommands.ExitFailure
		}
		if err := st.Save(ctx, l); err != nil {
			return failed("failed to save %s: %v", name, err)
		}
	}
	return status
}
