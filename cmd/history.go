package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/justtcg"
	"github.com/etnz/cardvault/renderer"
	"github.com/google/subcommands"
)

type historyCmd struct {
	collection string
	key        string
	from       string
	to         string
	fetch      bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the price history of a printing" }
func (*historyCmd) Usage() string {
	return `cv history -k <key> [-from <date>] [-to <date>] [-fetch] [-c <collection>]

  Displays the recorded prices of a printing, with a sparkline and the trend.
  -fetch first records the price history known by JustTCG.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collection, "c", "", "Collection. Defaults to the only collection.")
	f.StringVar(&c.key, "k", "", "Printing key")
	f.StringVar(&c.from, "from", "", "First day of the history")
	f.StringVar(&c.to, "to", "", "Last day of the history")
	f.BoolVar(&c.fetch, "fetch", false, "Record the JustTCG price history first")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.key == "" && f.NArg() == 1 {
		c.key = f.Arg(0)
	}
	key, err := cardvault.ParseKey(c.key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	var from, to cardvault.Date
	for _, d := range []struct {
		flag string
		out  *cardvault.Date
	}{{c.from, &from}, {c.to, &to}} {
		if d.flag == "" {
			continue
		}
		if *d.out, err = parseDate(d.flag); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitUsageError
		}
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
	p, ok := ledger.Printing(key)
	if !ok {
		return failed("printing %s is not in %s", key, ledger.Name())
	}

	if c.fetch {
		n, err := fetchHistory(ctx, ledger, p)
		if err != nil {
			return failed("could not fetch history: %v", err)
		}
		if n > 0 {
			if err := st.Save(ctx, ledger); err != nil {
				return failed("could not save prices: %v", err)
			}
		}
		fmt.Fprintf(os.Stderr, "Recorded %d prices\n", n)
	}

	printMarkdown(renderer.RenderHistory(renderer.NewHistory(ledger, key, Currency(), from, to)))
	return subcommands.ExitSuccess
}

// fetchHistory merges the JustTCG history of p into l.
func fetchHistory(ctx context.Context, l *cardvault.Ledger, p cardvault.Printing) (int, error) {
	providers, err := NewProviders()
	if err != nil {
		return 0, err
	}
	if providers.JustTCG == nil {
		return 0, justtcg.ErrNoKey
	}
	h, err := justtcg.Source{Client: providers.JustTCG}.History(ctx, p)
	if err != nil {
		return 0, err
	}
	return cardvault.MergeHistory(l, p.Key(), "USD", cardvault.RefJustTCG, h), nil
}
