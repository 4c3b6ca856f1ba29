package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type fmtCmd struct {
	collection string
}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats collections into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `cv fmt [-c <collection>]

  Validates and formats collections. This command reads all transactions,
  validates them, applies available quick-fixes (like default conditions),
  sorts them by date, and writes them back in canonical form.
  By default, it formats all collections. Use -c to specify a single one.
`
}

func (p *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.collection, "c", "", "Collection to format. Formats all by default.")
}

func (p *fmtCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := OpenStore(ctx)
	if err != nil {
		return failed("%v", err)
	}
	defer st.Close()

	names := []string{p.collection}
	if p.collection == "" {
		if names, err = st.Collections(ctx); err != nil {
			return failed("could not list collections: %v", err)
		}
	}
	if len(names) == 0 {
		fmt.Fprintf(os.Stderr, "Warning: no collection found to format.\n")
		return subcommands.ExitSuccess
	}

	status := subcommands.ExitSuccess
	for _, name := range names {
		l, err := st.Load(ctx, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading collection %q: %v\n", name, err)
			status = subcommands.ExitFailure
			continue
		}
		formatted, err := l.Fmt()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting collection %q: %v\n", name, err)
			status = subcommands.ExitFailure
			continue
		}
		if err := st.Save(ctx, formatted); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving collection %q: %v\n", name, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Fprintf(os.Stderr, "Formatted collection %q.\n", name)
	}
	return status
}
