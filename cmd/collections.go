package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cardvault"
	"github.com/google/subcommands"
)

type collectionsCmd struct {
	create string
	delete string
}

func (*collectionsCmd) Name() string     { return "collections" }
func (*collectionsCmd) Synopsis() string { return "list, create or delete collections" }
func (*collectionsCmd) Usage() string {
	return `cv collections [-create <name> | -delete <name>]

  Lists the collections of the store with their number of copies.
`
}

func (c *collectionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.create, "create", "", "Create an empty collection")
	f.StringVar(&c.delete, "delete", "", "Delete a collection and all its transactions")
}

func (c *collectionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.create != "" && c.delete != "" {
		fmt.Fprintln(os.Stderr, "Error: -create and -delete cannot be used together")
		return subcommands.ExitUsageError
	}
	st, err := OpenStore(ctx)
	if err != nil {
		return failed("%v", err)
	}
	defer st.Close()

	switch {
	case c.create != "":
		if err := cardvault.ValidName(c.create); err != nil {
			return failed("%v", err)
		}
		if err := st.Create(ctx, c.create); err != nil {
			return failed("%v", err)
		}
		fmt.Fprintf(os.Stderr, "Created collection %q\n", c.create)
		return subcommands.ExitSuccess
	case c.delete != "":
		if err := st.Delete(ctx, c.delete); err != nil {
			return failed("%v", err)
		}
		fmt.Fprintf(os.Stderr, "Deleted collection %q\n", c.delete)
		return subcommands.ExitSuccess
	}

	names, err := st.Collections(ctx)
	if err != nil {
		return failed("%v", err)
	}
	today := cardvault.Today()
	for _, name := range names {
		l, err := st.Load(ctx, name)
		if err != nil {
			return failed("%v", err)
		}
		s := l.NewSnapshot(today)
		fmt.Printf("%s\t%s copies\t%s\n", name, s.Copies(), s.TotalValue(Currency()))
	}
	return subcommands.ExitSuccess
}
