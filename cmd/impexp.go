package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/cardvault"
	"github.com/google/subcommands"
)

type importCmd struct {
	collection string
	game       string
	date       string
	condition  string
	language   string
	dryRun     bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import copies from a CSV file" }
func (*importCmd) Usage() string {
	return `cv import [-c <collection>] [-game <game>] [-d <date>] <file.csv>|-

  Imports the copies of a CSV file. See 'cv topic import' for the columns.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collection, "c", "", "Collection. Defaults to the only collection.")
	f.StringVar(&c.game, "game", "", "Game of the rows without a game column")
	f.StringVar(&c.date, "d", "today", "Acquisition date of the rows without a date")
	f.StringVar(&c.condition, "cond", "", "Condition of the rows without a condition")
	f.StringVar(&c.language, "lang", "", "Language of the rows without a language")
	f.BoolVar(&c.dryRun, "n", false, "Print the transactions instead of recording them")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: one CSV file expected")
		return subcommands.ExitUsageError
	}
	day, err := parseDate(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	defaults := cardvault.ImportDefaults{
		Currency:  Currency(),
		Date:      day,
		Condition: cardvault.Condition(c.condition),
		Language:  c.language,
	}
	if c.game != "" {
		if defaults.Game, err = cardvault.ParseGame(c.game); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitUsageError
		}
	}

	var r io.Reader = os.Stdin
	if name := f.Arg(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return failed("%v", err)
		}
		defer file.Close()
		r = file
	}
	txs, err := cardvault.ImportCSV(r, defaults)
	if err != nil {
		return failed("%v", err)
	}

	if c.dryRun {
		for _, tx := range txs {
			line, err := cardvault.EncodeTransaction(tx)
			if err != nil {
				return failed("%v", err)
			}
			fmt.Println(string(line))
		}
		return subcommands.ExitSuccess
	}
	fixed, err := commit(ctx, c.collection, txs...)
	if err != nil {
		return failed("%v", err)
	}
	fmt.Fprintf(os.Stderr, "Imported %d transactions\n", len(fixed))
	return subcommands.ExitSuccess
}

type exportCmd struct {
	collection string
	date       string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the copies held as CSV" }
func (*exportCmd) Usage() string {
	return `cv export [-c <collection>] [-d <date>]

  Writes the copies held on a date as CSV on the standard output.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collection, "c", "", "Collection. Defaults to the only collection.")
	f.StringVar(&c.date, "d", "today", "Date of the holdings")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := parseDate(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	st, err := OpenStore(ctx)
	if err != nil {
		return failed("%v", err)
	}
	defer st.Close()
	l, err := LoadCollection(ctx, st, c.collection)
	if err != nil {
		return failed("%v", err)
	}
	if err := cardvault.ExportCSV(os.Stdout, l.NewSnapshot(day)); err != nil {
		return failed("%v", err)
	}
	return subcommands.ExitSuccess
}
