package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cardvault"
	"github.com/google/subcommands"
)

type txCmd struct {
	collection string
	start      string
	date       string
	key        string
	command    string
	head       int
	tail       int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list the transactions of a collection" }
func (*txCmd) Usage() string {
	return `cv tx [-s <start_date>] [-d <end_date>] [-k <key>] [-t <command>] [-head <n>] [-tail <n>] [-c <collection>]

  Prints the transactions of a collection as JSONL, with options for filtering
  and limiting the output.
`
}

func (p *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.collection, "c", "", "Collection. Defaults to the only collection.")
	f.StringVar(&p.start, "s", "", "The first day of the range.")
	f.StringVar(&p.date, "d", "", "The last day of the range.")
	f.StringVar(&p.key, "k", "", "Only the transactions of a printing.")
	f.StringVar(&p.command, "t", "", "Only the transactions of a command (acquire, dispose, ...).")
	f.IntVar(&p.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&p.tail, "tail", 0, "Show only the last N transactions.")
}

func (p *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.head > 0 && p.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
	}
	var filters []func(cardvault.Transaction) bool
	for _, bound := range []struct {
		value string
		keep  func(on, d cardvault.Date) bool
	}{
		{p.start, func(on, d cardvault.Date) bool { return !on.Before(d) }},
		{p.date, func(on, d cardvault.Date) bool { return !on.After(d) }},
	} {
		if bound.value == "" {
			continue
		}
		d, err := parseDate(bound.value)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitUsageError
		}
		keep := bound.keep
		filters = append(filters, func(tx cardvault.Transaction) bool { return keep(tx.When(), d) })
	}
	if p.key != "" {
		key, err := cardvault.ParseKey(p.key)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitUsageError
		}
		filters = append(filters, cardvault.ByKey(key))
	}
	if p.command != "" {
		filters = append(filters, cardvault.ByCommand(cardvault.CommandType(strings.ToLower(p.command))))
	}

	st, err := OpenStore(ctx)
	if err != nil {
		return failed("%v", err)
	}
	defer st.Close()
	ledger, err := LoadCollection(ctx, st, p.collection)
	if err != nil {
		return failed("%v", err)
	}

	var transactions []cardvault.Transaction
	for _, tx := range ledger.Transactions(filters...) {
		transactions = append(transactions, tx)
	}
	if p.head > 0 && len(transactions) > p.head {
		transactions = transactions[:p.head]
	}
	if p.tail > 0 && len(transactions) > p.tail {
		transactions = transactions[len(transactions)-p.tail:]
	}
	for _, tx := range transactions {
		line, err := cardvault.EncodeTransaction(tx)
		if err != nil {
			return failed("%v", err)
		}
		fmt.Println(string(line))
	}
	return subcommands.ExitSuccess
}
