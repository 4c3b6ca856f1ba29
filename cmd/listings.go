package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/cardtrader"
	"github.com/etnz/cardvault/renderer"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

// --- List Command ---

type listCmd struct {
	copyFlags
	local bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "offer copies for sale" }
func (*listCmd) Usage() string {
	return `cv list -k <key> -p <unit price> [-q <quantity>] [-cond <condition>] [-local] [-c <collection>]

  Offers copies for sale. Printings with a CardTrader blueprint are put on
  sale on CardTrader when a token is configured, unless -local.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	c.copyFlags.setFlags(f, "Unit price in the reporting currency")
	f.BoolVar(&c.local, "local", false, "Only record the listing")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.key == "" && f.NArg() == 1 {
		c.key = f.Arg(0)
	}
	day, key, cond, price, err := c.parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	if !price.IsPositive() {
		fmt.Fprintln(os.Stderr, "Error: a positive price (-p) is required")
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

	tx := cardvault.NewList(day, uuid.NewString(), "local", key, cond, cardvault.Quantity(c.quantity), price)
	tx.Memo = c.memo
	checked, err := l.Validate(tx)
	if err != nil {
		return failed("%v", err)
	}
	tx = checked.(cardvault.List)

	var market *cardtrader.Client
	if !c.local {
		p, err := NewProviders()
		if err != nil {
			return failed("%v", err)
		}
		if market = p.CardTrader; market != nil {
			printing, _ := l.Printing(key)
			if tx, err = market.Publish(ctx, printing, tx); err != nil {
				return failed("%v", err)
			}
		}
	}
	if _, err := commitTo(ctx, st, l.Name(), tx); err != nil {
		if market != nil {
			if werr := market.Withdraw(ctx, cardvault.Listing{ID: tx.Listing, Marketplace: tx.Marketplace}); werr != nil {
				return failed("%v, and listing %s is still for sale: %v", err, tx.Listing, werr)
			}
		}
		return failed("%v", err)
	}
	fmt.Fprintf(os.Stderr, "Listed %d %s %s on %s as %s\n", c.quantity, cond, key, tx.Marketplace, tx.Listing)
	return subcommands.ExitSuccess
}

// --- Delist Command ---

type delistCmd struct {
	collection string
	date       string
	memo       string
}

func (*delistCmd) Name() string     { return "delist" }
func (*delistCmd) Synopsis() string { return "close a listing" }
func (*delistCmd) Usage() string {
	return `cv delist [-c <collection>] [-d <date>] <listing id>

  Closes a listing. CardTrader products are removed from sale.
`
}

func (c *delistCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collection, "c", "", "Collection. Defaults to the only collection.")
	f.StringVar(&c.date, "d", "today", "Date the listing closed")
	f.StringVar(&c.memo, "m", "", "An optional note, e.g. sold")
}

func (c *delistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: one listing id expected")
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)
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
	lst, ok := l.NewSnapshot(day).Listing(id)
	if !ok || !lst.Open {
		return failed("no open listing %q in %s", id, l.Name())
	}

	p, err := NewProviders()
	if err != nil {
		return failed("%v", err)
	}
	if p.CardTrader != nil {
		if err := p.CardTrader.Withdraw(ctx, lst); err != nil {
			return failed("%v", err)
		}
	}
	tx := cardvault.NewDelist(day, id)
	tx.Memo = c.memo
	if _, err := commitTo(ctx, st, l.Name(), tx); err != nil {
		return failed("%v", err)
	}
	fmt.Fprintf(os.Stderr, "Closed listing %s\n", id)
	return subcommands.ExitSuccess
}

// --- Listings Command ---

type listingsCmd struct {
	collection string
	date       string
	all        bool
}

func (*listingsCmd) Name() string     { return "listings" }
func (*listingsCmd) Synopsis() string { return "display the listings of a collection" }
func (*listingsCmd) Usage() string {
	return `cv listings [-a] [-c <collection>] [-d <date>]

  Displays the open listings, -a includes the closed ones.
`
}

func (c *listingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collection, "c", "", "Collection. Defaults to the only collection.")
	f.StringVar(&c.date, "d", "today", "Date of the report")
	f.BoolVar(&c.all, "a", false, "Include closed listings")
}

func (c *listingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	printMarkdown(renderer.RenderListings(renderer.NewListings(l.NewSnapshot(day), c.all)))
	return subcommands.ExitSuccess
}
