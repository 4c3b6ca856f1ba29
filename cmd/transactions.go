package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/store"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// commit validates transactions and appends them to a collection. It returns
// the transactions as recorded.
func commit(ctx context.Context, name string, txs ...cardvault.Transaction) ([]cardvault.Transaction, error) {
	st, err := OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return commitTo(ctx, st, name, txs...)
}

func commitTo(ctx context.Context, st store.Store, name string, txs ...cardvault.Transaction) ([]cardvault.Transaction, error) {
	name, err := collectionName(ctx, st, name)
	if err != nil {
		return nil, err
	}
	l, err := st.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	fixed, err := l.Apply(txs...)
	if err != nil {
		return nil, err
	}
	if err := st.Append(ctx, name, fixed...); err != nil {
		return nil, err
	}
	return fixed, nil
}

// parseMoney parses an amount in the reporting currency. Empty is zero.
func parseMoney(s string) (cardvault.Money, error) {
	if s == "" {
		return cardvault.Money{}, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return cardvault.Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return cardvault.M(v, Currency()), nil
}

// copyFlags are the flags shared by add and remove.
type copyFlags struct {
	collection string
	date       string
	key        string
	condition  string
	quantity   int
	price      string
	memo       string
}

func (c *copyFlags) setFlags(f *flag.FlagSet, price string) {
	f.StringVar(&c.collection, "c", "", "Collection. Defaults to the only collection.")
	f.StringVar(&c.date, "d", "today", "Transaction date. See 'cv topic dates'.")
	f.StringVar(&c.key, "k", "", "Printing key, see 'cv topic keys'")
	f.StringVar(&c.condition, "cond", "NM", "Condition: NM, LP, MP, HP or DMG")
	f.IntVar(&c.quantity, "q", 1, "Number of copies")
	f.StringVar(&c.price, "p", "", price)
	f.StringVar(&c.memo, "m", "", "An optional note")
}

func (c *copyFlags) parse() (day cardvault.Date, key cardvault.PrintingKey, cond cardvault.Condition, price cardvault.Money, err error) {
	if day, err = parseDate(c.date); err != nil {
		return
	}
	if key, err = cardvault.ParseKey(c.key); err != nil {
		return
	}
	if cond, err = cardvault.ParseCondition(c.condition); err != nil {
		return
	}
	if c.quantity <= 0 {
		err = errors.New("quantity must be positive")
		return
	}
	price, err = parseMoney(c.price)
	return
}

// --- Add Command ---

type addCmd struct {
	copyFlags
	name    string
	setName string
	rarity  string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add copies of a printing to a collection" }
func (*addCmd) Usage() string {
	return `cv add -k <key> [-q <quantity>] [-cond <condition>] [-p <unit cost>] [-c <collection>] [-d <date>]

  Records the acquisition of copies. A printing seen for the first time is
  declared: Lorcana printings are looked up on Lorcast, others need -name.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	c.copyFlags.setFlags(f, "Unit cost in the reporting currency")
	f.StringVar(&c.name, "name", "", "Card name, to declare a printing missing from catalogs")
	f.StringVar(&c.setName, "set-name", "", "Set name, to declare a printing")
	f.StringVar(&c.rarity, "rarity", "", "Rarity, to declare a printing")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.key == "" && f.NArg() == 1 {
		c.key = f.Arg(0)
	}
	day, key, cond, cost, err := c.parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	st, err := OpenStore(ctx)
	if err != nil {
		return failed("%v", err)
	}
	defer st.Close()
	name, err := collectionName(ctx, st, c.collection)
	if err != nil {
		return failed("%v", err)
	}
	l, err := st.Load(ctx, name)
	if err != nil {
		return failed("%v", err)
	}

	var txs []cardvault.Transaction
	if _, ok := l.Printing(key); !ok {
		p, err := c.lookup(ctx, key)
		if err != nil {
			return failed("%v", err)
		}
		txs = append(txs, cardvault.NewDeclare(day, p))
	}
	acquire := cardvault.NewAcquire(day, key, cond, cardvault.Quantity(c.quantity), cost)
	acquire.Memo = c.memo
	txs = append(txs, acquire)

	if _, err := commitTo(ctx, st, name, txs...); err != nil {
		return failed("%v", err)
	}
	fmt.Fprintf(os.Stderr, "Added %d %s %s to %s\n", c.quantity, cond, key, name)
	return subcommands.ExitSuccess
}

// lookup finds the printing of key in a catalog, or builds it from flags.
func (c *addCmd) lookup(ctx context.Context, key cardvault.PrintingKey) (cardvault.Printing, error) {
	if c.name != "" {
		return cardvault.Printing{
			Game:     key.Game(),
			Set:      key.Set(),
			Number:   key.Number(),
			Finish:   key.Finish(),
			Language: key.Language(),
			Name:     c.name,
			SetName:  c.setName,
			Rarity:   c.rarity,
		}, nil
	}
	if key.Game() != cardvault.Lorcana {
		return cardvault.Printing{}, fmt.Errorf("printing %s is not declared yet, give its -name", key)
	}
	p, err := NewProviders()
	if err != nil {
		return cardvault.Printing{}, err
	}
	card, err := p.Lorcast.Card(ctx, key.Set(), key.Number())
	if err != nil {
		return cardvault.Printing{}, err
	}
	return card.Printing(key.Finish()), nil
}

// --- Remove Command ---

type removeCmd struct {
	copyFlags
}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove copies of a printing, sold, traded or lost" }
func (*removeCmd) Usage() string {
	return `cv remove -k <key> [-q <quantity>] [-cond <condition>] [-p <unit proceeds>] [-c <collection>] [-d <date>]

  Records copies leaving the collection. Removing more copies than held fails.
`
}

func (c *removeCmd) SetFlags(f *flag.FlagSet) {
	c.copyFlags.setFlags(f, "Unit proceeds in the reporting currency")
}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.key == "" && f.NArg() == 1 {
		c.key = f.Arg(0)
	}
	day, key, cond, proceeds, err := c.parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	tx := cardvault.NewDispose(day, key, cond, cardvault.Quantity(c.quantity), proceeds)
	tx.Memo = c.memo
	if _, err := commit(ctx, c.collection, tx); err != nil {
		return failed("%v", err)
	}
	fmt.Fprintf(os.Stderr, "Removed %d %s %s\n", c.quantity, cond, key)
	return subcommands.ExitSuccess
}
