package cardvault

import (
	"iter"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Ledger is a collection: a named, chronological list of transactions.
type Ledger struct {
	name         string
	transactions []Transaction
	printings    map[PrintingKey]Printing
}

// NewLedger returns an empty ledger with a name.
func NewLedger(name string) *Ledger {
	return &Ledger{
		name:      name,
		printings: make(map[PrintingKey]Printing),
	}
}

// Name returns the collection name.
func (l *Ledger) Name() string { return l.name }

// Rename changes the collection name.
func (l *Ledger) Rename(name string) { l.name = name }

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.transactions) }

// Printing returns the declared printing for key.
func (l *Ledger) Printing(key PrintingKey) (Printing, bool) {
	p, ok := l.printings[key]
	return p, ok
}

// Printings returns declared printings sorted by key.
func (l *Ledger) Printings() iter.Seq[Printing] {
	return func(yield func(Printing) bool) {
		for _, k := range slices.Sorted(maps.Keys(l.printings)) {
			if !yield(l.printings[k]) {
				return
			}
		}
	}
}

// Append appends transactions to this ledger and maintains the chronological order of transactions.
func (l *Ledger) Append(txs ...Transaction) {
	l.transactions = append(l.transactions, txs...)
	l.processTx(txs...)
	l.stableSort()
}

// AppendOrUpdate appends transactions, except for UpdatePrice: if an update for
// the same day and currency already exists, prices are merged into it.
func (l *Ledger) AppendOrUpdate(txs ...Transaction) {
	for _, tx := range txs {
		newTx, ok := tx.(UpdatePrice)
		if !ok {
			l.Append(tx)
			continue
		}
		replaced := false
		for i, existing := range l.transactions {
			oldTx, ok := existing.(UpdatePrice)
			if !ok || oldTx.When() != newTx.When() || oldTx.Currency != newTx.Currency {
				continue
			}
			prices := maps.Clone(oldTx.Prices)
			if prices == nil {
				prices = make(map[PrintingKey]decimal.Decimal)
			}
			maps.Copy(prices, newTx.Prices)
			oldTx.Prices = prices
			l.transactions[i] = oldTx
			replaced = true
			break
		}
		if !replaced {
			l.Append(newTx)
		}
	}
}

func (l *Ledger) processTx(txs ...Transaction) {
	for _, tx := range txs {
		if v, ok := tx.(Declare); ok {
			key := v.Printing.Key()
			if old, exists := l.printings[key]; exists {
				l.printings[key] = v.Printing.merge(old)
			} else {
				l.printings[key] = v.Printing
			}
		}
	}
}

// Transactions returns an iterator over transactions, in chronological order,
// that match at least one filter. No filter matches everything.
func (l *Ledger) Transactions(filters ...func(Transaction) bool) iter.Seq2[int, Transaction] {
	return func(yield func(int, Transaction) bool) {
		for i, tx := range l.transactions {
			accept := len(filters) == 0
			for _, filter := range filters {
				if filter(tx) {
					accept = true
					break
				}
			}
			if !accept {
				continue
			}
			if !yield(i, tx) {
				return
			}
		}
	}
}

// ByKey selects transactions about a printing.
func ByKey(key PrintingKey) func(Transaction) bool {
	return func(tx Transaction) bool {
		switch v := tx.(type) {
		case Declare:
			return v.Printing.Key() == key
		case Acquire:
			return v.Key == key
		case Dispose:
			return v.Key == key
		case List:
			return v.Key == key
		case UpdatePrice:
			_, ok := v.Prices[key]
			return ok
		}
		return false
	}
}

// ByCommand selects transactions of a given type.
func ByCommand(cmd CommandType) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.What() == cmd }
}

// ByName selects transactions about printings whose name contains s (case insensitive).
func (l *Ledger) ByName(s string) func(Transaction) bool {
	s = strings.ToLower(s)
	keys := make(map[PrintingKey]bool)
	for k, p := range l.printings {
		if strings.Contains(strings.ToLower(p.Name), s) {
			keys[k] = true
		}
	}
	return func(tx Transaction) bool {
		for k := range keys {
			if ByKey(k)(tx) {
				return true
			}
		}
		return false
	}
}

// stableSort sorts the ledger by transaction date. The sort is stable, meaning
// transactions on the same day maintain their original relative order.
func (l *Ledger) stableSort() {
	sort.SliceStable(l.transactions, func(i, j int) bool {
		return l.transactions[i].When().Before(l.transactions[j].When())
	})
}

// OldestTransactionDate returns the date of the first transaction, or the zero Date.
func (l *Ledger) OldestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[0].When()
}

// NewestTransactionDate returns the date of the last transaction, or the zero Date.
func (l *Ledger) NewestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[len(l.transactions)-1].When()
}

// Fmt validates every transaction in order and returns a new canonical ledger.
func (l *Ledger) Fmt() (*Ledger, error) {
	out := NewLedger(l.name)
	for _, tx := range l.transactions {
		fixed, err := out.Validate(tx)
		if err != nil {
			return nil, err
		}
		out.AppendOrUpdate(fixed)
	}
	return out, nil
}
