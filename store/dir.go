package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/etnz/cardvault"
)

// Dir stores each collection in a JSONL file of a folder. Nested names are
// sub folders.
type Dir struct {
	Path string
}

// NewDir returns a folder store.
func NewDir(path string) *Dir { return &Dir{Path: path} }

func (d *Dir) Collections(ctx context.Context) ([]string, error) {
	return cardvault.LedgerNames(d.Path)
}

func (d *Dir) exists(name string) (bool, error) {
	_, err := os.Stat(cardvault.LedgerPath(d.Path, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (d *Dir) Create(ctx context.Context, name string) error {
	if err := cardvault.ValidName(name); err != nil {
		return err
	}
	ok, err := d.exists(name)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%q: %w", name, ErrExists)
	}
	return cardvault.SaveLedger(d.Path, cardvault.NewLedger(name))
}

func (d *Dir) Load(ctx context.Context, name string) (*cardvault.Ledger, error) {
	if err := cardvault.ValidName(name); err != nil {
		return nil, err
	}
	ok, err := d.exists(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return cardvault.FindLedger(d.Path, name)
}

func (d *Dir) Append(ctx context.Context, name string, txs ...cardvault.Transaction) error {
	l, err := d.Load(ctx, name)
	if err != nil {
		return err
	}
	l.Append(txs...)
	return cardvault.SaveLedger(d.Path, l)
}

func (d *Dir) Save(ctx context.Context, l *cardvault.Ledger) error {
	return cardvault.SaveLedger(d.Path, l)
}

func (d *Dir) Delete(ctx context.Context, name string) error {
	if err := cardvault.ValidName(name); err != nil {
		return err
	}
	err := os.Remove(cardvault.LedgerPath(d.Path, name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return err
}

func (d *Dir) Close() error { return nil }
