// Package store persists collections, either as JSONL files in a folder or
// in a SQL database (sqlite or postgres).
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/cardvault"
)

// ErrNotFound is returned for unknown collections.
var ErrNotFound = cardvault.ErrNoLedger

// ErrExists is returned when creating a collection that already exists.
var ErrExists = errors.New("collection already exists")

// Store holds named collections.
type Store interface {
	// Collections returns the collection names, sorted.
	Collections(ctx context.Context) ([]string, error)
	// Create adds an empty collection.
	Create(ctx context.Context, name string) error
	// Load returns a collection.
	Load(ctx context.Context, name string) (*cardvault.Ledger, error)
	// Append adds transactions at the end of an existing collection.
	Append(ctx context.Context, name string, txs ...cardvault.Transaction) error
	// Save replaces a collection with the ledger, creating it if needed.
	Save(ctx context.Context, l *cardvault.Ledger) error
	// Delete removes a collection.
	Delete(ctx context.Context, name string) error
	Close() error
}

// Open returns the store for a dsn:
//
//	sqlite://cardvault.db       sqlite database file
//	sqlite://:memory:           in memory sqlite database
//	postgres://user@host/db     postgres database (also postgresql://)
//	collections                 JSONL folder
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQL(ctx, Sqlite, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenSQL(ctx, Postgres, dsn)
	case dsn == "":
		return nil, fmt.Errorf("store is not set. Use -store flag or CARDVAULT_STORE environment variable")
	}
	return NewDir(dsn), nil
}

// LoadOrNew loads a collection, or returns an empty one if it does not exist.
func LoadOrNew(ctx context.Context, s Store, name string) (*cardvault.Ledger, error) {
	l, err := s.Load(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return cardvault.NewLedger(name), nil
	}
	return l, err
}
