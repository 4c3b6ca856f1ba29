package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/cardvault"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect is a supported SQL database.
type Dialect string

const (
	Sqlite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		seq INTEGER NOT NULL,
		command TEXT NOT NULL,
		day TEXT NOT NULL,
		payload TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_collection_seq ON transactions (collection, seq)`,
}

// SQL stores collections in a database. Each transaction is a row holding its
// JSON encoding, the sequence number keeps the append order.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens a database and creates the tables if needed.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQL, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open %s database: %w", dialect, err)
	}
	if dialect == Sqlite {
		// one connection, so that ":memory:" is a single database
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQL(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQL returns a store on an open database.
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	s := &SQL{db: db, dialect: dialect}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("could not create schema: %w", err)
		}
	}
	return s, nil
}

// q rewrites "?" placeholders for the dialect.
func (s *SQL) q(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("could not list collections: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQL) exists(ctx context.Context, db querier, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM collections WHERE name = ?`), name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("could not read collection %q: %w", name, err)
	}
	return n > 0, nil
}

func (s *SQL) Create(ctx context.Context, name string) error {
	if err := cardvault.ValidName(name); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(`INSERT INTO collections (name) VALUES (?) ON CONFLICT (name) DO NOTHING`), name)
	if err != nil {
		return fmt.Errorf("could not create collection %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%q: %w", name, ErrExists)
	}
	return nil
}

func (s *SQL) Load(ctx context.Context, name string) (*cardvault.Ledger, error) {
	ok, err := s.exists(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT payload FROM transactions WHERE collection = ? ORDER BY seq`), name)
	if err != nil {
		return nil, fmt.Errorf("could not load collection %q: %w", name, err)
	}
	defer rows.Close()
	var jsonl bytes.Buffer
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		jsonl.WriteString(payload)
		jsonl.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	l, err := cardvault.DecodeLedger(&jsonl)
	if err != nil {
		return nil, fmt.Errorf("could not decode collection %q: %w", name, err)
	}
	l.Rename(name)
	return l, nil
}

func (s *SQL) insert(ctx context.Context, tx *sql.Tx, name string, seq int, txs ...cardvault.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO transactions (id, collection, seq, command, day, payload) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, t := range txs {
		payload, err := cardvault.EncodeTransaction(t)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), name, seq+i, string(t.What()), t.When().String(), string(payload)); err != nil {
			return fmt.Errorf("could not insert %s transaction: %w", t.What(), err)
		}
	}
	return nil
}

func (s *SQL) Append(ctx context.Context, name string, txs ...cardvault.Transaction) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.exists(ctx, tx, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		var last int
		row := tx.QueryRowContext(ctx, s.q(`SELECT COALESCE(MAX(seq), 0) FROM transactions WHERE collection = ?`), name)
		if err := row.Scan(&last); err != nil {
			return err
		}
		return s.insert(ctx, tx, name, last+1, txs...)
	})
}

func (s *SQL) Save(ctx context.Context, l *cardvault.Ledger) error {
	if err := cardvault.ValidName(l.Name()); err != nil {
		return err
	}
	var txs []cardvault.Transaction
	for _, t := range l.Transactions() {
		txs = append(txs, t)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO collections (name) VALUES (?) ON CONFLICT (name) DO NOTHING`), l.Name()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM transactions WHERE collection = ?`), l.Name()); err != nil {
			return err
		}
		return s.insert(ctx, tx, l.Name(), 1, txs...)
	})
}

func (s *SQL) Delete(ctx context.Context, name string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM collections WHERE name = ?`), name)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		_, err = tx.ExecContext(ctx, s.q(`DELETE FROM transactions WHERE collection = ?`), name)
		return err
	})
}

func (s *SQL) inTx(ctx context.Context, f func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

func (s *SQL) Close() error { return s.db.Close() }
