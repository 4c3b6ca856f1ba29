package cardvault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoLedger is returned when no collection matches a name.
var ErrNoLedger = errors.New("collection not found")

// FindLedger returns the unique ledger named name in the collections folder.
// If the folder holds a single collection, an empty name selects it.
func FindLedger(dir, name string) (*Ledger, error) {
	paths, err := findLedgerPaths(dir, name)
	if err != nil {
		return nil, err
	}
	switch len(paths) {
	case 0:
		if name == "" {
			return nil, fmt.Errorf("no collection in %q: %w", dir, ErrNoLedger)
		}
		return nil, fmt.Errorf("%q: %w", name, ErrNoLedger)
	case 1:
		return loadLedgerFile(dir, paths[0])
	default:
		return nil, fmt.Errorf("multiple collections found for %q, pick one", name)
	}
}

// FindLedgers loads the collections matching query. An empty query loads all of
// them, otherwise query is a name or a path.Match pattern (e.g. "decks/*").
func FindLedgers(dir, query string) ([]*Ledger, error) {
	paths, err := findLedgerPaths(dir, query)
	if err != nil {
		return nil, err
	}
	var ledgers []*Ledger
	for _, p := range paths {
		l, err := loadLedgerFile(dir, p)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, nil
}

// LedgerNames returns the names of the collections in dir, sorted.
func LedgerNames(dir string) ([]string, error) {
	paths, err := findLedgerPaths(dir, "")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		name, err := ledgerName(dir, p)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// LedgerPath returns the file of a collection named name.
func LedgerPath(dir, name string) string {
	return filepath.Join(dir, filepath.FromSlash(name)+".jsonl")
}

// ledgerName is the slash separated path of file relative to dir, without extension.
func ledgerName(dir, file string) (string, error) {
	rel, err := filepath.Rel(dir, file)
	if err != nil {
		return "", fmt.Errorf("could not determine relative path for %q: %w", file, err)
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), ".jsonl"), nil
}

func loadLedgerFile(dir, file string) (*Ledger, error) {
	name, err := ledgerName(dir, file)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("could not open collection file %q: %w", file, err)
	}
	defer f.Close()

	l, err := DecodeLedger(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode collection file %q: %w", file, err)
	}
	l.name = name
	return l, nil
}

// ValidName checks that name can be used as a collection name: slash separated
// non empty segments, without dots at the start of a segment.
func ValidName(name string) error {
	if name == "" {
		return errors.New("collection name is empty")
	}
	for seg := range strings.SplitSeq(name, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") || strings.ContainsAny(seg, `\:*?"<>|`) {
			return fmt.Errorf("invalid collection name %q", name)
		}
	}
	return nil
}

// SaveLedger writes the ledger to its file in dir, e.g. a ledger named "decks/amber"
// is saved to "<dir>/decks/amber.jsonl". The file is replaced atomically.
func SaveLedger(dir string, l *Ledger) error {
	if err := ValidName(l.Name()); err != nil {
		return err
	}
	file := LedgerPath(dir, l.Name())
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("could not create directory for collection %q: %w", file, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(file), ".cardvault-*")
	if err != nil {
		return fmt.Errorf("could not save collection %q: %w", l.Name(), err)
	}
	defer os.Remove(tmp.Name())
	if err := EncodeLedger(tmp, l); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not save collection %q: %w", l.Name(), err)
	}
	return os.Rename(tmp.Name(), file)
}

func findLedgerPaths(dir, query string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".jsonl") {
			return nil
		}
		name, err := ledgerName(dir, p)
		if err != nil {
			return err
		}
		if query == "" || name == query {
			files = append(files, p)
			return nil
		}
		if ok, _ := path.Match(query, name); ok {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}
