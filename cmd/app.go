// Package cmd implements the cv subcommands.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/cardtrader"
	"github.com/etnz/cardvault/config"
	"github.com/etnz/cardvault/date"
	"github.com/etnz/cardvault/fetch"
	"github.com/etnz/cardvault/justtcg"
	"github.com/etnz/cardvault/lorcast"
	"github.com/etnz/cardvault/renderer"
	"github.com/etnz/cardvault/store"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// Register the subcommands.
// A main package calls Register() then Execute() on the user selected one.
func Register(c *subcommands.Commander) {
	c.Register(&searchCmd{}, "catalog")

	c.Register(&addCmd{}, "collection")
	c.Register(&removeCmd{}, "collection")
	c.Register(&importCmd{}, "collection")
	c.Register(&exportCmd{}, "collection")
	c.Register(&collectionsCmd{}, "collection")
	c.Register(&txCmd{}, "collection")
	c.Register(&fmtCmd{}, "collection")

	c.Register(&holdingCmd{}, "reports")
	c.Register(&historyCmd{}, "reports")
	c.Register(&publishCmd{}, "reports")
	c.Register(&assistCmd{}, "reports")

	c.Register(&updateCmd{}, "prices")

	c.Register(&listCmd{}, "marketplace")
	c.Register(&delistCmd{}, "marketplace")
	c.Register(&listingsCmd{}, "marketplace")

	c.Register(&serveCmd{}, "server")
	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile      = flag.String("config", config.DefaultFile, "Path to the configuration file")
	storeFlag       = flag.String("store", "", "Collections store: a folder, sqlite://file or postgres://... Overrides "+config.EnvStore)
	defaultCurrency = flag.String("currency", "", "Reporting currency. Overrides "+config.EnvCurrency)
	Verbose         = flag.Bool("v", false, "Verbose logging")
	noCache         = flag.Bool("no-cache", false, "Do not use the daily cache of provider responses")
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

// Config returns the configuration: file, .env, environment then flags.
func Config() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	if err := config.LoadEnv(); err != nil {
		return nil, fmt.Errorf("could not load .env: %w", err)
	}
	c, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *storeFlag != "" {
		c.Store = *storeFlag
	}
	if *defaultCurrency != "" {
		c.Currency = strings.ToUpper(*defaultCurrency)
	}
	if *Verbose {
		c.LogLevel = "debug"
	}
	if *noCache {
		c.CacheDir = ""
	}
	cfg = c
	return cfg, nil
}

// Logger returns the CLI logger, silent below warnings unless -v.
func Logger() *zap.Logger {
	if logger != nil {
		return logger
	}
	logger = zap.NewNop()
	if c, err := Config(); err == nil {
		if !*Verbose && c.LogLevel == "info" {
			c.LogLevel = "warn"
		}
		if l, err := c.Logger(false); err == nil {
			logger = l
		}
	}
	return logger
}

// Currency is the reporting currency.
func Currency() string {
	if c, err := Config(); err == nil {
		return c.Currency
	}
	return cardvault.DefaultCurrency
}

// OpenStore opens the configured collections store.
func OpenStore(ctx context.Context) (store.Store, error) {
	c, err := Config()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, fmt.Errorf("could not open store %q: %w", c.Store, err)
	}
	return st, nil
}

// LoadCollection loads a collection. An empty name selects the only
// collection of the store.
func LoadCollection(ctx context.Context, st store.Store, name string) (*cardvault.Ledger, error) {
	if name != "" {
		return st.Load(ctx, name)
	}
	names, err := st.Collections(ctx)
	if err != nil {
		return nil, err
	}
	switch len(names) {
	case 0:
		return nil, fmt.Errorf("no collection yet, create one with 'cv collections -create <name>': %w", store.ErrNotFound)
	case 1:
		return st.Load(ctx, names[0])
	default:
		return nil, fmt.Errorf("several collections (%s), pick one with -c", strings.Join(names, ", "))
	}
}

// collectionName resolves the collection to write to, creating it if the store
// is empty.
func collectionName(ctx context.Context, st store.Store, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	l, err := LoadCollection(ctx, st, "")
	if errors.Is(err, store.ErrNotFound) {
		if err := st.Create(ctx, "default"); err != nil && !errors.Is(err, store.ErrExists) {
			return "", err
		}
		return "default", nil
	}
	if err != nil {
		return "", err
	}
	return l.Name(), nil
}

// fetchOptions are the HTTP client options shared by the providers.
func fetchOptions() []fetch.Option {
	opts := []fetch.Option{fetch.WithLogger(Logger())}
	if c, err := Config(); err == nil && c.CacheDir != "" {
		opts = append(opts, fetch.WithCache(c.CacheDir, date.Daily))
	}
	return opts
}

// Providers are the catalog clients, nil when not configured.
type Providers struct {
	Lorcast    *lorcast.Client
	JustTCG    *justtcg.Client
	CardTrader *cardtrader.Client
}

// NewProviders creates the clients the configuration has credentials for.
func NewProviders() (*Providers, error) {
	c, err := Config()
	if err != nil {
		return nil, err
	}
	p := &Providers{Lorcast: lorcast.New(fetchOptions()...)}
	if c.JustTCGKey != "" {
		if p.JustTCG, err = justtcg.New(c.JustTCGKey, fetchOptions()...); err != nil {
			return nil, err
		}
	}
	if c.CardTraderToken != "" {
		// marketplace calls are never cached.
		if p.CardTrader, err = cardtrader.New(c.CardTraderToken, fetch.WithLogger(Logger())); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Sources are the price sources in order of preference.
func (p *Providers) Sources() []cardvault.PriceSource {
	var sources []cardvault.PriceSource
	if p.CardTrader != nil {
		sources = append(sources, cardtrader.Source{Client: p.CardTrader})
	}
	if p.JustTCG != nil {
		sources = append(sources, justtcg.Source{Client: p.JustTCG})
	}
	if p.Lorcast != nil {
		sources = append(sources, lorcast.Source{Client: p.Lorcast})
	}
	return sources
}

// printMarkdown prints markdown for the terminal.
func printMarkdown(md string) {
	out, err := renderer.Terminal(md, 100)
	if err != nil {
		Logger().Debug("could not render markdown", zap.Error(err))
		out = md
	}
	fmt.Print(out)
}

// printJSON prints v as indented JSON.
func printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return failed("%v", err)
	}
	return subcommands.ExitSuccess
}

// failed reports an error and returns the failure status.
func failed(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}

// parseDate parses a date flag, with a usage error status.
func parseDate(s string) (cardvault.Date, error) {
	d, err := cardvault.ParseDate(s)
	if err != nil {
		return d, fmt.Errorf("invalid date: %w", err)
	}
	return d, nil
}
