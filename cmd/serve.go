package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/cardvault/proxy"
	"github.com/etnz/cardvault/server"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type serveCmd struct {
	addr       string
	production bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the collections over HTTP" }
func (*serveCmd) Usage() string {
	return `cv serve [-addr <host:port>] [-production]

  Serves the collections API and the provider proxy, see 'cv topic serve'.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address. Overrides the configuration.")
	f.BoolVar(&c.production, "production", false, "Log JSON lines")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conf, err := Config()
	if err != nil {
		return failed("%v", err)
	}
	if c.addr != "" {
		conf.Addr = c.addr
	}
	logger, err := conf.Logger(c.production)
	if err != nil {
		return failed("%v", err)
	}
	defer logger.Sync()

	st, err := OpenStore(ctx)
	if err != nil {
		return failed("%v", err)
	}
	defer st.Close()

	px, err := proxy.New(proxy.Default(proxy.Keys{JustTCG: conf.JustTCGKey, CardTrader: conf.CardTraderToken}), logger.Named("proxy"))
	if err != nil {
		return failed("%v", err)
	}
	providers, err := NewProviders()
	if err != nil {
		return failed("%v", err)
	}
	opts := []server.Option{server.WithCurrency(conf.Currency)}
	if providers.CardTrader != nil {
		opts = append(opts, server.WithMarketplace(providers.CardTrader))
	}
	srv := &http.Server{
		Addr:              conf.Addr,
		Handler:           server.New(st, px, providers.Sources(), logger, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() {
		logger.Info("serving", zap.String("addr", conf.Addr), zap.String("store", conf.Store))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return failed("%v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
