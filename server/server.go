// Package server exposes collections over HTTP: a JSON API, HTML reports and
// the provider proxies used by the browser front end.
package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/cardtrader"
	"github.com/etnz/cardvault/proxy"
	"github.com/etnz/cardvault/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxBody is the largest request body accepted.
const MaxBody = 8 << 20

// Server handles the HTTP API.
type Server struct {
	store    store.Store
	sources  []cardvault.PriceSource
	market   *cardtrader.Client
	logger   *zap.Logger
	currency string
	today    func() cardvault.Date
	mux      *http.ServeMux

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per collection
}

// Option configures a Server.
type Option func(*Server)

// WithMarketplace lists copies on CardTrader. Without it, listings are only
// recorded in the collection.
func WithMarketplace(c *cardtrader.Client) Option { return func(s *Server) { s.market = c } }

// WithCurrency sets the default reporting currency.
func WithCurrency(cur string) Option { return func(s *Server) { s.currency = strings.ToUpper(cur) } }

// New returns the server. The proxy may be nil.
func New(st store.Store, px *proxy.Proxy, sources []cardvault.PriceSource, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:    st,
		sources:  sources,
		logger:   logger,
		currency: cardvault.DefaultCurrency,
		today:    cardvault.Today,
		mux:      http.NewServeMux(),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes(px)
	return s
}

func (s *Server) routes(px *proxy.Proxy) {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "ok\n") })

	s.mux.HandleFunc("GET /api/collections", s.handle(s.listCollections))
	s.mux.HandleFunc("POST /api/collections", s.handle(s.createCollection))
	s.mux.HandleFunc("DELETE /api/collections/{name}", s.handle(s.deleteCollection))
	s.mux.HandleFunc("GET /api/collections/{name}/holdings", s.handle(s.holdings))
	s.mux.HandleFunc("GET /api/collections/{name}/transactions", s.transactions)
	s.mux.HandleFunc("POST /api/collections/{name}/transactions", s.handle(s.appendTransactions))
	s.mux.HandleFunc("POST /api/collections/{name}/import", s.handle(s.importCSV))
	s.mux.HandleFunc("GET /api/collections/{name}/history/{key...}", s.handle(s.history))
	s.mux.HandleFunc("GET /api/collections/{name}/listings", s.handle(s.listings))
	s.mux.HandleFunc("POST /api/collections/{name}/listings", s.handle(s.createListing))
	s.mux.HandleFunc("DELETE /api/collections/{name}/listings/{id}", s.handle(s.deleteListing))
	s.mux.HandleFunc("POST /api/collections/{name}/prices", s.handle(s.updatePrices))
	s.mux.HandleFunc("GET /collections/{name}", s.report)

	if px != nil {
		for _, route := range px.Routes() {
			s.mux.Handle(route.Prefix, px)
		}
	}
}

// ServeHTTP logs every request with a request id.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", id)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, MaxBody)
	s.mux.ServeHTTP(rec, r)
	s.logger.Info("request",
		zap.String("id", id),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("elapsed", time.Since(start)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// errNotFound is returned for unknown resources inside a collection.
var errNotFound = errors.New("not found")

// badRequest marks client errors.
type badRequest struct{ error }

func (e badRequest) Unwrap() error { return e.error }

func invalid(format string, args ...any) error { return badRequest{fmt.Errorf(format, args...)} }

// handle adapts handlers returning a JSON value or an error.
func (s *Server) handle(h func(*http.Request) (int, any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, v, err := h(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(v); err != nil {
			s.logger.Warn("could not write response", zap.Error(err))
		}
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var br badRequest
	var mbe *http.MaxBytesError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrExists):
		status = http.StatusConflict
	case errors.As(err, &br), errors.As(err, &mbe), errors.Is(err, cardvault.ErrInsufficient):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	proxy.Error(w, status, err)
}

func (s *Server) listCollections(r *http.Request) (int, any, error) {
	names, err := s.store.Collections(r.Context())
	if err != nil {
		return 0, nil, err
	}
	if names == nil {
		names = []string{}
	}
	return http.StatusOK, names, nil
}

func (s *Server) createCollection(r *http.Request) (int, any, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return 0, nil, err
	}
	if err := cardvault.ValidName(req.Name); err != nil {
		return 0, nil, badRequest{err}
	}
	if err := s.store.Create(r.Context(), req.Name); err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, map[string]string{"name": req.Name}, nil
}

func (s *Server) deleteCollection(r *http.Request) (int, any, error) {
	defer s.lock(r.PathValue("name"))()
	if err := s.store.Delete(r.Context(), r.PathValue("name")); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{"deleted": r.PathValue("name")}, nil
}

// date reads the date query parameter, today if absent.
func (s *Server) date(r *http.Request, param string) (cardvault.Date, error) {
	v := r.URL.Query().Get(param)
	if v == "" {
		return cardvault.Date{}, nil
	}
	d, err := cardvault.ParseDate(v)
	if err != nil {
		return d, invalid("invalid %s: %v", param, err)
	}
	return d, nil
}

func (s *Server) currencyOf(r *http.Request) string {
	if c := r.URL.Query().Get("currency"); c != "" {
		return strings.ToUpper(c)
	}
	return s.currency
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	l, err := s.store.Load(r.Context(), r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/jsonl")
	if err := cardvault.EncodeLedger(w, l); err != nil {
		s.logger.Warn("could not write transactions", zap.Error(err))
	}
}

// decodeTransactions reads a JSON array or JSONL body.
func decodeTransactions(body []byte) ([]cardvault.Transaction, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, invalid("no transaction")
	}
	var raws []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, invalid("invalid JSON array: %v", err)
		}
	} else {
		sc := bufio.NewScanner(bytes.NewReader(body))
		sc.Buffer(make([]byte, 0, 64*1024), MaxBody)
		for sc.Scan() {
			if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
				raws = append(raws, json.RawMessage(bytes.Clone(line)))
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}
	txs := make([]cardvault.Transaction, 0, len(raws))
	for i, raw := range raws {
		tx, err := cardvault.DecodeTransaction(raw)
		if err != nil {
			return nil, invalid("transaction #%d: %v", i+1, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// lock serializes the writes to a collection, from load to store. It returns
// the unlock function.
func (s *Server) lock(name string) func() {
	s.mu.Lock()
	m, ok := s.locks[name]
	if !ok {
		m = new(sync.Mutex)
		s.locks[name] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// apply validates txs against the collection and stores them.
func (s *Server) apply(r *http.Request, name string, txs []cardvault.Transaction) ([]cardvault.Transaction, error) {
	defer s.lock(name)()
	return s.commit(r, name, txs)
}

// commit is apply for callers already holding the collection lock.
func (s *Server) commit(r *http.Request, name string, txs []cardvault.Transaction) ([]cardvault.Transaction, error) {
	l, err := s.store.Load(r.Context(), name)
	if err != nil {
		return nil, err
	}
	fixed, err := l.Apply(txs...)
	if err != nil {
		return nil, badRequest{err}
	}
	if err := s.store.Append(r.Context(), name, fixed...); err != nil {
		return nil, err
	}
	return fixed, nil
}

func (s *Server) appendTransactions(r *http.Request) (int, any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return 0, nil, err
	}
	txs, err := decodeTransactions(body)
	if err != nil {
		return 0, nil, err
	}
	fixed, err := s.apply(r, r.PathValue("name"), txs)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, map[string]any{"appended": len(fixed), "transactions": fixed}, nil
}

func (s *Server) importCSV(r *http.Request) (int, any, error) {
	q := r.URL.Query()
	defaults := cardvault.ImportDefaults{
		Currency:  s.currencyOf(r),
		Condition: cardvault.Condition(q.Get("condition")),
		Language:  q.Get("language"),
	}
	if g := q.Get("game"); g != "" {
		game, err := cardvault.ParseGame(g)
		if err != nil {
			return 0, nil, badRequest{err}
		}
		defaults.Game = game
	}
	d, err := s.date(r, "date")
	if err != nil {
		return 0, nil, err
	}
	defaults.Date = d
	txs, err := cardvault.ImportCSV(r.Body, defaults)
	if err != nil {
		return 0, nil, badRequest{err}
	}
	fixed, err := s.apply(r, r.PathValue("name"), txs)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, map[string]any{"appended": len(fixed)}, nil
}
