// Package proxy forwards browser calls to card data providers, adding the
// credentials the browser must not see.
package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/cardvault/cardtrader"
	"github.com/etnz/cardvault/fetch"
	"github.com/etnz/cardvault/justtcg"
	"github.com/etnz/cardvault/lorcast"
	"go.uber.org/zap"
)

// Route forwards requests under Prefix to Upstream.
type Route struct {
	Name     string
	Prefix   string // e.g. "/api/justtcg/"
	Upstream string // API root, the path after Prefix is appended to it
	Inject   func(http.Header)
	Unwrap   string // JSONPath applied to JSON 2xx responses, if set
}

// credentialHeaders are never forwarded from the client.
var credentialHeaders = []string{"Authorization", justtcg.KeyHeader, "Cookie"}

// Proxy is an http.Handler over a set of routes.
type Proxy struct {
	routes []Route
	logger *zap.Logger
	rp     map[string]*httputil.ReverseProxy
}

// New returns a proxy over routes. A nil logger discards logs.
func New(routes []Route, logger *zap.Logger) (*Proxy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Proxy{routes: routes, logger: logger, rp: make(map[string]*httputil.ReverseProxy)}
	for _, r := range routes {
		if !strings.HasPrefix(r.Prefix, "/") || !strings.HasSuffix(r.Prefix, "/") {
			return nil, fmt.Errorf("route %s: prefix %q must start and end with /", r.Name, r.Prefix)
		}
		up, err := url.Parse(r.Upstream)
		if err != nil || up.Scheme == "" || up.Host == "" {
			return nil, fmt.Errorf("route %s: invalid upstream %q", r.Name, r.Upstream)
		}
		p.rp[r.Prefix] = p.reverseProxy(r, up)
	}
	return p, nil
}

// Routes returns the configured routes.
func (p *Proxy) Routes() []Route { return p.routes }

func (p *Proxy) reverseProxy(r Route, up *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			rest := strings.TrimPrefix(pr.In.URL.Path, r.Prefix)
			pr.Out.URL.Scheme = up.Scheme
			pr.Out.URL.Host = up.Host
			pr.Out.URL.Path = strings.TrimSuffix(up.Path, "/") + "/" + rest
			pr.Out.URL.RawPath = ""
			pr.Out.URL.RawQuery = pr.In.URL.RawQuery
			pr.Out.Host = up.Host
			for _, h := range credentialHeaders {
				pr.Out.Header.Del(h)
			}
			if r.Unwrap != "" {
				// let the transport decompress what must be rewritten
				pr.Out.Header.Del("Accept-Encoding")
			}
			if r.Inject != nil {
				r.Inject(pr.Out.Header)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			p.logger.Debug("proxied",
				zap.String("route", r.Name),
				zap.String("method", resp.Request.Method),
				zap.String("url", resp.Request.URL.String()),
				zap.Int("status", resp.StatusCode))
			// the proxy answers the browser with its own CORS policy.
			for name := range resp.Header {
				if strings.HasPrefix(name, "Access-Control-") {
					resp.Header.Del(name)
				}
			}
			cors(resp.Header)
			if r.Unwrap == "" || resp.StatusCode < 200 || resp.StatusCode >= 300 || !isJSON(resp.Header) {
				return nil
			}
			return unwrap(resp, r.Unwrap)
		},
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			p.logger.Warn("upstream failed", zap.String("route", r.Name), zap.Error(err))
			cors(w.Header())
			Error(w, http.StatusBadGateway, fmt.Errorf("%s upstream failed: %w", r.Name, err))
		},
	}
}

func isJSON(h http.Header) bool {
	mt, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

func unwrap(resp *http.Response, path string) error {
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}
	sub, err := fetch.Select(raw, path)
	if err != nil {
		return err
	}
	resp.Body = io.NopCloser(bytes.NewReader(sub))
	resp.ContentLength = int64(len(sub))
	resp.Header.Set("Content-Length", strconv.Itoa(len(sub)))
	resp.Header.Del("Content-Encoding")
	return nil
}

// ServeHTTP dispatches on the longest matching prefix.
// CORS headers of proxied responses are set in ModifyResponse, after the
// upstream ones are dropped.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		cors(w.Header())
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var match string
	for prefix := range p.rp {
		if strings.HasPrefix(r.URL.Path, prefix) && len(prefix) > len(match) {
			match = prefix
		}
	}
	if match == "" {
		cors(w.Header())
		Error(w, http.StatusNotFound, fmt.Errorf("no provider for %s", r.URL.Path))
		return
	}
	p.rp[match].ServeHTTP(w, r)
}

func cors(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Accept")
	h.Set("Access-Control-Max-Age", strconv.Itoa(int((24 * time.Hour).Seconds())))
}

// Error writes err as a JSON {"error": "..."} body.
func Error(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// Keys are the provider credentials injected by the proxy.
type Keys struct {
	JustTCG    string
	CardTrader string
}

// Default returns the routes to the three providers.
func Default(keys Keys) []Route {
	return []Route{
		{
			Name:     "justtcg",
			Prefix:   "/api/justtcg/",
			Upstream: justtcg.BaseURL,
			Inject:   func(h http.Header) { h.Set(justtcg.KeyHeader, keys.JustTCG) },
			Unwrap:   "$.data",
		},
		{
			Name:     "lorcast",
			Prefix:   "/api/lorcast/",
			Upstream: lorcast.BaseURL,
		},
		{
			Name:     "cardtrader",
			Prefix:   "/api/cardtrader/",
			Upstream: cardtrader.BaseURL,
			Inject:   func(h http.Header) { h.Set("Authorization", "Bearer "+keys.CardTrader) },
		},
	}
}
