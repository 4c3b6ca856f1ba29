package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/cards", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "elsa", "q": r.URL.Query().Get("q"), "key": r.Header.Get("x-api-key")}},
			"meta": map[string]int{"total": 1},
		})
	})
	mux.HandleFunc("POST /v1/cards", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":` + string(body) + `}`))
	})
	mux.HandleFunc("GET /v1/missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
	mux.HandleFunc("GET /v1/text", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("auth=" + r.Header.Get("Authorization")))
	})
	mux.HandleFunc("GET /v1/cors", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET")
		w.Header().Set("Access-Control-Expose-Headers", "X-Total")
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/headers", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(r.Header)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProxy(t *testing.T, upstream string) *httptest.Server {
	t.Helper()
	p, err := New([]Route{
		{
			Name:     "justtcg",
			Prefix:   "/api/justtcg/",
			Upstream: upstream + "/v1",
			Inject:   func(h http.Header) { h.Set("x-api-key", "secret") },
			Unwrap:   "$.data",
		},
		{Name: "plain", Prefix: "/api/plain/", Upstream: upstream + "/v1"},
	}, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	return srv
}

func TestProxy_unwrapAndInject(t *testing.T) {
	srv := newTestProxy(t, newUpstream(t).URL)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/justtcg/cards?q=elsa", nil)
	require.NoError(t, err)
	req.Header.Set("x-api-key", "client-supplied")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":"elsa","q":"elsa","key":"secret"}]`, string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestProxy_postBody(t *testing.T) {
	srv := newTestProxy(t, newUpstream(t).URL)
	resp, err := http.Post(srv.URL+"/api/justtcg/cards", "application/json", strings.NewReader(`[{"cardId":"elsa"}]`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `[{"cardId":"elsa"}]`, string(body))
}

func TestProxy_passThrough(t *testing.T) {
	srv := newTestProxy(t, newUpstream(t).URL)

	testCases := []struct {
		name   string
		path   string
		auth   string
		status int
		body   string
	}{
		{"errors are not unwrapped", "/api/justtcg/missing", "", http.StatusNotFound, `{"error":"not found"}`},
		{"credentials are dropped", "/api/plain/text", "Bearer stolen", http.StatusOK, "auth="},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+tc.path, nil)
			require.NoError(t, err)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.body, strings.TrimSpace(string(body)))
		})
	}
}

func TestProxy_preflightAndErrors(t *testing.T) {
	up := newUpstream(t)
	srv := newTestProxy(t, up.URL)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/justtcg/cards", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))

	resp, err = http.Get(srv.URL + "/api/other/x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	up.Close()
	resp, err = http.Get(srv.URL + "/api/justtcg/cards")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var e map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Contains(t, e["error"], "justtcg upstream failed")
}

func TestNew_invalidRoutes(t *testing.T) {
	_, err := New([]Route{{Name: "x", Prefix: "/api/x", Upstream: "https://example.com"}}, nil)
	assert.Error(t, err)
	_, err = New([]Route{{Name: "x", Prefix: "/api/x/", Upstream: "example.com"}}, nil)
	assert.Error(t, err)

	p, err := New(Default(Keys{JustTCG: "k", CardTrader: "t"}), nil)
	require.NoError(t, err)
	assert.Len(t, p.Routes(), 3)
}

func TestProxy_upstreamCORS(t *testing.T) {
	srv := newTestProxy(t, newUpstream(t).URL)

	resp, err := http.Get(srv.URL + "/api/plain/cors")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"*"}, resp.Header.Values("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"GET, POST, PUT, DELETE, OPTIONS"}, resp.Header.Values("Access-Control-Allow-Methods"))
	assert.Empty(t, resp.Header.Values("Access-Control-Expose-Headers"))
}

func TestProxy_hopByHopHeaders(t *testing.T) {
	up := newUpstream(t)
	p, err := New([]Route{{Name: "plain", Prefix: "/api/plain/", Upstream: up.URL + "/v1"}}, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/plain/headers", nil)
	req.Header.Set("Connection", "X-Hop")
	req.Header.Set("X-Hop", "1")
	req.Header.Set("Keep-Alive", "timeout=5")
	req.Header.Set("Proxy-Authorization", "Basic c2VjcmV0")
	req.Header.Set("Te", "gzip")
	req.Header.Set("X-Keep", "yes")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got http.Header
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	testCases := []struct {
		header string
		want   string
	}{
		{"Connection", ""},
		{"X-Hop", ""},
		{"Keep-Alive", ""},
		{"Proxy-Authorization", ""},
		{"Te", ""},
		{"X-Keep", "yes"},
	}
	for _, tc := range testCases {
		t.Run(tc.header, func(t *testing.T) {
			assert.Equal(t, tc.want, got.Get(tc.header))
		})
	}
}
