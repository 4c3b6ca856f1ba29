// Package fetch is the HTTP client shared by the catalog and pricing providers.
//
// It builds requests against a base URL, injects credential headers, retries
// throttled and failing calls, and optionally caches GET responses on disk.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/etnz/cardvault/date"
	"go.uber.org/zap"
)

// DefaultDelays are the waits between successive attempts.
var DefaultDelays = []time.Duration{500 * time.Millisecond, 2 * time.Second, 8 * time.Second}

// StatusError is returned for non 2xx responses.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.Status, http.StatusText(e.Status), strings.TrimSpace(body))
}

// Temporary reports whether the request may succeed later: throttled or server side failures.
func (e *StatusError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// Client calls a JSON API.
type Client struct {
	BaseURL string
	Header  http.Header
	HTTP    *http.Client
	Logger  *zap.Logger
	Retry   uint // attempts, 1 disables retries
	Delays  []time.Duration
}

// Option configures a Client.
type Option func(*Client)

// New returns a client for the API at base.
func New(base string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimSuffix(base, "/"),
		Header:  make(http.Header),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Logger:  zap.NewNop(),
		Retry:   3,
		Delays:  DefaultDelays,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.Header.Set(key, value) }
}

// WithBearer sets the Authorization header to a bearer token.
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithHTTPClient replaces the underlying http client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

// WithCache caches successful GET responses in dir for the period.
// It must come after WithHTTPClient if both are used.
func WithCache(dir string, period date.Period) Option {
	return func(c *Client) {
		h := *c.HTTP
		h.Transport = NewDiskCache(h.Transport, dir, period, c.Logger)
		c.HTTP = &h
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.Logger = l }
}

// WithRetry sets the number of attempts and, optionally, the delays between them.
func WithRetry(attempts uint, delays ...time.Duration) Option {
	return func(c *Client) {
		c.Retry = max(attempts, 1)
		if len(delays) > 0 {
			c.Delays = delays
		}
	}
}

// URL returns the absolute URL of path with query.
func (c *Client) URL(path string, query url.Values) string {
	u := c.BaseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do sends a request and returns the response body of a 2xx response.
// A non nil body is sent as JSON.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}
	addr := c.URL(path, query)

	var out []byte
	err := retry.Do(func() error {
		var err error
		out, err = c.do(ctx, method, addr, payload)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(c.Retry),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			if len(c.Delays) == 0 {
				return 0
			}
			return c.Delays[min(int(n), len(c.Delays)-1)]
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Temporary()
			}
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.Logger.Info("retrying", zap.String("method", method), zap.String("url", addr), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	return out, err
}

func (c *Client) do(ctx context.Context, method, addr string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, addr, body)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range c.Header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, addr, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response body: %w", method, addr, err)
	}
	c.Logger.Debug("http call",
		zap.String("method", method),
		zap.String("url", addr),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: method, URL: addr, Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// GetJSON decodes the JSON response of a GET into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(data, out)
}

// GetJSONAt decodes the sub-document at jsonpath of a GET response into out.
func (c *Client) GetJSONAt(ctx context.Context, path string, query url.Values, jpath string, out any) error {
	data, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return Unwrap(data, jpath, out)
}

// PostJSON posts in as JSON and decodes the response into out, if not nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	data, err := c.Do(ctx, http.MethodPost, path, nil, in)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return decode(data, out)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

func decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
