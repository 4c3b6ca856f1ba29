package fetch

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/etnz/cardvault/date"
	"go.uber.org/zap"
)

// DiskCache is an http.RoundTripper that keeps successful GET responses on
// disk. Entries expire with the period: a daily cache fetches again the next day.
type DiskCache struct {
	Base   http.RoundTripper // http.DefaultTransport if nil
	Dir    string            // os.TempDir() if empty
	Period date.Period
	Logger *zap.Logger

	today func() date.Date
}

// NewDiskCache returns a cache in dir expiring every period.
func NewDiskCache(base http.RoundTripper, dir string, period date.Period, logger *zap.Logger) *DiskCache {
	return &DiskCache{Base: base, Dir: dir, Period: period, Logger: logger}
}

func (c *DiskCache) base() http.RoundTripper {
	if c.Base == nil {
		return http.DefaultTransport
	}
	return c.Base
}

func (c *DiskCache) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// key is unique per period range, method and URL.
func (c *DiskCache) key(req *http.Request) string {
	today := date.Today
	if c.today != nil {
		today = c.today
	}
	rangeID := date.NewRange(today(), c.Period).Identifier(c.Period)
	key := fmt.Sprintf("%s %s %s", rangeID, req.Method, req.URL.String())
	return fmt.Sprintf("cardvault-%s-%x", c.Period, sha1.Sum([]byte(key)))
}

// RoundTrip implements http.RoundTripper.
func (c *DiskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return c.base().RoundTrip(req)
	}
	key := c.key(req)
	if resp, err := c.get(key, req); err == nil {
		c.logger().Debug("cache hit", zap.String("url", req.URL.String()))
		return resp, nil
	}

	resp, err := c.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.logger().Debug("fetched",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode))
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		c.logger().Warn("cache write failed (ignored)", zap.Error(err))
	}
	return resp, nil
}

func (c *DiskCache) file(key string) string {
	dir := c.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, key)
}

func (c *DiskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(c.file(key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put stores the dumped response. DumpResponse leaves resp.Body readable.
func (c *DiskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.file(key)), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.file(key), content, 0o644)
}
