package fetch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// Select returns the sub-document of raw JSON at a JSONPath expression such as
// "$.data" or "$.results[0]". An empty path or "$" returns raw unchanged.
func Select(raw []byte, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "$" {
		return raw, nil
	}
	// numbers stay json.Number so they are written back as received.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse response: trailing data after the document")
	}
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to select %q: %w", path, err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q: %w", path, err)
	}
	return out, nil
}

// Unwrap decodes the sub-document of raw at path into out.
func Unwrap(raw []byte, path string, out any) error {
	sub, err := Select(raw, path)
	if err != nil {
		return err
	}
	return decode(sub, out)
}
