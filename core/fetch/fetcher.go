// Package fetch downloads template archives over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "quillpipe/1.0 (https://github.com/gaurav-prasanna/quillpipe)"

	// DefaultMaxSize caps an archive download.
	DefaultMaxSize = 64 << 20
)

// ErrTooLarge is returned when the body exceeds the fetcher's limit.
var ErrTooLarge = errors.New("archive exceeds size limit")

// HTTPFetcher fetches archives via HTTP.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

// New creates an HTTPFetcher with a sensible timeout and DefaultMaxSize.
func New() *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: defaultTimeout},
		maxSize: DefaultMaxSize,
	}
}

// WithMaxSize returns a copy of f limited to n bytes.
func (f *HTTPFetcher) WithMaxSize(n int64) *HTTPFetcher {
	c := *f
	c.maxSize = n
	return &c
}

// IsURL reports whether s should be fetched rather than read from disk.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Fetch retrieves the bytes at url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/zip, application/octet-stream;q=0.9, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	if resp.ContentLength > f.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, url, resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, url, f.maxSize)
	}
	return body, nil
}
