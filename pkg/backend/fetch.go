package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPError is returned when a fetch fails. Status is 0 for network errors
// and timeouts.
type HTTPError struct {
	Status     int
	StatusText string
	URI        string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URI, e.Err)
	}
	return e.StatusText
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// FetchRequest describes a single resource fetch
type FetchRequest struct {
	URI     string
	Headers map[string]string
	Timeout time.Duration
}

// Fetcher retrieves the bytes of a resource
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, req FetchRequest) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, req FetchRequest) ([]byte, error) {
	return f(ctx, req)
}

// ResponseCache stores response bodies by URI for conditional requests
type ResponseCache interface {
	Lookup(uri string) (etag string, body []byte, ok bool)
	Store(uri, etag string, body []byte) error
}

// HTTPFetcher fetches resources with net/http. When a Cache is set,
// responses carrying an ETag are stored and later requests are revalidated
// with If-None-Match; a 304 answer is served from the cache.
type HTTPFetcher struct {
	Client *http.Client
	Cache  ResponseCache
	Logger *slog.Logger
}

// NewHTTPFetcher creates a fetcher using http.DefaultClient
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: http.DefaultClient}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, r FetchRequest) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URI, nil)
	if err != nil {
		return nil, &HTTPError{URI: r.URI, Err: err}
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	var cachedBody []byte
	var revalidating bool
	if f.Cache != nil {
		if etag, body, ok := f.Cache.Lookup(r.URI); ok {
			req.Header.Set("If-None-Match", etag)
			cachedBody, revalidating = body, true
		}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &HTTPError{URI: r.URI, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && revalidating {
		return cachedBody, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			URI:        r.URI,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &HTTPError{Status: resp.StatusCode, URI: r.URI, Err: err}
	}

	if f.Cache != nil {
		if etag := resp.Header.Get("ETag"); etag != "" {
			if err := f.Cache.Store(r.URI, etag, body); err != nil {
				f.logger().Warn("failed to cache response", "uri", r.URI, "error", err)
			}
		}
	}
	return body, nil
}

func (f *HTTPFetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
