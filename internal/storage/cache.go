package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zeebo/xxh3"
)

// ResponseCache stores fetched documents with their ETags so that later
// fetches can be revalidated instead of downloaded again
type ResponseCache struct {
	storage Storage
	logger  *slog.Logger
}

// NewResponseCache creates a cache on s
func NewResponseCache(s Storage, logger *slog.Logger) *ResponseCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseCache{storage: s, logger: logger}
}

func cacheKey(uri string) []byte {
	b := xxh3.HashString128(uri).Bytes()
	return b[:]
}

// Lookup returns the cached ETag and body of uri
func (c *ResponseCache) Lookup(uri string) (string, []byte, bool) {
	etag, body, err := c.get(uri)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("response cache lookup failed", "uri", uri, "error", err)
		}
		return "", nil, false
	}
	return etag, body, true
}

func (c *ResponseCache) get(uri string) (string, []byte, error) {
	txn, err := c.storage.Begin(false)
	if err != nil {
		return "", nil, err
	}
	defer txn.Rollback()

	key := cacheKey(uri)
	// A hash collision must not serve another document
	stored, err := txn.Get(TableURI, key)
	if err != nil {
		return "", nil, err
	}
	if string(stored) != uri {
		return "", nil, ErrNotFound
	}
	etag, err := txn.Get(TableETag, key)
	if err != nil {
		return "", nil, err
	}
	body, err := txn.Get(TableBody, key)
	if err != nil {
		return "", nil, err
	}
	return string(etag), body, nil
}

// Store records the ETag and body of uri, replacing any earlier entry
func (c *ResponseCache) Store(uri, etag string, body []byte) error {
	return c.update(func(txn Transaction) error {
		key := cacheKey(uri)
		if err := txn.Set(TableURI, key, []byte(uri)); err != nil {
			return err
		}
		if err := txn.Set(TableETag, key, []byte(etag)); err != nil {
			return err
		}
		return txn.Set(TableBody, key, body)
	})
}

// Purge removes the entry for uri
func (c *ResponseCache) Purge(uri string) error {
	return c.update(func(txn Transaction) error {
		key := cacheKey(uri)
		for table := Table(0); table < TableCount; table++ {
			if err := txn.Delete(table, key); err != nil {
				return err
			}
		}
		return nil
	})
}

// URIs lists the cached URIs
func (c *ResponseCache) URIs() ([]string, error) {
	txn, err := c.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	it, err := txn.Scan(TableURI)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var uris []string
	for it.Next() {
		v, err := it.Value()
		if err != nil {
			return nil, err
		}
		uris = append(uris, string(v))
	}
	return uris, nil
}

func (c *ResponseCache) update(fn func(Transaction) error) error {
	txn, err := c.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	if err := fn(txn); err != nil {
		return fmt.Errorf("failed to update response cache: %w", err)
	}
	return txn.Commit()
}
