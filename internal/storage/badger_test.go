package storage

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/dan-f/twinql/pkg/backend"
)

func newTestStorage(t *testing.T) *BadgerStorage {
	t.Helper()
	s, err := NewBadgerStorage("")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBadgerTransaction(t *testing.T) {
	s := newTestStorage(t)

	txn, err := s.Begin(true)
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	for _, key := range []string{"b", "a", "c"} {
		if err := txn.Set(TableETag, []byte(key), []byte("v"+key)); err != nil {
			t.Fatalf("failed to set %s: %v", key, err)
		}
	}
	if err := txn.Set(TableBody, []byte("a"), []byte("body")); err != nil {
		t.Fatalf("failed to set body: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	ro, err := s.Begin(false)
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	defer ro.Rollback()

	got, err := ro.Get(TableETag, []byte("a"))
	if err != nil || string(got) != "va" {
		t.Errorf("Get(etag, a) = %q, %v; want \"va\"", got, err)
	}
	if _, err := ro.Get(TableURI, []byte("a")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from another table, got %v", err)
	}
	if err := ro.Set(TableETag, []byte("d"), nil); !errors.Is(err, ErrTransactionRO) {
		t.Errorf("expected ErrTransactionRO, got %v", err)
	}
	if err := ro.Delete(TableETag, []byte("a")); !errors.Is(err, ErrTransactionRO) {
		t.Errorf("expected ErrTransactionRO, got %v", err)
	}

	it, err := ro.Scan(TableETag)
	if err != nil {
		t.Fatalf("failed to scan: %v", err)
	}
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		v, err := it.Value()
		if err != nil || !bytes.Equal(v, []byte("v"+string(it.Key()))) {
			t.Errorf("Value() = %q, %v", v, err)
		}
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(keys, want) {
		t.Errorf("scanned keys %v, want %v", keys, want)
	}
	if it.Key() != nil {
		t.Error("expected nil key after iteration")
	}
}

func TestBadgerTransaction_Rollback(t *testing.T) {
	s := newTestStorage(t)

	txn, _ := s.Begin(true)
	if err := txn.Set(TableURI, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	txn.Rollback()

	ro, _ := s.Begin(false)
	defer ro.Rollback()
	if _, err := ro.Get(TableURI, []byte("k")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected rolled back write to be absent, got %v", err)
	}
}

func TestPrefixKey(t *testing.T) {
	key := PrefixKey(TableBody, []byte("abc"))
	if !bytes.Equal(key, []byte{byte(TableBody), 'a', 'b', 'c'}) {
		t.Errorf("PrefixKey = %v", key)
	}
	if TableBody.String() != "body" || Table(99).String() != "unknown" {
		t.Errorf("unexpected table names %s %s", TableBody, Table(99))
	}
}

func TestResponseCache(t *testing.T) {
	cache := NewResponseCache(newTestStorage(t), nil)
	const uri = "https://a.example/alice"

	if _, _, ok := cache.Lookup(uri); ok {
		t.Fatal("expected empty cache")
	}

	if err := cache.Store(uri, `"v1"`, []byte("first")); err != nil {
		t.Fatalf("failed to store: %v", err)
	}
	if err := cache.Store(uri, `"v2"`, []byte("second")); err != nil {
		t.Fatalf("failed to store: %v", err)
	}
	if err := cache.Store("https://a.example/bob", `"b"`, []byte("bob")); err != nil {
		t.Fatalf("failed to store: %v", err)
	}

	etag, body, ok := cache.Lookup(uri)
	if !ok || etag != `"v2"` || string(body) != "second" {
		t.Errorf("Lookup = %q, %q, %v", etag, body, ok)
	}

	uris, err := cache.URIs()
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	slices.Sort(uris)
	if want := []string{"https://a.example/alice", "https://a.example/bob"}; !slices.Equal(uris, want) {
		t.Errorf("URIs() = %v, want %v", uris, want)
	}

	if err := cache.Purge(uri); err != nil {
		t.Fatalf("failed to purge: %v", err)
	}
	if _, _, ok := cache.Lookup(uri); ok {
		t.Error("expected purged entry to be gone")
	}
}

func TestResponseCache_RevalidatesFetches(t *testing.T) {
	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		downloads.Add(1)
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`<#me> <http://xmlns.com/foaf/0.1/name> "Alice" .`))
	}))
	defer srv.Close()

	fetcher := backend.NewHTTPFetcher()
	fetcher.Cache = NewResponseCache(newTestStorage(t), nil)

	for i := 0; i < 3; i++ {
		body, err := fetcher.Fetch(context.Background(), backend.FetchRequest{URI: srv.URL + "/alice"})
		if err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
		if !bytes.Contains(body, []byte(`"Alice"`)) {
			t.Errorf("fetch %d returned %q", i, body)
		}
	}
	if n := downloads.Load(); n != 1 {
		t.Errorf("expected 1 download, got %d", n)
	}
}
