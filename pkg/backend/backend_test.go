package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-f/twinql/pkg/rdf"
)

var (
	foafName  = rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	foafKnows = rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")
)

const aliceDoc = `@prefix foaf: <http://xmlns.com/foaf/0.1/> .
<#me> foaf:name "Alice" ;
    foaf:knows <{{base}}/bob#me> .
`

const bobDoc = `@prefix foaf: <http://xmlns.com/foaf/0.1/> .
<#me> foaf:name "Bob" .
`

// newProfileServer serves the alice and bob documents and counts requests
func newProfileServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Accept") != "text/turtle" {
			http.Error(w, "bad accept", http.StatusNotAcceptable)
			return
		}
		switch r.URL.Path {
		case "/alice":
			w.Write([]byte(strings.ReplaceAll(aliceDoc, "{{base}}", srv.URL)))
		case "/bob":
			w.Write([]byte(bobDoc))
		case "/broken":
			w.Write([]byte("<#me> <#p> "))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// countingFetcher returns body after delay and counts calls
func countingFetcher(body string, err error, delay time.Duration) (Fetcher, *atomic.Int32) {
	var calls atomic.Int32
	return FetcherFunc(func(ctx context.Context, req FetchRequest) ([]byte, error) {
		calls.Add(1)
		time.Sleep(delay)
		if err != nil {
			return nil, err
		}
		return []byte(body), nil
	}), &calls
}

func TestMemory(t *testing.T) {
	alice := rdf.NewNamedNode("http://a.example/alice#me")
	g, err := rdf.FromQuads([]rdf.Quad{
		rdf.NewQuad(alice, foafName, rdf.NewLiteral("Alice"), rdf.NewNamedNode("http://a.example/alice")),
	})
	require.NoError(t, err)
	m := NewMemory(g)
	ctx := context.Background()

	objects, err := m.Objects(ctx, alice, foafName)
	require.NoError(t, err)
	assert.True(t, objects.Has(rdf.NewLiteral("Alice")))

	subjects, err := m.Subjects(ctx, foafName, rdf.NewLiteral("Alice"), nil)
	require.NoError(t, err)
	assert.True(t, subjects.Has(alice))

	subjects, err = m.Subjects(ctx, foafName, rdf.NewLiteral("Alice"), rdf.NewNamedNode("http://a.example/other"))
	require.NoError(t, err)
	assert.True(t, subjects.IsEmpty())

	empty := NewMemory(nil)
	objects, err = empty.Objects(ctx, alice, foafName)
	require.NoError(t, err)
	assert.True(t, objects.IsEmpty())
}

func TestWeb_LoadsGraphOfSubject(t *testing.T) {
	srv, hits := newProfileServer(t)
	web := NewWeb()
	ctx := context.Background()

	alice := rdf.NewNamedNode(srv.URL + "/alice#me")
	names, err := web.Objects(ctx, alice, foafName)
	require.NoError(t, err)
	assert.Equal(t, 1, names.Len())
	assert.True(t, names.Has(rdf.NewLiteral("Alice")))

	friends, err := web.Objects(ctx, alice, foafKnows)
	require.NoError(t, err)
	assert.True(t, friends.Has(rdf.NewNamedNode(srv.URL+"/bob#me")))

	// Following the friend loads a second graph
	bob, _ := friends.First()
	bobNames, err := web.Objects(ctx, bob, foafName)
	require.NoError(t, err)
	assert.True(t, bobNames.Has(rdf.NewLiteral("Bob")))

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, []string{srv.URL + "/alice", srv.URL + "/bob"}, web.Loaded(ctx))

	// Quads are stored in the graph they were loaded from
	subjects, err := web.Subjects(ctx, foafName, rdf.NewLiteral("Bob"), rdf.NewNamedNode(srv.URL+"/alice"))
	require.NoError(t, err)
	assert.True(t, subjects.IsEmpty())
}

func TestWeb_SkipsNodesWithoutGraph(t *testing.T) {
	fetcher, calls := countingFetcher("", nil, 0)
	web := NewWeb(WithFetcher(fetcher))
	ctx := context.Background()

	_, err := web.Objects(ctx, rdf.NewLiteral("Alice"), foafName)
	require.NoError(t, err)
	_, err = web.Objects(ctx, rdf.NewBlankNode("b0"), foafName)
	require.NoError(t, err)
	_, err = web.Objects(ctx, rdf.NewNamedNode("#frag"), foafName)
	require.NoError(t, err)
	_, err = web.Subjects(ctx, foafName, rdf.NewLiteral("Alice"), nil)
	require.NoError(t, err)

	assert.Equal(t, int32(0), calls.Load())
}

func TestWeb_SubjectsLoadsGraphArgument(t *testing.T) {
	srv, hits := newProfileServer(t)
	web := NewWeb()

	subjects, err := web.Subjects(context.Background(), foafName, rdf.NewLiteral("Alice"), rdf.NewNamedNode(srv.URL+"/alice"))
	require.NoError(t, err)
	assert.True(t, subjects.Has(rdf.NewNamedNode(srv.URL+"/alice#me")))
	assert.Equal(t, int32(1), hits.Load())
}

func TestWeb_ConcurrentLoadsShareOneFetch(t *testing.T) {
	fetcher, calls := countingFetcher(`<#me> <http://xmlns.com/foaf/0.1/name> "Alice" .`, nil, 50*time.Millisecond)
	web := NewWeb(WithFetcher(fetcher))
	alice := rdf.NewNamedNode("http://a.example/alice#me")

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			objects, err := web.Objects(context.Background(), alice, foafName)
			if err == nil && !objects.Has(rdf.NewLiteral("Alice")) {
				err = errors.New("missing name")
			}
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestWeb_QueryDoneResetsLoads(t *testing.T) {
	fetcher, calls := countingFetcher(`<#me> <http://xmlns.com/foaf/0.1/name> "Alice" .`, nil, 0)
	web := NewWeb(WithFetcher(fetcher))
	alice := rdf.NewNamedNode("http://a.example/alice#me")
	ctx := context.Background()

	_, err := web.Objects(ctx, alice, foafName)
	require.NoError(t, err)
	_, err = web.Objects(ctx, alice, foafName)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	web.QueryDone(ctx)
	assert.Empty(t, web.Loaded(ctx))

	// Data loaded earlier is kept, but the graph is fetched again
	_, err = web.Objects(ctx, alice, foafName)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWeb_OverlappingQueriesKeepSeparateLoads(t *testing.T) {
	var docHits atomic.Int32
	slowStarted := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc":
			if docHits.Add(1) == 1 {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`<#me> <http://p.example/q> "v" .`))
		case "/slow":
			close(slowStarted)
			<-release
			w.Write([]byte(`<#me> <http://p.example/q> "s" .`))
		}
	}))
	defer srv.Close()

	web := NewWeb()
	doc := srv.URL + "/doc"
	ctxA := WithQuery(context.Background(), "a")
	ctxB := WithQuery(context.Background(), "b")

	var httpErr *HTTPError
	require.ErrorAs(t, web.EnsureLoaded(ctxA, doc), &httpErr)
	assert.Equal(t, 503, httpErr.Status)

	// Query a stays active on a slow load
	slowDone := make(chan error, 1)
	go func() { slowDone <- web.EnsureLoaded(ctxA, srv.URL+"/slow") }()
	<-slowStarted

	// Query b does not see the failure of query a
	require.NoError(t, web.EnsureLoaded(ctxB, doc))
	assert.Equal(t, int32(2), docHits.Load())
	assert.Equal(t, []string{doc}, web.Loaded(ctxB))

	// Finishing query b leaves the loads of query a in place
	web.QueryDone(ctxB)
	require.ErrorAs(t, web.EnsureLoaded(ctxA, doc), &httpErr)
	assert.Equal(t, int32(2), docHits.Load())

	close(release)
	require.NoError(t, <-slowDone)
	assert.Equal(t, []string{srv.URL + "/slow"}, web.Loaded(ctxA))

	web.QueryDone(ctxA)
	assert.Empty(t, web.Loaded(ctxA))
}

func TestFailedLoads(t *testing.T) {
	failure := &HTTPError{Status: 500, StatusText: "Internal Server Error"}
	alice := rdf.NewNamedNode("http://a.example/alice#me")

	tests := []struct {
		name      string
		newFunc   func(...Option) Backend
		wantCalls int32
	}{
		{"web remembers failure", func(o ...Option) Backend { return NewWeb(o...) }, 1},
		{"ldp retries failure", func(o ...Option) Backend { return NewLDP(o...) }, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher, calls := countingFetcher("", failure, 0)
			b := tt.newFunc(WithFetcher(fetcher))
			ctx := context.Background()

			for range 2 {
				_, err := b.Objects(ctx, alice, foafName)
				var httpErr *HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, 500, httpErr.Status)
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestLDP_LoadsAndResets(t *testing.T) {
	srv, hits := newProfileServer(t)
	ldp := NewLDP()
	alice := rdf.NewNamedNode(srv.URL + "/alice#me")
	ctx := context.Background()

	for range 3 {
		names, err := ldp.Objects(ctx, alice, foafName)
		require.NoError(t, err)
		assert.True(t, names.Has(rdf.NewLiteral("Alice")))
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, []string{srv.URL + "/alice"}, ldp.Loaded(ctx))

	ldp.QueryDone(ctx)
	_, err := ldp.Objects(ctx, alice, foafName)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestWeb_HTTPErrors(t *testing.T) {
	srv, _ := newProfileServer(t)
	web := NewWeb()
	ctx := context.Background()

	_, err := web.Objects(ctx, rdf.NewNamedNode(srv.URL+"/missing#me"), foafName)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 404, httpErr.Status)
	assert.Equal(t, "Not Found", err.Error())

	_, err = web.Objects(ctx, rdf.NewNamedNode(srv.URL+"/broken#me"), foafName)
	var parseErr *rdf.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, srv.URL+"/broken", parseErr.Graph)

	assert.Empty(t, web.Loaded(ctx))
}

func TestWeb_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	web := NewWeb()
	_, err := web.Objects(context.Background(), rdf.NewNamedNode(url+"/alice#me"), foafName)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 0, httpErr.Status)
	assert.Error(t, httpErr.Err)
}

func TestWeb_RequestOptions(t *testing.T) {
	var got FetchRequest
	fetcher := FetcherFunc(func(ctx context.Context, req FetchRequest) ([]byte, error) {
		got = req
		return nil, nil
	})
	web := NewWeb(
		WithFetcher(fetcher),
		WithProxyURI("https://proxy.example/?uri="),
		WithHeaders(map[string]string{"Authorization": "Bearer token"}),
		WithTimeout(time.Second),
	)

	_, err := web.Objects(context.Background(), rdf.NewNamedNode("https://a.example/alice#me"), foafName)
	require.NoError(t, err)

	assert.Equal(t, "https://proxy.example/?uri=https%3A%2F%2Fa.example%2Falice", got.URI)
	assert.Equal(t, "text/turtle", got.Headers["Accept"])
	assert.Equal(t, "Bearer token", got.Headers["Authorization"])
	assert.Equal(t, time.Second, got.Timeout)
}

func TestWeb_CustomParserAndNamer(t *testing.T) {
	fetcher, _ := countingFetcher(`<http://a.example/alice#me> <http://xmlns.com/foaf/0.1/name> "Alice" <http://a.example/alice> .`, nil, 0)
	namer := GraphNamerFunc(func(n rdf.Node) (string, bool) {
		return "http://a.example/alice", true
	})
	web := NewWeb(WithFetcher(fetcher), WithParser(rdf.ParseNQuads), WithGraphNamer(namer))

	names, err := web.Objects(context.Background(), rdf.NewNamedNode("http://a.example/alice#me"), foafName)
	require.NoError(t, err)
	assert.True(t, names.Has(rdf.NewLiteral("Alice")))
}

func TestFragmentGraphNamer(t *testing.T) {
	tests := []struct {
		node   rdf.Node
		want   string
		wantOK bool
	}{
		{rdf.NewNamedNode("http://a.example/alice#me"), "http://a.example/alice", true},
		{rdf.NewNamedNode("http://a.example/alice"), "http://a.example/alice", true},
		{rdf.NewNamedNode("http://a.example/alice#a#b"), "http://a.example/alice", true},
		{rdf.NewNamedNode("#me"), "", false},
		{rdf.NewLiteral("http://a.example/alice"), "", false},
		{rdf.NewBlankNode("b0"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.node.String(), func(t *testing.T) {
			got, ok := FragmentGraphNamer.GraphName(tt.node)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][2]string
}

func (c *mapCache) Lookup(uri string) (string, []byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[uri]
	return e[0], []byte(e[1]), ok
}

func (c *mapCache) Store(uri, etag string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[uri] = [2]string{etag, string(body)}
	return nil
}

func TestHTTPFetcher_Revalidates(t *testing.T) {
	var fullResponses atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		fullResponses.Add(1)
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(bobDoc))
	}))
	defer srv.Close()

	cache := &mapCache{entries: map[string][2]string{}}
	f := &HTTPFetcher{Client: srv.Client(), Cache: cache}
	ctx := context.Background()

	for range 3 {
		body, err := f.Fetch(ctx, FetchRequest{URI: srv.URL + "/bob"})
		require.NoError(t, err)
		assert.Equal(t, bobDoc, string(body))
	}
	assert.Equal(t, int32(1), fullResponses.Load())
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher()
	_, err := f.Fetch(context.Background(), FetchRequest{URI: srv.URL, Timeout: 20 * time.Millisecond})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 0, httpErr.Status)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoader_CallerCancellation(t *testing.T) {
	started := make(chan struct{})
	finish := make(chan struct{})
	l := newLoader(func(ctx context.Context, name string) error {
		close(started)
		<-finish
		return ctx.Err()
	}, false)

	firstDone := make(chan error, 1)
	go func() { firstDone <- l.ensure(context.Background(), "g") }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.ensure(ctx, "g"), context.Canceled)

	close(finish)
	assert.NoError(t, <-firstDone)
	assert.Equal(t, []string{"g"}, l.loaded(""))
}
