package backend

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

type queryKey struct{}

// WithQuery scopes graph loads made with ctx to the query id. Loads are
// shared within a query and never across queries.
func WithQuery(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryKey{}, id)
}

// QueryFromContext returns the query id set by WithQuery, or "" when none
func QueryFromContext(ctx context.Context) string {
	id, _ := ctx.Value(queryKey{}).(string)
	return id
}

// loadResult is a completed graph load
type loadResult struct {
	err error
}

// loader runs each named graph load at most once per query. Concurrent
// requests for the same graph in the same query join the pending load.
type loader struct {
	mu sync.Mutex
	// memo holds the completed loads of each active query
	memo   map[string]map[string]loadResult
	flight singleflight.Group
	// retryFailed keeps failed loads out of the memo
	retryFailed bool
	load        func(ctx context.Context, name string) error
}

func newLoader(load func(ctx context.Context, name string) error, retryFailed bool) *loader {
	return &loader{
		memo:        make(map[string]map[string]loadResult),
		retryFailed: retryFailed,
		load:        load,
	}
}

// ensure loads the named graph unless the query already loaded it
func (l *loader) ensure(ctx context.Context, name string) error {
	query := QueryFromContext(ctx)
	if res, ok := l.lookup(query, name, true); ok {
		graphLoadShared.Inc()
		return res.err
	}

	// The load is shared, so one caller's cancellation must not fail the others
	ch := l.flight.DoChan(query+"\x00"+name, func() (any, error) {
		// A flight for the same load may have finished since the lookup
		if res, ok := l.lookup(query, name, false); ok {
			return nil, res.err
		}
		err := l.load(context.WithoutCancel(ctx), name)
		l.record(query, name, err)
		return nil, err
	})

	select {
	case res := <-ch:
		if res.Shared {
			graphLoadShared.Inc()
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lookup returns the memoized load of name. With open set, the query's memo
// is created on first use.
func (l *loader) lookup(query, name string, open bool) (loadResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	loads, ok := l.memo[query]
	if !ok {
		if open {
			l.memo[query] = make(map[string]loadResult)
		}
		return loadResult{}, false
	}
	res, ok := loads[name]
	return res, ok
}

// record memoizes a finished load while its query is still active
func (l *loader) record(query, name string, err error) {
	if err != nil && l.retryFailed {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if loads, ok := l.memo[query]; ok {
		loads[name] = loadResult{err: err}
	}
}

// done forgets the loads of a query. Pending loads still complete for their
// waiters but are no longer memoized.
func (l *loader) done(query string) {
	l.mu.Lock()
	delete(l.memo, query)
	l.mu.Unlock()
}

// loaded returns the names of the graphs the query loaded successfully, sorted
func (l *loader) loaded(query string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var names []string
	for name, res := range l.memo[query] {
		if res.err == nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
