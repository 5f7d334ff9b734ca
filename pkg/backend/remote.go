package backend

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dan-f/twinql/pkg/rdf"
)

// remote is a Memory backend that loads named graphs before answering
type remote struct {
	memory *Memory
	loader *loader
	opts   options
	logger *slog.Logger
}

func newRemote(retryFailed bool, opts ...Option) *remote {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &remote{
		memory: NewMemory(o.graph),
		opts:   o,
		logger: o.logger,
	}
	r.loader = newLoader(r.loadGraph, retryFailed)
	return r
}

// Objects loads the graph named by subject, then looks up its objects
func (r *remote) Objects(ctx context.Context, subject, predicate rdf.Node) (rdf.NodeSet, error) {
	if err := r.ensureGraphLoaded(ctx, subject); err != nil {
		return rdf.NodeSet{}, err
	}
	return r.memory.Objects(ctx, subject, predicate)
}

// Subjects loads graph when one is given, then looks up the subjects
func (r *remote) Subjects(ctx context.Context, predicate, object, graph rdf.Node) (rdf.NodeSet, error) {
	if graph != nil {
		if err := r.ensureGraphLoaded(ctx, graph); err != nil {
			return rdf.NodeSet{}, err
		}
	}
	return r.memory.Subjects(ctx, predicate, object, graph)
}

// QueryDone forgets which graphs were loaded during the query of ctx
func (r *remote) QueryDone(ctx context.Context) {
	r.loader.done(QueryFromContext(ctx))
}

// Graph returns everything loaded so far
func (r *remote) Graph() *rdf.Graph {
	return r.memory.Graph()
}

// Merge adds g to the loaded data
func (r *remote) Merge(g *rdf.Graph) {
	r.memory.Merge(g)
}

// Loaded returns the names of the graphs loaded during the query of ctx
func (r *remote) Loaded(ctx context.Context) []string {
	return r.loader.loaded(QueryFromContext(ctx))
}

// EnsureLoaded loads a named graph unless it was already loaded during the
// query of ctx
func (r *remote) EnsureLoaded(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	return r.loader.ensure(ctx, name)
}

func (r *remote) ensureGraphLoaded(ctx context.Context, n rdf.Node) error {
	name, ok := r.opts.namer.GraphName(n)
	if !ok {
		return nil
	}
	return r.EnsureLoaded(ctx, name)
}

// loadGraph fetches, parses and merges one named graph
func (r *remote) loadGraph(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "backend.LoadGraph",
		trace.WithAttributes(attribute.String("graph", name)),
	)
	defer span.End()

	start := time.Now()
	g, err := r.fetchGraph(ctx, name)
	duration := time.Since(start)
	graphLoadDuration.Observe(duration.Seconds())

	if err != nil {
		result := resultHTTPError
		var parseErr *rdf.ParseError
		if errors.As(err, &parseErr) {
			result = resultParseError
		}
		graphLoadTotal.WithLabelValues(result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "graph load failed")
		r.logger.Warn("graph load failed", "graph", name, "duration", duration, "error", err)
		return err
	}

	r.memory.Merge(g)
	graphLoadTotal.WithLabelValues(resultOK).Inc()
	span.SetAttributes(attribute.Int("quads", g.Len()))
	r.logger.Debug("graph loaded", "graph", name, "quads", g.Len(), "duration", duration)
	return nil
}

func (r *remote) fetchGraph(ctx context.Context, name string) (*rdf.Graph, error) {
	uri := name
	if r.opts.proxyURI != "" {
		uri = r.opts.proxyURI + url.QueryEscape(name)
	}

	body, err := r.opts.fetcher.Fetch(ctx, FetchRequest{
		URI:     uri,
		Headers: r.opts.headers,
		Timeout: r.opts.timeout,
	})
	if err != nil {
		return nil, err
	}

	quads, err := r.opts.parse(name, body)
	if err != nil {
		return nil, err
	}
	return rdf.FromQuads(quads)
}

// Web loads the named graph of every node it is asked about. A load,
// successful or not, is remembered until the query is done. Queries are
// told apart by the id set with WithQuery.
type Web struct {
	*remote
}

// NewWeb creates a web backend
func NewWeb(opts ...Option) *Web {
	return &Web{remote: newRemote(false, opts...)}
}

// LDP is like Web, except that a failed load is only shared with the
// requests that were waiting on it. A later request for the same graph
// within the query fetches it again.
type LDP struct {
	*remote
}

// NewLDP creates an LDP backend
func NewLDP(opts ...Option) *LDP {
	return &LDP{remote: newRemote(true, opts...)}
}
