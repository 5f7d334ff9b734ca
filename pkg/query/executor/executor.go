// Package executor evaluates parsed queries against a backend and builds
// JSON-LD style response trees.
//
// Evaluation starts from the query's context node, filters it through the
// node specifier, and traverses the selected nodes' edges. Independent
// branches (matches, selectors, the members of a multi edge) are evaluated
// concurrently. Errors in a node specifier make it match nothing. Errors
// while traversing a node are embedded in that node's result when their kind
// is inlineable, and fail the query otherwise.
package executor

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dan-f/twinql/pkg/backend"
	"github.com/dan-f/twinql/pkg/lang/parser"
	"github.com/dan-f/twinql/pkg/rdf"
)

// Response is the result tree of a query
type Response map[string]any

// Executor runs queries against a backend
type Executor struct {
	backend        backend.Backend
	inline         map[ErrorKind]bool
	maxConcurrency int
	logger         *slog.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithInlineErrors sets the error kinds embedded in results instead of
// failing the query
func WithInlineErrors(kinds ...ErrorKind) Option {
	return func(e *Executor) {
		e.inline = make(map[ErrorKind]bool, len(kinds))
		for _, k := range kinds {
			e.inline[k] = true
		}
	}
}

// WithMaxConcurrency bounds the goroutines of each fan-out. Zero means no bound.
func WithMaxConcurrency(n int) Option {
	return func(e *Executor) { e.maxConcurrency = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an Executor over b
func New(b backend.Backend, opts ...Option) *Executor {
	e := &Executor{
		backend: b,
		logger:  slog.Default(),
	}
	WithInlineErrors(DefaultInlineErrors...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query parses and executes a query
func (e *Executor) Query(ctx context.Context, text string) (Response, error) {
	q, err := parser.Parse(text)
	if err != nil {
		queryTotal.WithLabelValues(resultCompileError).Inc()
		return nil, err
	}
	return e.Execute(ctx, q)
}

// Execute evaluates a parsed query. The backend is told the query is done
// when Execute returns, whether or not it succeeded.
func (e *Executor) Execute(ctx context.Context, q *parser.Query) (Response, error) {
	queryID := uuid.NewString()
	ctx, span := tracer.Start(backend.WithQuery(ctx, queryID), "executor.Execute",
		trace.WithAttributes(attribute.String("query_id", queryID)),
	)
	defer span.End()
	defer e.backend.QueryDone(ctx)

	logger := e.logger.With("query_id", queryID)
	logger.Debug("query started", "prefixes", len(q.Prefixes))
	start := time.Now()

	r := &run{Executor: e, prefixes: newPrefixMap(q.Prefixes), logger: logger}
	resp, err := r.query(ctx, q)

	duration := time.Since(start)
	queryDuration.Observe(duration.Seconds())
	if err != nil {
		queryTotal.WithLabelValues(resultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		logger.Debug("query failed", "duration", duration, "error", err)
		return nil, err
	}
	queryTotal.WithLabelValues(resultOK).Inc()
	logger.Debug("query finished", "duration", duration)
	return resp, nil
}

// run holds the state of a single query evaluation
type run struct {
	*Executor
	prefixes *prefixMap
	logger   *slog.Logger
}

func (r *run) query(ctx context.Context, q *parser.Query) (Response, error) {
	contextNode, err := r.prefixes.toNode(q.Context)
	if err != nil {
		return nil, err
	}
	result, err := r.contextSensitiveQuery(ctx, contextNode, q.Body)
	if err != nil {
		return nil, err
	}

	resp := make(Response, len(result)+1)
	if len(q.Prefixes) > 0 {
		resp["@context"] = r.prefixes.context()
	}
	maps.Copy(resp, result)
	return resp, nil
}

// group returns an errgroup honoring the concurrency bound
func (r *run) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	if r.maxConcurrency > 0 {
		g.SetLimit(r.maxConcurrency)
	}
	return g, ctx
}

// contextSensitiveQuery selects nodes from the context node and traverses
// each of them
func (r *run) contextSensitiveQuery(ctx context.Context, node rdf.Node, csq *parser.ContextSensitiveQuery) (map[string]any, error) {
	nodes, err := r.specifiedNodes(ctx, rdf.NewNodeSet(node), csq.NodeSpecifier)
	if err != nil {
		return nil, err
	}

	selected := nodes.Nodes()
	results := make([]any, len(selected))
	g, gctx := r.group(ctx)
	for i, n := range selected {
		g.Go(func() error {
			result, err := r.traverse(gctx, n, csq.Traversal)
			results[i] = result
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return map[string]any{}, nil
	}
	switch spec := csq.NodeSpecifier.(type) {
	case *parser.EmptyNodeSpecifier:
		return results[0].(map[string]any), nil
	case *parser.MatchingNodeSpecifier:
		if spec.ContextType == parser.ContextGraph {
			return map[string]any{
				"@id":    node.Value(),
				"@graph": results,
			}, nil
		}
		return results[0].(map[string]any), nil
	default:
		return nil, queryErrorf("Invalid node specifier type %T", spec)
	}
}

// specifiedNodes returns the nodes of scope selected by spec
func (r *run) specifiedNodes(ctx context.Context, scope rdf.NodeSet, spec parser.NodeSpecifier) (rdf.NodeSet, error) {
	switch spec := spec.(type) {
	case *parser.EmptyNodeSpecifier:
		return scope, nil
	case *parser.MatchingNodeSpecifier:
		return r.matchesMatchList(ctx, scope, spec.ContextType, spec.Matches)
	default:
		return rdf.NodeSet{}, queryErrorf("Invalid node specifier type %T", spec)
	}
}

// matchesMatchList returns the nodes of context satisfying every match
func (r *run) matchesMatchList(ctx context.Context, scope rdf.NodeSet, contextType parser.ContextType, matches []parser.Match) (rdf.NodeSet, error) {
	if len(matches) == 0 {
		return scope, nil
	}

	sets := make([]rdf.NodeSet, len(matches))
	g, gctx := r.group(ctx)
	for i, m := range matches {
		g.Go(func() error {
			sets[i] = r.matches(gctx, scope, contextType, m)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return rdf.NodeSet{}, err
	}

	result := sets[0]
	for _, s := range sets[1:] {
		result = result.Intersect(s)
	}
	return result, nil
}

// matches returns the nodes of context satisfying m. Failures match nothing.
func (r *run) matches(ctx context.Context, scope rdf.NodeSet, contextType parser.ContextType, m parser.Match) rdf.NodeSet {
	var (
		nodes rdf.NodeSet
		err   error
	)
	switch contextType {
	case parser.ContextSubject:
		nodes, err = r.subjectMatch(ctx, scope, m)
	case parser.ContextGraph:
		nodes, err = r.graphMatch(ctx, scope, m)
	default:
		err = queryErrorf("Invalid context type %v", contextType)
	}
	if err != nil {
		r.logger.Debug("match failed", "context_type", contextType.String(), "error", err)
		return rdf.NodeSet{}
	}
	return nodes
}

// subjectMatch keeps the subjects in context whose predicate points at a
// node matching m
func (r *run) subjectMatch(ctx context.Context, scope rdf.NodeSet, m parser.Match) (rdf.NodeSet, error) {
	predicate, err := r.prefixes.toNode(m.MatchPredicate())
	if err != nil {
		return rdf.NodeSet{}, err
	}
	objects, err := r.unionEach(ctx, scope, func(ctx context.Context, n rdf.Node) (rdf.NodeSet, error) {
		return r.backend.Objects(ctx, n, predicate)
	})
	if err != nil {
		return rdf.NodeSet{}, err
	}

	var candidates rdf.NodeSet
	switch m := m.(type) {
	case *parser.LeafMatch:
		candidates, err = r.valueNodes(m.Value)
	case *parser.IntermediateMatch:
		candidates, err = r.specifiedNodes(ctx, objects, m.NodeSpecifier)
	default:
		err = queryErrorf("Invalid match type %T", m)
	}
	if err != nil {
		return rdf.NodeSet{}, err
	}

	subjects, err := r.unionEach(ctx, candidates, func(ctx context.Context, n rdf.Node) (rdf.NodeSet, error) {
		return r.backend.Subjects(ctx, predicate, n, nil)
	})
	if err != nil {
		return rdf.NodeSet{}, err
	}
	return scope.Intersect(subjects), nil
}

// graphMatch returns the subjects, within the named graphs in context, whose
// predicate points at the value of m
func (r *run) graphMatch(ctx context.Context, scope rdf.NodeSet, m parser.Match) (rdf.NodeSet, error) {
	predicate, err := r.prefixes.toNode(m.MatchPredicate())
	if err != nil {
		return rdf.NodeSet{}, err
	}
	leaf, ok := m.(*parser.LeafMatch)
	if !ok {
		return rdf.NodeSet{}, queryErrorf("Nested matches are not supported in a graph context")
	}
	candidates, err := r.valueNodes(leaf.Value)
	if err != nil {
		return rdf.NodeSet{}, err
	}

	return r.unionEach(ctx, scope, func(ctx context.Context, graph rdf.Node) (rdf.NodeSet, error) {
		return r.unionEach(ctx, candidates, func(ctx context.Context, n rdf.Node) (rdf.NodeSet, error) {
			return r.backend.Subjects(ctx, predicate, n, graph)
		})
	})
}

// valueNodes converts a leaf match value to a node
func (r *run) valueNodes(v parser.MatchValue) (rdf.NodeSet, error) {
	switch v := v.(type) {
	case *parser.StringLiteral:
		return rdf.NewNodeSet(rdf.NewLiteral(v.Value)), nil
	case parser.Identifier:
		n, err := r.prefixes.toNode(v)
		if err != nil {
			return rdf.NodeSet{}, err
		}
		return rdf.NewNodeSet(n), nil
	default:
		return rdf.NodeSet{}, queryErrorf("Invalid match value type %T", v)
	}
}

// unionEach calls fn concurrently for every node of set and unions the results
func (r *run) unionEach(ctx context.Context, set rdf.NodeSet, fn func(context.Context, rdf.Node) (rdf.NodeSet, error)) (rdf.NodeSet, error) {
	nodes := set.Nodes()
	results := make([]rdf.NodeSet, len(nodes))
	g, gctx := r.group(ctx)
	for i, n := range nodes {
		g.Go(func() error {
			s, err := fn(gctx, n)
			results[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return rdf.NodeSet{}, err
	}

	var union rdf.NodeSet
	for _, s := range results {
		union = union.Union(s)
	}
	return union, nil
}

// selection is the response entry produced by one selector
type selection struct {
	key   string
	value any
}

// traverse evaluates every selector of traversal on node. The first failing
// selector, in query order, decides whether the node renders an "@error" or
// the query fails.
func (r *run) traverse(ctx context.Context, node rdf.Node, traversal *parser.Traversal) (map[string]any, error) {
	selectors := traversal.Selectors
	selections := make([]selection, len(selectors))
	errs := make([]error, len(selectors))

	g, gctx := r.group(ctx)
	for i, sel := range selectors {
		g.Go(func() error {
			selections[i], errs[i] = r.selector(gctx, node, sel)
			return nil
		})
	}
	_ = g.Wait()

	result := map[string]any{"@id": node.Value()}
	for i, err := range errs {
		if err == nil {
			result[selections[i].key] = selections[i].value
			continue
		}
		if !r.inlineable(err) {
			return nil, err
		}
		kind, _ := ClassifyError(err)
		inlineErrorTotal.WithLabelValues(string(kind)).Inc()
		r.logger.Debug("inlining traversal error", "node", node.Value(), "error", err)
		return map[string]any{
			"@id":    node.Value(),
			"@error": FormatError(err),
		}, nil
	}
	return result, nil
}

func (r *run) inlineable(err error) bool {
	kind, ok := ClassifyError(err)
	return ok && r.inline[kind]
}

// selector follows one edge from node
func (r *run) selector(ctx context.Context, node rdf.Node, sel parser.Selector) (selection, error) {
	edge := sel.SelectorEdge()
	predicate, err := r.prefixes.toNode(edge.EdgePredicate())
	if err != nil {
		return selection{}, err
	}
	objects, err := r.backend.Objects(ctx, node, predicate)
	if err != nil {
		return selection{}, err
	}
	key := r.prefixes.toPrefixed(predicate.IRI)

	switch sel := sel.(type) {
	case *parser.LeafSelector:
		value, err := leafValue(edge, objects)
		return selection{key: key, value: value}, err
	case *parser.IntermediateSelector:
		value, err := r.intermediateValue(ctx, edge, objects, sel.Query)
		return selection{key: key, value: value}, err
	default:
		return selection{}, queryErrorf("Invalid selector type %T", sel)
	}
}

func leafValue(edge parser.Edge, objects rdf.NodeSet) (any, error) {
	switch edge.(type) {
	case *parser.SingleEdge:
		first, _ := objects.First()
		return formatNode(first), nil
	case *parser.MultiEdge:
		values := make([]any, 0, objects.Len())
		objects.Each(func(n rdf.Node) bool {
			values = append(values, formatNode(n))
			return true
		})
		return values, nil
	default:
		return nil, queryErrorf("Invalid edge type %T", edge)
	}
}

func (r *run) intermediateValue(ctx context.Context, edge parser.Edge, objects rdf.NodeSet, csq *parser.ContextSensitiveQuery) (any, error) {
	switch edge.(type) {
	case *parser.SingleEdge:
		first, ok := objects.First()
		if !ok {
			return nil, nil
		}
		return r.contextSensitiveQuery(ctx, first, csq)
	case *parser.MultiEdge:
		nodes := objects.Nodes()
		values := make([]any, len(nodes))
		g, gctx := r.group(ctx)
		for i, n := range nodes {
			g.Go(func() error {
				result, err := r.contextSensitiveQuery(gctx, n, csq)
				values[i] = result
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return values, nil
	default:
		return nil, queryErrorf("Invalid edge type %T", edge)
	}
}
