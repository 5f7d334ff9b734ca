// Package backend provides the graph data sources a query runs against.
//
// A Backend answers two lookups, objects of a (subject, predicate) pair and
// subjects of a (predicate, object[, graph]) triple. Remote backends load
// named graphs over HTTP on demand and memoize the loads for the duration of
// a query.
package backend

import (
	"context"
	"sync/atomic"

	"github.com/dan-f/twinql/pkg/rdf"
)

// Backend is the data source a query is evaluated against
type Backend interface {
	// Objects returns every object o such that (subject, predicate, o) holds
	Objects(ctx context.Context, subject, predicate rdf.Node) (rdf.NodeSet, error)

	// Subjects returns every subject s such that (s, predicate, object)
	// holds. A nil graph means no graph filter.
	Subjects(ctx context.Context, predicate, object, graph rdf.Node) (rdf.NodeSet, error)

	// QueryDone is called exactly once after each query finishes, with the
	// context the query ran with
	QueryDone(ctx context.Context)
}

// Memory is a Backend over a single in-memory Graph
type Memory struct {
	graph atomic.Pointer[rdf.Graph]
}

// NewMemory creates a backend over g. A nil g is the empty graph.
func NewMemory(g *rdf.Graph) *Memory {
	if g == nil {
		g = rdf.NewGraph()
	}
	m := &Memory{}
	m.graph.Store(g)
	return m
}

// Graph returns the current graph
func (m *Memory) Graph() *rdf.Graph {
	return m.graph.Load()
}

func (m *Memory) Objects(_ context.Context, subject, predicate rdf.Node) (rdf.NodeSet, error) {
	return m.Graph().Match(rdf.Pattern{Subject: subject, Predicate: predicate})
}

func (m *Memory) Subjects(_ context.Context, predicate, object, graph rdf.Node) (rdf.NodeSet, error) {
	return m.Graph().Match(rdf.Pattern{Predicate: predicate, Object: object, Graph: graph})
}

// QueryDone is a no-op; the memory backend keeps no per-query state
func (m *Memory) QueryDone(context.Context) {}

// Merge replaces the graph with its union with g
func (m *Memory) Merge(g *rdf.Graph) {
	for {
		old := m.graph.Load()
		if m.graph.CompareAndSwap(old, old.Union(g)) {
			return
		}
	}
}
