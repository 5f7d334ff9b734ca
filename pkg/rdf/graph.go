package rdf

import (
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// GraphError is returned for unsupported match patterns and malformed input
// to a Graph
type GraphError struct {
	Message string
}

func (e *GraphError) Error() string {
	return e.Message
}

// indexKey identifies a tuple of nodes. Tuples are hashed with 128-bit xxh3
// over their N-Triples forms.
type indexKey = xxh3.Uint128

func tupleKey(nodes ...Node) indexKey {
	var b strings.Builder
	for _, n := range nodes {
		s := n.String()
		// Length-prefix each member so adjacent terms cannot run together
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return xxh3.HashString128(b.String())
}

// Graph is an immutable index over a set of quads.
//
// It maintains three indexes:
//   - sp:  (subject, predicate) -> objects
//   - po:  (predicate, object) -> subjects
//   - pog: (predicate, object, graph) -> subjects
//
// A Graph is never modified after construction; Union produces a new Graph.
type Graph struct {
	sp    map[indexKey]NodeSet
	po    map[indexKey]NodeSet
	pog   map[indexKey]NodeSet
	quads map[indexKey]Quad
}

// NewGraph returns the empty graph
func NewGraph() *Graph {
	return &Graph{
		sp:    map[indexKey]NodeSet{},
		po:    map[indexKey]NodeSet{},
		pog:   map[indexKey]NodeSet{},
		quads: map[indexKey]Quad{},
	}
}

// FromQuads builds a graph from a batch of quads in a single pass
func FromQuads(quads []Quad) (*Graph, error) {
	g := NewGraph()
	for i, q := range quads {
		if !q.Valid() {
			return nil, &GraphError{Message: "quad " + strconv.Itoa(i) + " is missing a subject, predicate, object or graph"}
		}
		qk := tupleKey(q.Subject, q.Predicate, q.Object, q.Graph)
		if _, ok := g.quads[qk]; ok {
			continue
		}
		g.quads[qk] = q
		addToIndex(g.sp, tupleKey(q.Subject, q.Predicate), q.Object)
		addToIndex(g.po, tupleKey(q.Predicate, q.Object), q.Subject)
		addToIndex(g.pog, tupleKey(q.Predicate, q.Object, q.Graph), q.Subject)
	}
	return g, nil
}

func addToIndex(index map[indexKey]NodeSet, key indexKey, n Node) {
	set, ok := index[key]
	if !ok {
		index[key] = NewNodeSet(n)
		return
	}
	// The set is private to the graph under construction
	set.tree.Set(nodeItem{key: n.String(), node: n})
}

// Pattern selects which index Match consults. Unset positions are nil.
type Pattern struct {
	Subject   Node
	Predicate Node
	Object    Node
	Graph     Node
}

// Match finds the nodes matching a pattern:
//   - {Subject, Predicate} gives all matching objects
//   - {Predicate, Object} gives all matching subjects
//   - {Predicate, Object, Graph} gives all matching subjects within a named graph
//
// Any other combination of fields returns a GraphError. Missing index
// entries yield the empty set.
func (g *Graph) Match(p Pattern) (NodeSet, error) {
	switch {
	case p.Subject != nil && p.Predicate != nil && p.Object == nil && p.Graph == nil:
		return g.sp[tupleKey(p.Subject, p.Predicate)], nil
	case p.Subject == nil && p.Predicate != nil && p.Object != nil && p.Graph == nil:
		return g.po[tupleKey(p.Predicate, p.Object)], nil
	case p.Subject == nil && p.Predicate != nil && p.Object != nil && p.Graph != nil:
		return g.pog[tupleKey(p.Predicate, p.Object, p.Graph)], nil
	default:
		return NodeSet{}, &GraphError{
			Message: "unsupported graph match: must provide either {subject, predicate} or {predicate, object[, graph]}",
		}
	}
}

// Union returns a new graph holding the quads of both graphs. Neither input
// is modified.
func (g *Graph) Union(other *Graph) *Graph {
	if other == nil || other.Len() == 0 {
		return g
	}
	if g.Len() == 0 {
		return other
	}
	return &Graph{
		sp:    mergeIndex(g.sp, other.sp),
		po:    mergeIndex(g.po, other.po),
		pog:   mergeIndex(g.pog, other.pog),
		quads: mergeQuads(g.quads, other.quads),
	}
}

func mergeIndex(a, b map[indexKey]NodeSet) map[indexKey]NodeSet {
	merged := make(map[indexKey]NodeSet, len(a)+len(b))
	for k, set := range a {
		merged[k] = set
	}
	for k, set := range b {
		merged[k] = merged[k].Union(set)
	}
	return merged
}

func mergeQuads(a, b map[indexKey]Quad) map[indexKey]Quad {
	merged := make(map[indexKey]Quad, len(a)+len(b))
	for k, q := range a {
		merged[k] = q
	}
	for k, q := range b {
		merged[k] = q
	}
	return merged
}

// Len returns the number of distinct quads in the graph
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.quads)
}

// Quads returns the quads of the graph in N-Quads order
func (g *Graph) Quads() []Quad {
	quads := make([]Quad, 0, g.Len())
	if g == nil {
		return quads
	}
	for _, q := range g.quads {
		quads = append(quads, q)
	}
	sortQuads(quads)
	return quads
}

// Equal reports whether both graphs hold the same quads
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	if g.Len() == 0 {
		return true
	}
	for k := range g.quads {
		if _, ok := other.quads[k]; !ok {
			return false
		}
	}
	return true
}
