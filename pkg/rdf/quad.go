package rdf

import (
	"fmt"
)

// Quad represents an RDF quad (subject, predicate, object, graph). The graph
// is the named graph the fact was sourced from.
type Quad struct {
	Subject   Node
	Predicate Node
	Object    Node
	Graph     Node
}

func NewQuad(subject, predicate, object, graph Node) Quad {
	return Quad{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Graph:     graph,
	}
}

// Valid reports whether all four positions are set
func (q Quad) Valid() bool {
	return q.Subject != nil && q.Predicate != nil && q.Object != nil && q.Graph != nil
}

func (q Quad) String() string {
	return fmt.Sprintf("%s %s %s %s .", nodeString(q.Subject), nodeString(q.Predicate), nodeString(q.Object), nodeString(q.Graph))
}

func nodeString(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}
