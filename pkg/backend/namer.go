package backend

import (
	"strings"

	"github.com/dan-f/twinql/pkg/rdf"
)

// GraphNamer decides which named graph must be loaded to learn about a node
type GraphNamer interface {
	GraphName(n rdf.Node) (string, bool)
}

// GraphNamerFunc adapts a function to the GraphNamer interface
type GraphNamerFunc func(n rdf.Node) (string, bool)

func (f GraphNamerFunc) GraphName(n rdf.Node) (string, bool) {
	return f(n)
}

// FragmentGraphNamer names the graph of a NamedNode by dropping the fragment
// from its IRI. Other nodes have no graph.
var FragmentGraphNamer GraphNamer = GraphNamerFunc(func(n rdf.Node) (string, bool) {
	named, ok := n.(rdf.NamedNode)
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(named.IRI, "#")
	return name, name != ""
})
