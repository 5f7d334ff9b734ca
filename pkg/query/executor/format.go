package executor

import (
	"strings"

	"github.com/dan-f/twinql/pkg/lang/parser"
	"github.com/dan-f/twinql/pkg/rdf"
)

// prefixMap maps prefix names to base URIs, remembering declaration order
type prefixMap struct {
	names []string
	uris  map[string]string
}

func newPrefixMap(prefixes []*parser.Prefix) *prefixMap {
	m := &prefixMap{uris: make(map[string]string, len(prefixes))}
	for _, p := range prefixes {
		name := p.Name.Value
		if _, ok := m.uris[name]; !ok {
			m.names = append(m.names, name)
		}
		m.uris[name] = p.URI.Value
	}
	return m
}

// toNode resolves an identifier to a named node
func (m *prefixMap) toNode(id parser.Identifier) (rdf.NamedNode, error) {
	switch id := id.(type) {
	case *parser.URI:
		return rdf.NewNamedNode(id.Value), nil
	case *parser.PrefixedURI:
		base, ok := m.uris[id.Prefix]
		if !ok || base == "" {
			return rdf.NamedNode{}, queryErrorf("Missing prefix definition for %q", id.Prefix)
		}
		return rdf.NewNamedNode(base + id.Path), nil
	default:
		return rdf.NamedNode{}, queryErrorf("Cannot convert %T to a named node", id)
	}
}

// toPrefixed abbreviates uri with the first declared prefix it starts with
func (m *prefixMap) toPrefixed(uri string) string {
	for _, name := range m.names {
		if base := m.uris[name]; strings.HasPrefix(uri, base) {
			return name + ":" + uri[len(base):]
		}
	}
	return uri
}

// context renders the "@context" of a response
func (m *prefixMap) context() map[string]any {
	ctx := make(map[string]any, len(m.uris))
	for name, uri := range m.uris {
		ctx[name] = uri
	}
	return ctx
}

// formatNode renders a node as a response value. Named nodes and plain
// literals become strings; other literals become value objects.
func formatNode(n rdf.Node) any {
	if n == nil {
		return nil
	}
	lit, ok := n.(rdf.Literal)
	if !ok || (lit.Datatype == "" && lit.Language == "") {
		return n.Value()
	}
	formatted := map[string]any{"@value": lit.Lexical}
	if lit.Datatype != "" {
		formatted["@type"] = lit.Datatype
	}
	if lit.Language != "" {
		formatted["@language"] = lit.Language
	}
	return formatted
}
