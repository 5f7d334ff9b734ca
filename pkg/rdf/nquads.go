package rdf

import (
	"sort"
	"strings"
)

// SerializeNQuads writes the quads of a graph in N-Quads format, one
// statement per line, sorted for stable output
func SerializeNQuads(g *Graph) string {
	quads := g.Quads()
	if len(quads) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, q := range quads {
		builder.WriteString(q.Subject.String())
		builder.WriteString(" ")
		builder.WriteString(q.Predicate.String())
		builder.WriteString(" ")
		builder.WriteString(q.Object.String())
		builder.WriteString(" ")
		builder.WriteString(q.Graph.String())
		builder.WriteString(" .\n")
	}
	return builder.String()
}

func sortQuads(quads []Quad) {
	sort.Slice(quads, func(i, j int) bool {
		a, b := quads[i], quads[j]
		if c := strings.Compare(a.Graph.String(), b.Graph.String()); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.Subject.String(), b.Subject.String()); c != 0 {
			return c < 0
		}
		if c := strings.Compare(a.Predicate.String(), b.Predicate.String()); c != 0 {
			return c < 0
		}
		return a.Object.String() < b.Object.String()
	})
}

// ParseNQuads reads an N-Quads document. Statements without a graph label
// are placed in the named graph graphName.
func ParseNQuads(graphName string, body []byte) ([]Quad, error) {
	p := newTurtleReader(graphName, string(body))
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			return p.quads, nil
		}
		if err := p.parseStatement(); err != nil {
			return nil, err
		}
	}
}

// parseStatement reads one N-Quads statement
func (p *turtleReader) parseStatement() error {
	subject, err := p.parseNQuadsResource()
	if err != nil {
		return err
	}

	p.skipWhitespaceAndComments()
	if p.peek() != '<' {
		return p.errorf("expected IRI as predicate")
	}
	iri, err := p.parseIRI()
	if err != nil {
		return err
	}
	predicate := NewNamedNode(iri)

	p.skipWhitespaceAndComments()
	var object Node
	if ch := p.peek(); ch == '"' {
		object, err = p.parseLiteral()
	} else {
		object, err = p.parseNQuadsResource()
	}
	if err != nil {
		return err
	}

	graph := p.graph
	p.skipWhitespaceAndComments()
	if p.peek() != '.' {
		graph, err = p.parseNQuadsResource()
		if err != nil {
			return err
		}
	}
	if err := p.expectByte('.'); err != nil {
		return err
	}

	p.quads = append(p.quads, NewQuad(subject, predicate, object, graph))
	return nil
}

func (p *turtleReader) parseNQuadsResource() (Node, error) {
	p.skipWhitespaceAndComments()
	switch p.peek() {
	case '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	case '_':
		return p.parseBlankNodeLabel()
	default:
		return nil, p.errorf("expected IRI or blank node")
	}
}
