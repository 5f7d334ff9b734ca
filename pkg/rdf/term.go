package rdf

import (
	"strings"
)

// NodeKind identifies the variant of a Node
type NodeKind byte

const (
	KindNamedNode NodeKind = iota + 1
	KindBlankNode
	KindLiteral
)

func (k NodeKind) String() string {
	switch k {
	case KindNamedNode:
		return "NamedNode"
	case KindBlankNode:
		return "BlankNode"
	case KindLiteral:
		return "Literal"
	default:
		return "unknown"
	}
}

// Node is an RDF term: a NamedNode, a BlankNode or a Literal.
//
// All implementations are comparable value types, so two nodes are equal
// exactly when they are == (structural equality).
type Node interface {
	Kind() NodeKind
	// Value returns the IRI, blank node label or lexical form
	Value() string
	// String returns the N-Triples form of the node
	String() string
	isNode()
}

// NamedNode represents an IRI
type NamedNode struct {
	IRI string
}

func NewNamedNode(iri string) NamedNode {
	return NamedNode{IRI: iri}
}

func (n NamedNode) Kind() NodeKind { return KindNamedNode }
func (n NamedNode) Value() string  { return n.IRI }
func (n NamedNode) String() string { return "<" + escapeIRI(n.IRI) + ">" }
func (NamedNode) isNode()          {}

// BlankNode represents a blank node
type BlankNode struct {
	ID string
}

func NewBlankNode(id string) BlankNode {
	return BlankNode{ID: id}
}

func (b BlankNode) Kind() NodeKind { return KindBlankNode }
func (b BlankNode) Value() string  { return b.ID }
func (b BlankNode) String() string { return "_:" + b.ID }
func (BlankNode) isNode()          {}

// Literal represents an RDF literal. Datatype holds the datatype IRI and is
// empty for plain and language-tagged literals.
type Literal struct {
	Lexical  string
	Language string
	Datatype string
}

func NewLiteral(value string) Literal {
	return Literal{Lexical: value}
}

func NewLiteralWithLanguage(value, language string) Literal {
	return Literal{Lexical: value, Language: language}
}

func NewLiteralWithDatatype(value, datatype string) Literal {
	if datatype == XSDString {
		datatype = ""
	}
	return Literal{Lexical: value, Datatype: datatype}
}

func (l Literal) Kind() NodeKind { return KindLiteral }
func (l Literal) Value() string  { return l.Lexical }
func (Literal) isNode()          {}

func (l Literal) String() string {
	result := `"` + escapeLiteral(l.Lexical) + `"`
	if l.Language != "" {
		result += "@" + l.Language
	} else if l.Datatype != "" {
		result += "^^<" + escapeIRI(l.Datatype) + ">"
	}
	return result
}

// Common datatype and vocabulary IRIs
const (
	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDouble  = "http://www.w3.org/2001/XMLSchema#double"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
	RDFType    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
)

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

var iriEscaper = strings.NewReplacer(
	">", `\u003E`,
	`\`, `\u005C`,
)

func escapeIRI(s string) string {
	return iriEscaper.Replace(s)
}
