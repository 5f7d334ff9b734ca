package parser

// Query is the root of a parsed query
type Query struct {
	Prefixes []*Prefix
	Context  Identifier
	Body     *ContextSensitiveQuery
}

// Prefix declares a short name for a base URI
type Prefix struct {
	Name *Name
	URI  *URI
}

// ContextSensitiveQuery filters the nodes in context and traverses from them
type ContextSensitiveQuery struct {
	NodeSpecifier NodeSpecifier
	Traversal     *Traversal
}

// NodeSpecifier is implemented by *EmptyNodeSpecifier and *MatchingNodeSpecifier
type NodeSpecifier interface {
	nodeSpecifier()
}

// EmptyNodeSpecifier selects the context node itself
type EmptyNodeSpecifier struct{}

// ContextType tells whether the nodes in context are subjects or named graphs
type ContextType int

const (
	ContextSubject ContextType = iota
	ContextGraph
)

func (c ContextType) String() string {
	if c == ContextGraph {
		return "graph"
	}
	return "subject"
}

// MatchingNodeSpecifier selects the nodes satisfying every match
type MatchingNodeSpecifier struct {
	ContextType ContextType
	Matches     []Match
}

func (*EmptyNodeSpecifier) nodeSpecifier()    {}
func (*MatchingNodeSpecifier) nodeSpecifier() {}

// Match is implemented by *LeafMatch and *IntermediateMatch
type Match interface {
	match()
	MatchPredicate() Identifier
}

// LeafMatch requires the predicate to point at a fixed value
type LeafMatch struct {
	Predicate Identifier
	Value     MatchValue
}

// IntermediateMatch requires the predicate to point at a node satisfying a
// nested node specifier
type IntermediateMatch struct {
	Predicate     Identifier
	NodeSpecifier NodeSpecifier
}

func (*LeafMatch) match()         {}
func (*IntermediateMatch) match() {}

func (m *LeafMatch) MatchPredicate() Identifier         { return m.Predicate }
func (m *IntermediateMatch) MatchPredicate() Identifier { return m.Predicate }

// MatchValue is implemented by *URI, *PrefixedURI and *StringLiteral
type MatchValue interface {
	matchValue()
}

// Traversal lists the edges to follow from a node
type Traversal struct {
	Selectors []Selector
}

// Selector is implemented by *LeafSelector and *IntermediateSelector
type Selector interface {
	selector()
	SelectorEdge() Edge
}

// LeafSelector emits the values at the end of an edge
type LeafSelector struct {
	Edge Edge
}

// IntermediateSelector runs a nested query on the nodes at the end of an edge
type IntermediateSelector struct {
	Edge  Edge
	Query *ContextSensitiveQuery
}

func (*LeafSelector) selector()         {}
func (*IntermediateSelector) selector() {}

func (s *LeafSelector) SelectorEdge() Edge         { return s.Edge }
func (s *IntermediateSelector) SelectorEdge() Edge { return s.Edge }

// Edge is implemented by *SingleEdge and *MultiEdge
type Edge interface {
	edge()
	EdgePredicate() Identifier
}

// SingleEdge expects at most one value
type SingleEdge struct {
	Predicate Identifier
}

// MultiEdge collects every value
type MultiEdge struct {
	Predicate Identifier
}

func (*SingleEdge) edge() {}
func (*MultiEdge) edge()  {}

func (e *SingleEdge) EdgePredicate() Identifier { return e.Predicate }
func (e *MultiEdge) EdgePredicate() Identifier  { return e.Predicate }

// Identifier is implemented by *URI and *PrefixedURI
type Identifier interface {
	MatchValue
	identifier()
}

type URI struct {
	Value string
}

// PrefixedURI is a URI abbreviated as prefix:path
type PrefixedURI struct {
	Prefix string
	Path   string
}

type Name struct {
	Value string
}

type StringLiteral struct {
	Value string
}

func (*URI) matchValue()           {}
func (*PrefixedURI) matchValue()   {}
func (*StringLiteral) matchValue() {}

func (*URI) identifier()         {}
func (*PrefixedURI) identifier() {}
