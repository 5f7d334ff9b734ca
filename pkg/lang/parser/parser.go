// Package parser compiles twinql query text into an AST.
//
// The grammar:
//
//	Query                 := PrefixList Identifier ContextSensitiveQuery EOF
//	PrefixList            := ('@prefix' NAME URI)*
//	ContextSensitiveQuery := NodeSpecifier Traversal
//	NodeSpecifier         := ε | '(' MatchList ')' | '=>' '(' MatchList ')'
//	MatchList             := Match*
//	Match                 := Identifier (Identifier | STRLIT | '(' MatchList ')')
//	Traversal             := '{' Selector* '}'
//	Selector              := Edge ContextSensitiveQuery?
//	Edge                  := Identifier | '[' Identifier ']'
//	Identifier            := URI | PREFIXED_URI
package parser

import (
	"github.com/dan-f/twinql/pkg/lang/lexer"
)

// Parser is a recursive-descent parser over a token stream
type Parser struct {
	input string
	t     *tokenStream
}

// NewParser creates a new parser
func NewParser(input string) *Parser {
	return &Parser{input: input}
}

// Parse parses query text into a Query
func Parse(input string) (*Query, error) {
	return NewParser(input).Parse()
}

// Parse parses the input into a Query. Lexer errors are returned as is.
func (p *Parser) Parse() (*Query, error) {
	t, err := newTokenStream(lexer.New(p.input))
	if err != nil {
		return nil, err
	}
	p.t = t
	return p.parseQuery()
}

func (p *Parser) parseQuery() (*Query, error) {
	prefixes, err := p.parsePrefixList()
	if err != nil {
		return nil, err
	}
	context, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}
	body, err := p.parseContextSensitiveQuery()
	if err != nil {
		return nil, err
	}
	if err := p.t.expect(lexer.EOF); err != nil {
		return nil, err
	}
	return &Query{Prefixes: prefixes, Context: context, Body: body}, nil
}

func (p *Parser) parsePrefixList() ([]*Prefix, error) {
	if err := p.t.expect(lexer.Prefix, lexer.URI, lexer.PrefixedURI); err != nil {
		return nil, err
	}
	var prefixes []*Prefix
	for p.t.current.Type != lexer.URI && p.t.current.Type != lexer.PrefixedURI {
		prefix, err := p.parsePrefix()
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

func (p *Parser) parsePrefix() (*Prefix, error) {
	if err := p.t.expect(lexer.Prefix); err != nil {
		return nil, err
	}
	if err := p.t.advance(); err != nil {
		return nil, err
	}
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	uri, err := p.parseURI()
	if err != nil {
		return nil, err
	}
	return &Prefix{Name: name, URI: uri}, nil
}

func (p *Parser) parseContextSensitiveQuery() (*ContextSensitiveQuery, error) {
	nodeSpec, err := p.parseNodeSpecifier()
	if err != nil {
		return nil, err
	}
	traversal, err := p.parseTraversal()
	if err != nil {
		return nil, err
	}
	return &ContextSensitiveQuery{NodeSpecifier: nodeSpec, Traversal: traversal}, nil
}

func (p *Parser) parseNodeSpecifier() (NodeSpecifier, error) {
	return dispatch(p.t, handlers[NodeSpecifier]{
		lexer.Arrow: func() (NodeSpecifier, error) {
			if err := p.t.advance(); err != nil {
				return nil, err
			}
			if err := p.t.expect(lexer.LParen); err != nil {
				return nil, err
			}
			return p.parseMatchingNodeSpecifier(ContextGraph)
		},
		lexer.LParen: func() (NodeSpecifier, error) {
			return p.parseMatchingNodeSpecifier(ContextSubject)
		},
		lexer.LBrace: func() (NodeSpecifier, error) {
			return &EmptyNodeSpecifier{}, nil
		},
	})
}

// parseMatchingNodeSpecifier parses '(' MatchList ')'
func (p *Parser) parseMatchingNodeSpecifier(contextType ContextType) (NodeSpecifier, error) {
	if err := p.t.advance(); err != nil {
		return nil, err
	}
	matches, err := p.parseMatchList()
	if err != nil {
		return nil, err
	}
	if err := p.t.expect(lexer.RParen); err != nil {
		return nil, err
	}
	if err := p.t.advance(); err != nil {
		return nil, err
	}
	return &MatchingNodeSpecifier{ContextType: contextType, Matches: matches}, nil
}

func (p *Parser) parseMatchList() ([]Match, error) {
	if err := p.t.expect(lexer.URI, lexer.PrefixedURI, lexer.RParen); err != nil {
		return nil, err
	}
	var matches []Match
	for p.t.current.Type != lexer.RParen {
		match, err := p.parseMatch()
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (p *Parser) parseMatch() (Match, error) {
	predicate, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}

	leaf := func(parse func() (MatchValue, error)) func() (Match, error) {
		return func() (Match, error) {
			value, err := parse()
			if err != nil {
				return nil, err
			}
			return &LeafMatch{Predicate: predicate, Value: value}, nil
		}
	}

	return dispatch(p.t, handlers[Match]{
		lexer.URI:         leaf(func() (MatchValue, error) { return p.parseURI() }),
		lexer.PrefixedURI: leaf(func() (MatchValue, error) { return p.parsePrefixedURI() }),
		lexer.StrLit:      leaf(func() (MatchValue, error) { return p.parseString() }),
		lexer.LParen: func() (Match, error) {
			nodeSpec, err := p.parseNodeSpecifier()
			if err != nil {
				return nil, err
			}
			return &IntermediateMatch{Predicate: predicate, NodeSpecifier: nodeSpec}, nil
		},
	})
}

func (p *Parser) parseTraversal() (*Traversal, error) {
	if err := p.t.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	if err := p.t.advance(); err != nil {
		return nil, err
	}

	var selectors []Selector
	for p.t.current.Type != lexer.RBrace {
		selector, err := p.parseSelector()
		if err != nil {
			return nil, err
		}
		selectors = append(selectors, selector)
	}

	if err := p.t.advance(); err != nil {
		return nil, err
	}
	return &Traversal{Selectors: selectors}, nil
}

func (p *Parser) parseSelector() (Selector, error) {
	edge, err := p.parseEdge()
	if err != nil {
		return nil, err
	}

	intermediate := func() (Selector, error) {
		query, err := p.parseContextSensitiveQuery()
		if err != nil {
			return nil, err
		}
		return &IntermediateSelector{Edge: edge, Query: query}, nil
	}

	// Without a nested query the selector is a leaf
	return dispatch(p.t, handlers[Selector]{
		lexer.LParen: intermediate,
		lexer.LBrace: intermediate,
		lexer.Arrow:  intermediate,
		anyToken: func() (Selector, error) {
			return &LeafSelector{Edge: edge}, nil
		},
	})
}

func (p *Parser) parseEdge() (Edge, error) {
	single := func() (Edge, error) {
		predicate, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}
		return &SingleEdge{Predicate: predicate}, nil
	}

	return dispatch(p.t, handlers[Edge]{
		lexer.LSquare: func() (Edge, error) {
			if err := p.t.advance(); err != nil {
				return nil, err
			}
			predicate, err := p.parseIdentifier()
			if err != nil {
				return nil, err
			}
			if err := p.t.expect(lexer.RSquare); err != nil {
				return nil, err
			}
			if err := p.t.advance(); err != nil {
				return nil, err
			}
			return &MultiEdge{Predicate: predicate}, nil
		},
		lexer.URI:         single,
		lexer.PrefixedURI: single,
	})
}

func (p *Parser) parseIdentifier() (Identifier, error) {
	return dispatch(p.t, handlers[Identifier]{
		lexer.URI:         func() (Identifier, error) { return p.parseURI() },
		lexer.PrefixedURI: func() (Identifier, error) { return p.parsePrefixedURI() },
	})
}

func (p *Parser) parseURI() (*URI, error) {
	if err := p.t.expect(lexer.URI); err != nil {
		return nil, err
	}
	uri := &URI{Value: p.t.current.Value}
	return uri, p.t.advance()
}

func (p *Parser) parsePrefixedURI() (*PrefixedURI, error) {
	if err := p.t.expect(lexer.PrefixedURI); err != nil {
		return nil, err
	}
	uri := &PrefixedURI{Prefix: p.t.current.Prefix, Path: p.t.current.Path}
	return uri, p.t.advance()
}

func (p *Parser) parseName() (*Name, error) {
	if err := p.t.expect(lexer.Name); err != nil {
		return nil, err
	}
	name := &Name{Value: p.t.current.Value}
	return name, p.t.advance()
}

func (p *Parser) parseString() (*StringLiteral, error) {
	if err := p.t.expect(lexer.StrLit); err != nil {
		return nil, err
	}
	str := &StringLiteral{Value: p.t.current.Value}
	return str, p.t.advance()
}
