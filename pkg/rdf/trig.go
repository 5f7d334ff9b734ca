package rdf

// ParseTriG reads a TriG document: Turtle plus graph blocks. Triples outside
// a block, or inside an unlabelled block, are placed in the named graph
// graphName.
func ParseTriG(graphName string, body []byte) ([]Quad, error) {
	p := newTurtleReader(graphName, string(body))
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			return p.quads, nil
		}
		if err := p.parseTriGStatement(); err != nil {
			return nil, err
		}
	}
}

func (p *turtleReader) parseTriGStatement() error {
	switch {
	case p.matchExactKeyword("@prefix"):
		return p.parsePrefix(true)
	case p.matchKeyword("PREFIX"):
		return p.parsePrefix(false)
	case p.matchExactKeyword("@base"):
		return p.parseBase(true)
	case p.matchKeyword("BASE"):
		return p.parseBase(false)
	case p.matchKeyword("GRAPH"):
		p.skipWhitespaceAndComments()
		label, err := p.parseGraphLabel()
		if err != nil {
			return err
		}
		return p.parseGraphBlock(label)
	case p.peek() == '{':
		return p.parseGraphBlock(NewNamedNode(p.graphName))
	}

	// A label followed by '{' opens a block, anything else is a triples statement
	if ch := p.peek(); ch != '[' && ch != '(' {
		start := p.pos
		label, err := p.parseGraphLabel()
		if err == nil {
			p.skipWhitespaceAndComments()
			if p.peek() == '{' {
				return p.parseGraphBlock(label)
			}
		}
		p.pos = start
	}
	return p.parseTriples()
}

func (p *turtleReader) parseGraphLabel() (Node, error) {
	if p.peek() == '_' {
		return p.parseBlankNodeLabel()
	}
	if p.peek() == '<' {
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	}
	iri, err := p.parsePrefixedName()
	if err != nil {
		return nil, err
	}
	return NewNamedNode(iri), nil
}

// parseGraphBlock reads '{' triples* '}' into the graph label
func (p *turtleReader) parseGraphBlock(label Node) error {
	if err := p.expectByte('{'); err != nil {
		return err
	}
	outer := p.graph
	p.graph = label
	defer func() { p.graph = outer }()

	for {
		p.skipWhitespaceAndComments()
		switch {
		case p.pos >= p.length:
			return p.errorf("unterminated graph block")
		case p.peek() == '}':
			p.pos++
			return nil
		}
		if err := p.parseBlockTriples(); err != nil {
			return err
		}
	}
}

// parseBlockTriples is parseTriples where the final '.' before '}' is optional
func (p *turtleReader) parseBlockTriples() error {
	var subject Node
	var err error
	if p.peek() == '[' {
		subject, err = p.parseBlankNodePropertyList()
		if err != nil {
			return err
		}
		p.skipWhitespaceAndComments()
		if ch := p.peek(); ch == '.' || ch == '}' {
			if ch == '.' {
				p.pos++
			}
			return nil
		}
	} else {
		subject, err = p.parseSubject()
		if err != nil {
			return err
		}
	}

	if err := p.parsePredicateObjectList(subject); err != nil {
		return err
	}
	p.skipWhitespaceAndComments()
	if p.peek() == '}' {
		return nil
	}
	return p.expectByte('.')
}
