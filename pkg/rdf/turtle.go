package rdf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseError is returned when a Turtle document cannot be read
type ParseError struct {
	Graph   string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Graph != "" {
		return fmt.Sprintf("%s (%s at %d:%d)", e.Message, e.Graph, e.Line, e.Column)
	}
	return fmt.Sprintf("%s (at %d:%d)", e.Message, e.Line, e.Column)
}

const (
	rdfFirst = "http://www.w3.org/1999/02/22-rdf-syntax-ns#first"
	rdfRest  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#rest"
	rdfNil   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#nil"
)

// ParseTurtle reads a Turtle document into quads scoped to the named graph
// graphName. Relative IRIs are resolved against graphName unless the
// document declares its own base.
func ParseTurtle(graphName string, body []byte) ([]Quad, error) {
	p := newTurtleReader(graphName, string(body))
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.quads, nil
}

// turtleReader is a Turtle reader covering directives, prefixed names,
// blank node property lists, collections and all literal forms
type turtleReader struct {
	input        string
	pos          int
	length       int
	prefixes     map[string]string
	base         string
	graph        Node
	graphName    string
	blankCounter int
	quads        []Quad
}

func newTurtleReader(graphName, input string) *turtleReader {
	return &turtleReader{
		input:     input,
		length:    len(input),
		prefixes:  make(map[string]string),
		base:      graphName,
		graph:     NewNamedNode(graphName),
		graphName: graphName,
	}
}

func (p *turtleReader) errorf(format string, args ...any) error {
	consumed := p.input[:min(p.pos, p.length)]
	line := strings.Count(consumed, "\n") + 1
	column := len(consumed) - (strings.LastIndexByte(consumed, '\n') + 1)
	return &ParseError{
		Graph:   p.graphName,
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *turtleReader) emit(subject, predicate, object Node) {
	p.quads = append(p.quads, NewQuad(subject, predicate, object, p.graph))
}

func (p *turtleReader) parse() error {
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			return nil
		}

		switch {
		case p.matchExactKeyword("@prefix"):
			if err := p.parsePrefix(true); err != nil {
				return err
			}
		case p.matchKeyword("PREFIX"):
			if err := p.parsePrefix(false); err != nil {
				return err
			}
		case p.matchExactKeyword("@base"):
			if err := p.parseBase(true); err != nil {
				return err
			}
		case p.matchKeyword("BASE"):
			if err := p.parseBase(false); err != nil {
				return err
			}
		default:
			if err := p.parseTriples(); err != nil {
				return err
			}
		}
	}
}

func (p *turtleReader) skipWhitespaceAndComments() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		return
	}
}

func (p *turtleReader) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *turtleReader) expectByte(ch byte) error {
	p.skipWhitespaceAndComments()
	if p.peek() != ch {
		if p.pos >= p.length {
			return p.errorf("expected '%c' but reached end of input", ch)
		}
		return p.errorf("expected '%c' but found '%c'", ch, p.input[p.pos])
	}
	p.pos++
	return nil
}

// matchKeyword consumes a case-insensitive keyword followed by a non-word character
func (p *turtleReader) matchKeyword(keyword string) bool {
	end := p.pos + len(keyword)
	if end > p.length || !strings.EqualFold(p.input[p.pos:end], keyword) {
		return false
	}
	if !p.keywordBoundary(end) {
		return false
	}
	p.pos = end
	return true
}

// matchExactKeyword is matchKeyword with a case-sensitive comparison
func (p *turtleReader) matchExactKeyword(keyword string) bool {
	end := p.pos + len(keyword)
	if end > p.length || p.input[p.pos:end] != keyword {
		return false
	}
	if !p.keywordBoundary(end) {
		return false
	}
	p.pos = end
	return true
}

// keywordBoundary reports whether a keyword may end at end
func (p *turtleReader) keywordBoundary(end int) bool {
	return end >= p.length || !(isWordChar(p.input[end]) || p.input[end] == ':')
}

func isWordChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func (p *turtleReader) parsePrefix(turtleStyle bool) error {
	p.skipWhitespaceAndComments()

	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' && !isSpace(p.input[p.pos]) {
		p.pos++
	}
	prefix := p.input[start:p.pos]
	if p.peek() != ':' {
		return p.errorf("expected ':' after prefix name %q", prefix)
	}
	p.pos++ // skip ':'

	p.skipWhitespaceAndComments()
	iri, err := p.parseIRI()
	if err != nil {
		return err
	}
	p.prefixes[prefix] = iri

	if turtleStyle {
		return p.expectByte('.')
	}
	return nil
}

func (p *turtleReader) parseBase(turtleStyle bool) error {
	p.skipWhitespaceAndComments()
	iri, err := p.parseIRI()
	if err != nil {
		return err
	}
	p.base = iri

	if turtleStyle {
		return p.expectByte('.')
	}
	return nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// parseTriples reads one triples statement terminated by '.'
func (p *turtleReader) parseTriples() error {
	p.skipWhitespaceAndComments()

	var subject Node
	var err error
	if p.peek() == '[' {
		subject, err = p.parseBlankNodePropertyList()
		if err != nil {
			return err
		}
		p.skipWhitespaceAndComments()
		// A bare property list may stand alone as a statement
		if p.peek() == '.' {
			p.pos++
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
	return p.expectByte('.')
}

func (p *turtleReader) parseSubject() (Node, error) {
	switch ch := p.peek(); {
	case ch == '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	case ch == '_':
		return p.parseBlankNodeLabel()
	case ch == '(':
		return p.parseCollection()
	default:
		iri, err := p.parsePrefixedName()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	}
}

func (p *turtleReader) parsePredicateObjectList(subject Node) error {
	for {
		p.skipWhitespaceAndComments()
		predicate, err := p.parseVerb()
		if err != nil {
			return err
		}
		if err := p.parseObjectList(subject, predicate); err != nil {
			return err
		}

		p.skipWhitespaceAndComments()
		if p.peek() != ';' {
			return nil
		}
		// Repeated and trailing semicolons are allowed
		for p.peek() == ';' {
			p.pos++
			p.skipWhitespaceAndComments()
		}
		if ch := p.peek(); ch == '.' || ch == ']' || ch == '}' || p.pos >= p.length {
			return nil
		}
	}
}

func (p *turtleReader) parseVerb() (Node, error) {
	if p.peek() == 'a' && p.keywordBoundary(p.pos+1) && (p.pos+1 >= p.length || !isNameChar(p.input[p.pos+1])) {
		p.pos++
		return NewNamedNode(RDFType), nil
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

func (p *turtleReader) parseObjectList(subject, predicate Node) error {
	for {
		p.skipWhitespaceAndComments()
		object, err := p.parseObject()
		if err != nil {
			return err
		}
		p.emit(subject, predicate, object)

		p.skipWhitespaceAndComments()
		if p.peek() != ',' {
			return nil
		}
		p.pos++ // skip ','
	}
}

func (p *turtleReader) parseObject() (Node, error) {
	ch := p.peek()
	switch {
	case p.pos >= p.length:
		return nil, p.errorf("unexpected end of input when expecting object")
	case ch == '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	case ch == '_':
		return p.parseBlankNodeLabel()
	case ch == '[':
		return p.parseBlankNodePropertyList()
	case ch == '(':
		return p.parseCollection()
	case ch == '"' || ch == '\'':
		return p.parseLiteral()
	case ch == '+' || ch == '-' || ch == '.' || (ch >= '0' && ch <= '9'):
		return p.parseNumber()
	case p.matchKeyword("true"):
		return NewLiteralWithDatatype("true", XSDBoolean), nil
	case p.matchKeyword("false"):
		return NewLiteralWithDatatype("false", XSDBoolean), nil
	default:
		iri, err := p.parsePrefixedName()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	}
}

func (p *turtleReader) parseIRI() (string, error) {
	if p.peek() != '<' {
		return "", p.errorf("expected '<' at start of IRI")
	}
	p.pos++ // skip '<'

	var result strings.Builder
	for p.pos < p.length && p.input[p.pos] != '>' {
		ch := p.input[p.pos]
		if ch == '\\' {
			escaped, err := p.parseUnicodeEscape()
			if err != nil {
				return "", err
			}
			result.WriteString(escaped)
			continue
		}
		if ch == ' ' || ch == '<' || ch == '"' || ch <= 0x1F {
			return "", p.errorf("invalid character in IRI: %q", ch)
		}
		result.WriteByte(ch)
		p.pos++
	}
	if p.pos >= p.length {
		return "", p.errorf("unclosed IRI")
	}
	p.pos++ // skip '>'

	return p.resolve(result.String())
}

// resolve resolves a possibly relative IRI against the current base
func (p *turtleReader) resolve(iri string) (string, error) {
	ref, err := url.Parse(iri)
	if err != nil {
		return "", p.errorf("invalid IRI %q: %v", iri, err)
	}
	if ref.IsAbs() {
		return iri, nil
	}
	if p.base == "" {
		return "", p.errorf("relative IRI %q without a base", iri)
	}
	base, err := url.Parse(p.base)
	if err != nil {
		return "", p.errorf("invalid base IRI %q: %v", p.base, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// parseUnicodeEscape reads a \uXXXX or \UXXXXXXXX escape
func (p *turtleReader) parseUnicodeEscape() (string, error) {
	if p.pos+1 >= p.length {
		return "", p.errorf("incomplete escape sequence")
	}
	var digits int
	switch p.input[p.pos+1] {
	case 'u':
		digits = 4
	case 'U':
		digits = 8
	default:
		return "", p.errorf("invalid escape sequence \\%c", p.input[p.pos+1])
	}
	start := p.pos + 2
	if start+digits > p.length {
		return "", p.errorf("incomplete unicode escape")
	}
	code, err := strconv.ParseUint(p.input[start:start+digits], 16, 32)
	if err != nil {
		return "", p.errorf("invalid unicode escape %q", p.input[p.pos:start+digits])
	}
	r := rune(code)
	if !utf8.ValidRune(r) {
		return "", p.errorf("invalid code point U+%X", code)
	}
	p.pos = start + digits
	return string(r), nil
}

func (p *turtleReader) parseBlankNodeLabel() (Node, error) {
	if p.pos+1 >= p.length || p.input[p.pos:p.pos+2] != "_:" {
		return nil, p.errorf("expected '_:' at start of blank node")
	}
	p.pos += 2
	start := p.pos
	for p.pos < p.length && isNameChar(p.input[p.pos]) {
		p.pos++
	}
	// A label cannot end with '.'
	for p.pos > start && p.input[p.pos-1] == '.' {
		p.pos--
	}
	if p.pos == start {
		return nil, p.errorf("empty blank node label")
	}
	return NewBlankNode(p.input[start:p.pos]), nil
}

func (p *turtleReader) freshBlankNode() Node {
	p.blankCounter++
	return NewBlankNode("genid" + strconv.Itoa(p.blankCounter))
}

// parseBlankNodePropertyList reads '[' predicateObjectList? ']'
func (p *turtleReader) parseBlankNodePropertyList() (Node, error) {
	p.pos++ // skip '['
	node := p.freshBlankNode()

	p.skipWhitespaceAndComments()
	if p.peek() == ']' {
		p.pos++
		return node, nil
	}
	if err := p.parsePredicateObjectList(node); err != nil {
		return nil, err
	}
	if err := p.expectByte(']'); err != nil {
		return nil, err
	}
	return node, nil
}

// parseCollection reads '(' object* ')' into an rdf:List
func (p *turtleReader) parseCollection() (Node, error) {
	p.pos++ // skip '('

	var items []Node
	for {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			return nil, p.errorf("unclosed collection")
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		item, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	var head Node = NewNamedNode(rdfNil)
	for i := len(items) - 1; i >= 0; i-- {
		cell := p.freshBlankNode()
		p.emit(cell, NewNamedNode(rdfFirst), items[i])
		p.emit(cell, NewNamedNode(rdfRest), head)
		head = cell
	}
	return head, nil
}

func (p *turtleReader) parseLiteral() (Node, error) {
	var (
		value string
		err   error
	)
	if p.pos+2 < p.length && (p.input[p.pos:p.pos+3] == `"""` || p.input[p.pos:p.pos+3] == `'''`) {
		value, err = p.parseString(p.input[p.pos:p.pos+3], true)
	} else {
		value, err = p.parseString(p.input[p.pos:p.pos+1], false)
	}
	if err != nil {
		return nil, err
	}

	if p.peek() == '@' {
		p.pos++ // skip '@'
		start := p.pos
		for p.pos < p.length && (isWordChar(p.input[p.pos]) || p.input[p.pos] == '-') {
			p.pos++
		}
		if p.pos == start {
			return nil, p.errorf("empty language tag")
		}
		return NewLiteralWithLanguage(value, p.input[start:p.pos]), nil
	}

	if p.pos+1 < p.length && p.input[p.pos:p.pos+2] == "^^" {
		p.pos += 2 // skip '^^'
		var datatype string
		if p.peek() == '<' {
			datatype, err = p.parseIRI()
		} else {
			datatype, err = p.parsePrefixedName()
		}
		if err != nil {
			return nil, err
		}
		return NewLiteralWithDatatype(value, datatype), nil
	}

	return NewLiteral(value), nil
}

// parseString reads a quoted string delimited by delim and applies escapes
func (p *turtleReader) parseString(delim string, long bool) (string, error) {
	p.pos += len(delim)

	var value strings.Builder
	for {
		if p.pos >= p.length {
			return "", p.errorf("unclosed string literal")
		}
		if strings.HasPrefix(p.input[p.pos:], delim) {
			p.pos += len(delim)
			return value.String(), nil
		}

		ch := p.input[p.pos]
		if !long && (ch == '\n' || ch == '\r') {
			return "", p.errorf("line break in string literal")
		}
		if ch != '\\' {
			value.WriteByte(ch)
			p.pos++
			continue
		}

		if p.pos+1 >= p.length {
			return "", p.errorf("unclosed string literal")
		}
		switch next := p.input[p.pos+1]; next {
		case 'u', 'U':
			escaped, err := p.parseUnicodeEscape()
			if err != nil {
				return "", err
			}
			value.WriteString(escaped)
			continue
		case 'n':
			value.WriteByte('\n')
		case 't':
			value.WriteByte('\t')
		case 'r':
			value.WriteByte('\r')
		case 'b':
			value.WriteByte('\b')
		case 'f':
			value.WriteByte('\f')
		case '"', '\'', '\\':
			value.WriteByte(next)
		default:
			return "", p.errorf("invalid escape sequence \\%c", next)
		}
		p.pos += 2
	}
}

func (p *turtleReader) parseNumber() (Node, error) {
	start := p.pos
	if ch := p.peek(); ch == '+' || ch == '-' {
		p.pos++
	}

	intDigits := p.skipDigits()
	isDecimal, isDouble := false, false

	// A '.' not followed by a digit or exponent terminates the statement
	if p.peek() == '.' && p.pos+1 < p.length {
		next := p.input[p.pos+1]
		if next >= '0' && next <= '9' || ((next == 'e' || next == 'E') && intDigits > 0) {
			isDecimal = true
			p.pos++ // skip '.'
			p.skipDigits()
		}
	}
	if intDigits == 0 && !isDecimal {
		return nil, p.errorf("expected digits in number")
	}

	if ch := p.peek(); ch == 'e' || ch == 'E' {
		isDouble = true
		p.pos++
		if ch := p.peek(); ch == '+' || ch == '-' {
			p.pos++
		}
		if p.skipDigits() == 0 {
			return nil, p.errorf("expected digits in exponent")
		}
	}

	lexical := p.input[start:p.pos]
	switch {
	case isDouble:
		return NewLiteralWithDatatype(lexical, XSDDouble), nil
	case isDecimal:
		return NewLiteralWithDatatype(lexical, XSDDecimal), nil
	default:
		return NewLiteralWithDatatype(lexical, XSDInteger), nil
	}
}

func (p *turtleReader) skipDigits() int {
	start := p.pos
	for p.pos < p.length && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	return p.pos - start
}

func isNameChar(ch byte) bool {
	return isWordChar(ch) || ch == '_' || ch == '-' || ch == '.' || ch >= 0x80
}

// parsePrefixedName reads prefix:local and expands it using the declared prefixes
func (p *turtleReader) parsePrefixedName() (string, error) {
	start := p.pos
	for p.pos < p.length && isNameChar(p.input[p.pos]) {
		p.pos++
	}
	if p.peek() != ':' {
		p.pos = start
		if start >= p.length {
			return "", p.errorf("unexpected end of input")
		}
		return "", p.errorf("unexpected character '%c'", p.input[start])
	}
	prefix := p.input[start:p.pos]
	p.pos++ // skip ':'

	var local strings.Builder
scan:
	for p.pos < p.length {
		ch := p.input[p.pos]
		switch {
		case isNameChar(ch) || ch == ':':
			local.WriteByte(ch)
			p.pos++
		case ch == '%' && p.pos+2 < p.length && isHex(p.input[p.pos+1]) && isHex(p.input[p.pos+2]):
			local.WriteString(p.input[p.pos : p.pos+3])
			p.pos += 3
		case ch == '\\' && p.pos+1 < p.length && strings.IndexByte("_~.-!$&'()*+,;=/?#@%", p.input[p.pos+1]) >= 0:
			local.WriteByte(p.input[p.pos+1])
			p.pos += 2
		default:
			break scan
		}
	}

	// The local part cannot end with an unescaped '.'
	name := local.String()
	for strings.HasSuffix(name, ".") && p.input[p.pos-1] == '.' && p.input[p.pos-2] != '\\' {
		name = name[:len(name)-1]
		p.pos--
	}

	namespace, ok := p.prefixes[prefix]
	if !ok {
		return "", p.errorf("undefined prefix %q", prefix)
	}
	return namespace + name, nil
}

func isHex(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
