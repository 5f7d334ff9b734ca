// Package lexer tokenizes twinql query text.
//
// Tokens are separated by whitespace. Identifiers run until the next
// whitespace character and are then classified as a name, a URI or a
// prefixed URI.
package lexer

import (
	"fmt"
	"net/url"
	"strings"
)

type state int

const (
	stateStart state = iota
	stateID
	stateString
	stateSymbol
	stateKeyword
)

// Lexer produces tokens from query text on demand
type Lexer struct {
	input []rune
	pos   int
	line  int
	col   int
}

// New creates a lexer over input
func New(input string) *Lexer {
	return &Lexer{
		input: []rune(input),
		line:  1,
	}
}

// Lex tokenizes the whole input. The last token is always EOF.
func Lex(input string) ([]Token, error) {
	l := New(input)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) advance() {
	if l.input[l.pos] == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	l.pos++
}

// Next returns the next token. Once the input is exhausted it returns EOF
// tokens indefinitely.
func (l *Lexer) Next() (Token, error) {
	st := stateStart
	var val strings.Builder
	var line, col int

	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		switch st {
		case stateStart:
			line, col = l.line, l.col
			switch {
			case isSpace(ch):
			case startsAny(string(ch), symbols):
				val.WriteRune(ch)
				st = stateSymbol
			case startsAny(string(ch), keywords):
				val.WriteRune(ch)
				st = stateKeyword
			case ch == '"':
				st = stateString
			case isAlpha(ch):
				val.WriteRune(ch)
				st = stateID
			default:
				return Token{}, &IllegalCharacterError{
					Message: fmt.Sprintf("Illegal character '%c'", ch),
					Line:    l.line,
					Column:  l.col,
				}
			}
			l.advance()

		case stateID:
			if isSpace(ch) {
				return identifier(val.String(), line, col)
			}
			val.WriteRune(ch)
			l.advance()

		case stateString:
			l.advance()
			if ch == '"' {
				return Token{Type: StrLit, Value: val.String(), Line: line, Column: col}, nil
			}
			val.WriteRune(ch)

		case stateSymbol:
			if startsAny(val.String()+string(ch), symbols) {
				val.WriteRune(ch)
				l.advance()
				continue
			}
			return Token{Type: symbols[val.String()], Value: val.String(), Line: line, Column: col}, nil

		case stateKeyword:
			if startsAny(val.String()+string(ch), keywords) {
				val.WriteRune(ch)
				l.advance()
				continue
			}
			tt, ok := keywords[val.String()]
			if !ok {
				return Token{}, &UnterminatedTokenError{
					Message: fmt.Sprintf("Unterminated keyword '%s'", val.String()),
					Line:    line,
					Column:  col,
				}
			}
			// A keyword ends at whitespace or a symbol
			if !isSpace(ch) && !startsAny(string(ch), symbols) {
				return Token{}, &UnterminatedTokenError{
					Message: fmt.Sprintf("Expected whitespace after keyword '%s'", val.String()),
					Line:    l.line,
					Column:  l.col,
				}
			}
			return Token{Type: tt, Value: val.String(), Line: line, Column: col}, nil
		}
	}

	// End of input inside a token
	switch st {
	case stateSymbol:
		if tt, ok := symbols[val.String()]; ok {
			return Token{Type: tt, Value: val.String(), Line: line, Column: col}, nil
		}
		return Token{}, &UnterminatedTokenError{
			Message: fmt.Sprintf("Unterminated symbol '%s'", val.String()),
			Line:    line,
			Column:  col,
		}
	case stateKeyword:
		if tt, ok := keywords[val.String()]; ok {
			return Token{Type: tt, Value: val.String(), Line: line, Column: col}, nil
		}
		return Token{}, &UnterminatedTokenError{
			Message: fmt.Sprintf("Unterminated keyword '%s'", val.String()),
			Line:    line,
			Column:  col,
		}
	case stateString:
		return Token{}, &UnterminatedTokenError{
			Message: fmt.Sprintf("Unterminated string literal '%s'", val.String()),
			Line:    line,
			Column:  col,
		}
	case stateID:
		return identifier(val.String(), line, col)
	}

	return Token{Type: EOF, Line: l.line, Column: l.col}, nil
}

// identifier classifies the text of an ID
func identifier(val string, line, col int) (Token, error) {
	tok := Token{Value: val, Line: line, Column: col}
	switch {
	case nameRegex.MatchString(val):
		tok.Type = Name
	case isWebURI(val):
		tok.Type = URI
	default:
		m := prefixedURIRegex.FindStringSubmatch(val)
		if m == nil {
			m = dottedURIRegex.FindStringSubmatch(val)
		}
		if m == nil {
			return Token{}, &UnrecognizedTokenError{
				Message: "Unrecognized token: " + val,
				Line:    line,
				Column:  col,
			}
		}
		tok.Type = PrefixedURI
		tok.Prefix, tok.Path = m[1], m[2]
	}
	return tok, nil
}

// isWebURI reports whether s is an absolute http(s) URI with a host
func isWebURI(s string) bool {
	if !uriCharsRegex.MatchString(s) || badPercentRegex.MatchString(s) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

func isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// startsAny reports whether some entry of group begins with text
func startsAny(text string, group map[string]TokenType) bool {
	for k := range group {
		if strings.HasPrefix(k, text) {
			return true
		}
	}
	return false
}
