package parser

import (
	"slices"

	"github.com/dan-f/twinql/pkg/lang/lexer"
)

// anyToken is the wildcard key of a dispatch table
const anyToken lexer.TokenType = -1

// tokenStream is a pull-based cursor over the lexer's output
type tokenStream struct {
	lex     *lexer.Lexer
	buffer  []lexer.Token
	current lexer.Token
}

func newTokenStream(l *lexer.Lexer) (*tokenStream, error) {
	t := &tokenStream{lex: l}
	if err := t.advance(); err != nil {
		return nil, err
	}
	return t, nil
}

// advance moves to the next token
func (t *tokenStream) advance() error {
	if len(t.buffer) > 0 {
		t.current = t.buffer[0]
		t.buffer = t.buffer[1:]
		return nil
	}
	tok, err := t.lex.Next()
	if err != nil {
		return err
	}
	t.current = tok
	return nil
}

// lookahead returns the k tokens after the current one without consuming them
func (t *tokenStream) lookahead(k int) ([]lexer.Token, error) {
	for len(t.buffer) < k {
		tok, err := t.lex.Next()
		if err != nil {
			return nil, err
		}
		t.buffer = append(t.buffer, tok)
	}
	return t.buffer[:k], nil
}

// expect asserts the type of the current token
func (t *tokenStream) expect(types ...lexer.TokenType) error {
	if slices.Contains(types, t.current.Type) {
		return nil
	}
	return &UnexpectedTokenError{Expected: types, Actual: t.current}
}

// handlers maps token types to the parse function to run on them
type handlers[T any] map[lexer.TokenType]func() (T, error)

// dispatch runs the handler keyed by the current token type, falling back
// to the anyToken handler when one is registered
func dispatch[T any](t *tokenStream, hs handlers[T]) (T, error) {
	if h, ok := hs[t.current.Type]; ok {
		return h()
	}
	if h, ok := hs[anyToken]; ok {
		return h()
	}

	expected := make([]lexer.TokenType, 0, len(hs))
	for tt := range hs {
		expected = append(expected, tt)
	}
	slices.Sort(expected)

	var zero T
	return zero, &UnexpectedTokenError{Expected: expected, Actual: t.current}
}
