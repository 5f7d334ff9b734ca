package parser

import (
	"fmt"
	"strings"

	"github.com/dan-f/twinql/pkg/lang/lexer"
)

// UnexpectedTokenError is returned when a token does not follow the grammar
type UnexpectedTokenError struct {
	Expected []lexer.TokenType
	Actual   lexer.Token
}

func (e *UnexpectedTokenError) Error() string {
	names := make([]string, len(e.Expected))
	for i, tt := range e.Expected {
		names[i] = tt.String()
	}
	return fmt.Sprintf("Expected a token of type(s) [%s], but got token '%s' of type %s at (%d:%d)",
		strings.Join(names, ", "), e.Actual.Value, e.Actual.Type, e.Actual.Line, e.Actual.Column)
}
