package lexer

import "fmt"

// IllegalCharacterError is returned for a character that cannot start a token
type IllegalCharacterError struct {
	Message string
	Line    int
	Column  int
}

func (e *IllegalCharacterError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// UnterminatedTokenError is returned when input ends inside a string or keyword
type UnterminatedTokenError struct {
	Message string
	Line    int
	Column  int
}

func (e *UnterminatedTokenError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// UnrecognizedTokenError is returned for an identifier that is neither a
// name, a URI nor a prefixed URI
type UnrecognizedTokenError struct {
	Message string
	Line    int
	Column  int
}

func (e *UnrecognizedTokenError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}
