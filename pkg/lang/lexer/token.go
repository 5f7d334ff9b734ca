package lexer

import (
	"fmt"
	"regexp"
)

// TokenType identifies the kind of a token
type TokenType int

const (
	EOF TokenType = iota
	URI
	PrefixedURI
	Name
	LParen
	RParen
	LBrace
	RBrace
	LSquare
	RSquare
	StrLit
	On
	Del
	Ins
	Arrow
	Prefix
)

var tokenTypeNames = map[TokenType]string{
	EOF:         "EOF",
	URI:         "URI",
	PrefixedURI: "PREFIXED_URI",
	Name:        "NAME",
	LParen:      "LPAREN",
	RParen:      "RPAREN",
	LBrace:      "LBRACE",
	RBrace:      "RBRACE",
	LSquare:     "LSQUARE",
	RSquare:     "RSQUARE",
	StrLit:      "STRLIT",
	On:          "ON",
	Del:         "DEL",
	Ins:         "INS",
	Arrow:       "ARROW",
	Prefix:      "PREFIX",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a lexical unit of query text. Line is 1-based and Column is the
// 0-based column of the token's first character.
type Token struct {
	Type  TokenType
	Value string
	// Prefix and Path are set for PrefixedURI tokens
	Prefix string
	Path   string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Value, t.Line, t.Column)
}

// symbols maps symbol text to token types
var symbols = map[string]TokenType{
	"(": LParen,
	")": RParen,
	"{": LBrace,
	"}": RBrace,
	"[": LSquare,
	"]": RSquare,
}

// keywords maps keyword text to token types
var keywords = map[string]TokenType{
	"-":       Del,
	"+":       Ins,
	"=>":      Arrow,
	"@prefix": Prefix,
}

var (
	nameRegex        = regexp.MustCompile(`^[a-zA-Z]+[a-zA-Z0-9_-]*$`)
	prefixedURIRegex = regexp.MustCompile(`^([a-zA-Z]+[a-zA-Z0-9_-]*):(.+)$`)
	dottedURIRegex   = regexp.MustCompile(`^([a-zA-Z]+[a-zA-Z0-9_-]*)\.(.+)$`)
	uriCharsRegex    = regexp.MustCompile(`^[a-zA-Z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+$`)
	badPercentRegex  = regexp.MustCompile(`%[^0-9a-fA-F]|%[0-9a-fA-F][^0-9a-fA-F]|%.?$`)
)
