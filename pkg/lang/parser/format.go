package parser

import (
	"strings"

	"github.com/dan-f/twinql/pkg/lang/lexer"
)

// String renders the query back to query text. Parsing the result yields
// an equal AST.
func (q *Query) String() string {
	var b strings.Builder
	for _, prefix := range q.Prefixes {
		b.WriteString("@prefix ")
		b.WriteString(prefix.Name.Value)
		b.WriteString(" ")
		b.WriteString(prefix.URI.Value)
		b.WriteString("\n")
	}
	if len(q.Prefixes) > 0 {
		b.WriteString("\n")
	}
	writeValue(&b, q.Context)
	b.WriteString(" ")
	writeContextSensitiveQuery(&b, q.Body, 0)
	return b.String()
}

func writeContextSensitiveQuery(b *strings.Builder, csq *ContextSensitiveQuery, depth int) {
	if spec, ok := csq.NodeSpecifier.(*MatchingNodeSpecifier); ok {
		writeNodeSpecifier(b, spec)
		b.WriteString(" ")
	}
	writeTraversal(b, csq.Traversal, depth)
}

func writeNodeSpecifier(b *strings.Builder, spec *MatchingNodeSpecifier) {
	if spec.ContextType == ContextGraph {
		b.WriteString("=> ")
	}
	b.WriteString("(")
	for _, m := range spec.Matches {
		b.WriteString(" ")
		writeValue(b, m.MatchPredicate())
		b.WriteString(" ")
		switch m := m.(type) {
		case *LeafMatch:
			writeValue(b, m.Value)
		case *IntermediateMatch:
			if nested, ok := m.NodeSpecifier.(*MatchingNodeSpecifier); ok {
				writeNodeSpecifier(b, nested)
			}
		}
	}
	b.WriteString(" )")
}

func writeTraversal(b *strings.Builder, traversal *Traversal, depth int) {
	if len(traversal.Selectors) == 0 {
		b.WriteString("{ }")
		return
	}

	indent := strings.Repeat("  ", depth+1)
	b.WriteString("{\n")
	for _, s := range traversal.Selectors {
		b.WriteString(indent)
		switch e := s.SelectorEdge().(type) {
		case *SingleEdge:
			writeValue(b, e.Predicate)
		case *MultiEdge:
			b.WriteString("[ ")
			writeValue(b, e.Predicate)
			b.WriteString(" ]")
		}
		if s, ok := s.(*IntermediateSelector); ok {
			b.WriteString(" ")
			writeContextSensitiveQuery(b, s.Query, depth+1)
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("}")
}

func writeValue(b *strings.Builder, v MatchValue) {
	switch v := v.(type) {
	case *URI:
		b.WriteString(v.Value)
	case *PrefixedURI:
		b.WriteString(prefixedText(v))
	case *StringLiteral:
		b.WriteString(`"`)
		b.WriteString(v.Value)
		b.WriteString(`"`)
	}
}

// prefixedText writes prefix:path, or prefix.path when the colon form would
// read back as something else, such as https://host
func prefixedText(v *PrefixedURI) string {
	text := v.Prefix + ":" + v.Path
	tokens, err := lexer.Lex(text)
	if err == nil && len(tokens) == 2 && tokens[0].Type == lexer.PrefixedURI &&
		tokens[0].Prefix == v.Prefix && tokens[0].Path == v.Path {
		return text
	}
	return v.Prefix + "." + v.Path
}
