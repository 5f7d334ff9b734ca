package rdf

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ParseFunc reads a serialized document into quads scoped to a named graph
type ParseFunc func(graphName string, body []byte) ([]Quad, error)

// ParserFor returns the reader for a media type
func ParserFor(contentType string) (ParseFunc, error) {
	// Normalize content type (remove parameters like charset)
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}

	switch ct {
	case "text/turtle", "application/x-turtle", "application/n-triples", "text/plain":
		return ParseTurtle, nil
	case "application/n-quads":
		return ParseNQuads, nil
	case "application/trig":
		return ParseTriG, nil
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// ParserForFile picks a reader from a file extension
func ParserForFile(path string) (ParseFunc, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ttl", ".nt":
		return ParseTurtle, nil
	case ".nq":
		return ParseNQuads, nil
	case ".trig":
		return ParseTriG, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// SupportedContentTypes lists the media types ParserFor accepts
func SupportedContentTypes() []string {
	return []string{
		"text/turtle",
		"application/x-turtle",
		"application/n-triples",
		"application/n-quads",
		"application/trig",
		"text/plain",
	}
}
