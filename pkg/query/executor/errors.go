package executor

import (
	"errors"
	"fmt"

	"github.com/dan-f/twinql/pkg/backend"
	"github.com/dan-f/twinql/pkg/rdf"
)

// QueryError reports a query that cannot be evaluated, such as one using an
// undeclared prefix
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string {
	return e.Message
}

func queryErrorf(format string, args ...any) error {
	return &QueryError{Message: fmt.Sprintf(format, args...)}
}

// ErrorKind names a class of evaluation error in responses
type ErrorKind string

const (
	KindHTTPError     ErrorKind = "HttpError"
	KindRDFParseError ErrorKind = "RdfParseError"
	KindGraphError    ErrorKind = "GraphError"
	KindQueryError    ErrorKind = "QueryError"
)

// DefaultInlineErrors are the error kinds embedded in results by default
var DefaultInlineErrors = []ErrorKind{KindHTTPError}

// ParseErrorKind returns the inlineable error kind named s
func ParseErrorKind(s string) (ErrorKind, error) {
	switch k := ErrorKind(s); k {
	case KindHTTPError, KindRDFParseError:
		return k, nil
	default:
		return "", fmt.Errorf("unsupported inline error kind %q", s)
	}
}

// ClassifyError returns the kind of err, if it is one of the known kinds
func ClassifyError(err error) (ErrorKind, bool) {
	var (
		httpErr  *backend.HTTPError
		parseErr *rdf.ParseError
		graphErr *rdf.GraphError
		queryErr *QueryError
	)
	switch {
	case errors.As(err, &httpErr):
		return KindHTTPError, true
	case errors.As(err, &parseErr):
		return KindRDFParseError, true
	case errors.As(err, &graphErr):
		return KindGraphError, true
	case errors.As(err, &queryErr):
		return KindQueryError, true
	default:
		return "", false
	}
}

// FormatError renders err as the "@error" value of a result node
func FormatError(err error) map[string]any {
	kind, ok := ClassifyError(err)
	if !ok {
		kind = "Error"
	}
	formatted := map[string]any{
		"type":    string(kind),
		"message": err.Error(),
	}
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		formatted["status"] = httpErr.Status
	}
	return formatted
}
