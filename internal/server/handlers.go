package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dan-f/twinql/pkg/backend"
	"github.com/dan-f/twinql/pkg/lang/lexer"
	"github.com/dan-f/twinql/pkg/lang/parser"
	"github.com/dan-f/twinql/pkg/query/executor"
	"github.com/dan-f/twinql/pkg/rdf"
)

// QueryRequest is the JSON body of POST /query
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// ErrorResponse is returned for failed requests
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// DataResponse reports an upload to /data
type DataResponse struct {
	Graph      string `json:"graph"`
	Quads      int    `json:"quads"`
	TotalQuads int    `json:"total_quads"`
	DurationMS int64  `json:"duration_ms"`
}

// handleQuery runs a query taken from the q (or query) parameter of a GET,
// or from the body of a POST as JSON, form data or plain text
func (s *Server) handleQuery(c *gin.Context) {
	text, ok := s.queryText(c)
	if !ok {
		return
	}
	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, errorResponse("RequestError", "empty query"))
		return
	}

	resp, err := s.querier.Query(c.Request.Context(), text)
	if err != nil {
		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("query failed", "error", err)
		}
		c.JSON(status, ErrorResponse{Error: body})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) queryText(c *gin.Context) (string, bool) {
	if c.Request.Method == http.MethodGet {
		if q := c.Query("q"); q != "" {
			return q, true
		}
		return c.Query("query"), true
	}

	switch c.ContentType() {
	case "application/json":
		var req QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("RequestError", "invalid request body: "+err.Error()))
			return "", false
		}
		return req.Query, true
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return c.PostForm("query"), true
	default:
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("RequestError", "failed to read request body"))
			return "", false
		}
		return string(body), true
	}
}

// classify maps a query error to a response status and body
func classify(err error) (int, ErrorBody) {
	var (
		illegal      *lexer.IllegalCharacterError
		unterminated *lexer.UnterminatedTokenError
		unrecognized *lexer.UnrecognizedTokenError
		unexpected   *parser.UnexpectedTokenError
		queryErr     *executor.QueryError
		httpErr      *backend.HTTPError
	)
	switch {
	case errors.As(err, &illegal):
		return http.StatusBadRequest, ErrorBody{Type: "IllegalCharacterError", Message: illegal.Message, Line: illegal.Line, Column: illegal.Column}
	case errors.As(err, &unterminated):
		return http.StatusBadRequest, ErrorBody{Type: "UnterminatedTokenError", Message: unterminated.Message, Line: unterminated.Line, Column: unterminated.Column}
	case errors.As(err, &unrecognized):
		return http.StatusBadRequest, ErrorBody{Type: "UnrecognizedTokenError", Message: unrecognized.Message, Line: unrecognized.Line, Column: unrecognized.Column}
	case errors.As(err, &unexpected):
		return http.StatusBadRequest, ErrorBody{Type: "UnexpectedTokenError", Message: unexpected.Error(), Line: unexpected.Actual.Line, Column: unexpected.Actual.Column}
	case errors.As(err, &queryErr):
		return http.StatusBadRequest, ErrorBody{Type: string(executor.KindQueryError), Message: queryErr.Message}
	case errors.As(err, &httpErr):
		return http.StatusBadGateway, ErrorBody{Type: string(executor.KindHTTPError), Message: httpErr.Error(), Status: httpErr.Status}
	}

	body := ErrorBody{Type: "Error", Message: err.Error()}
	if kind, ok := executor.ClassifyError(err); ok {
		body.Type = string(kind)
	}
	return http.StatusInternalServerError, body
}

func errorResponse(typ, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Type: typ, Message: message}}
}

// handleDataUpload parses the request body into the named graph given by the
// graph parameter and merges it into the store
func (s *Server) handleDataUpload(c *gin.Context) {
	graph := c.Query("graph")
	if graph == "" {
		c.JSON(http.StatusBadRequest, errorResponse("RequestError", "missing 'graph' parameter"))
		return
	}

	parse, err := rdf.ParserFor(c.GetHeader("Content-Type"))
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, errorResponse("RequestError",
			err.Error()+"; supported types: "+strings.Join(rdf.SupportedContentTypes(), ", ")))
		return
	}

	start := time.Now()
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("RequestError", "failed to read request body"))
		return
	}
	quads, err := parse(graph, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(string(executor.KindRDFParseError), err.Error()))
		return
	}
	g, err := rdf.FromQuads(quads)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(string(executor.KindGraphError), err.Error()))
		return
	}
	s.store.Merge(g)

	s.logger.Info("graph uploaded", "graph", graph, "quads", g.Len())
	c.JSON(http.StatusOK, DataResponse{
		Graph:      graph,
		Quads:      g.Len(),
		TotalQuads: s.store.Graph().Len(),
		DurationMS: time.Since(start).Milliseconds(),
	})
}

// handleGraph dumps the store as N-Quads
func (s *Server) handleGraph(c *gin.Context) {
	c.Data(http.StatusOK, "application/n-quads; charset=utf-8", []byte(rdf.SerializeNQuads(s.store.Graph())))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
