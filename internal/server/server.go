// Package server exposes the query engine over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dan-f/twinql/pkg/query/executor"
	"github.com/dan-f/twinql/pkg/rdf"
)

// Querier runs query text
type Querier interface {
	Query(ctx context.Context, text string) (executor.Response, error)
}

// GraphStore is a backend whose data can be read and extended directly
type GraphStore interface {
	Graph() *rdf.Graph
	Merge(g *rdf.Graph)
}

// Server is the HTTP query endpoint
type Server struct {
	querier Querier
	store   GraphStore
	addr    string
	logger  *slog.Logger
	engine  *gin.Engine
}

// Option configures a Server
type Option func(*Server)

// WithGraphStore enables the /data and /graph routes on store
func WithGraphStore(store GraphStore) Option {
	return func(s *Server) { s.store = store }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server answering queries with q
func New(q Querier, addr string, opts ...Option) *Server {
	s := &Server{
		querier: q,
		addr:    addr,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), cors())

	r.GET("/query", s.handleQuery)
	r.POST("/query", s.handleQuery)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.store != nil {
		r.POST("/data", s.handleDataUpload)
		r.GET("/graph", s.handleGraph)
	}
	return r
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting query endpoint", "url", "http://"+s.addr+"/query")
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
