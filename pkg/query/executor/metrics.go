package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("twinql.executor")

var (
	// queryTotal counts queries by outcome
	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twinql_query_total",
		Help: "Total queries by result",
	}, []string{"result"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "twinql_query_duration_seconds",
		Help:    "Query evaluation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	})

	// inlineErrorTotal counts errors embedded in results instead of failing the query
	inlineErrorTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twinql_inline_error_total",
		Help: "Total errors embedded in query results by type",
	}, []string{"type"})
)

const (
	resultOK           = "ok"
	resultError        = "error"
	resultCompileError = "compile_error"
)
