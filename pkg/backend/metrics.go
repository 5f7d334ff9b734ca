package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("twinql.backend")

var (
	// graphLoadTotal counts named graph loads by result
	graphLoadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twinql_graph_load_total",
		Help: "Total named graph loads by result",
	}, []string{"result"})

	// graphLoadDuration tracks fetch and parse latency
	graphLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "twinql_graph_load_duration_seconds",
		Help:    "Named graph load duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	// graphLoadShared counts loads answered by a pending or completed load
	graphLoadShared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twinql_graph_load_shared_total",
		Help: "Total graph load requests served by an earlier load in the same query",
	})
)

const (
	resultOK         = "ok"
	resultHTTPError  = "http_error"
	resultParseError = "parse_error"
)
