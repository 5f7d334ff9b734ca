package backend

import (
	"log/slog"
	"maps"
	"time"

	"github.com/dan-f/twinql/pkg/rdf"
)

// DefaultTimeout bounds each remote fetch
const DefaultTimeout = 5 * time.Second

// Option configures a remote backend
type Option func(*options)

type options struct {
	fetcher  Fetcher
	parse    rdf.ParseFunc
	headers  map[string]string
	proxyURI string
	timeout  time.Duration
	namer    GraphNamer
	logger   *slog.Logger
	graph    *rdf.Graph
}

func defaultOptions() options {
	return options{
		fetcher: NewHTTPFetcher(),
		parse:   rdf.ParseTurtle,
		headers: map[string]string{"Accept": "text/turtle"},
		timeout: DefaultTimeout,
		namer:   FragmentGraphNamer,
		logger:  slog.Default(),
	}
}

// WithFetcher sets how resources are retrieved
func WithFetcher(f Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithParser sets how fetched documents are read into quads
func WithParser(parse rdf.ParseFunc) Option {
	return func(o *options) { o.parse = parse }
}

// WithHeaders adds request headers to every fetch. They override the
// default Accept header.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		merged := maps.Clone(o.headers)
		maps.Copy(merged, headers)
		o.headers = merged
	}
}

// WithProxyURI routes fetches through a proxy. The escaped graph name is
// appended to proxyURI.
func WithProxyURI(proxyURI string) Option {
	return func(o *options) { o.proxyURI = proxyURI }
}

// WithTimeout bounds each fetch. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithGraphNamer sets the policy mapping nodes to the named graphs to load
func WithGraphNamer(n GraphNamer) Option {
	return func(o *options) { o.namer = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGraph sets the graph the backend starts from
func WithGraph(g *rdf.Graph) Option {
	return func(o *options) { o.graph = g }
}
