package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dan-f/twinql/internal/config"
	"github.com/dan-f/twinql/internal/server"
	"github.com/dan-f/twinql/internal/storage"
	"github.com/dan-f/twinql/pkg/backend"
	"github.com/dan-f/twinql/pkg/query/executor"
	"github.com/dan-f/twinql/pkg/rdf"
)

// queryBackend is a backend that also exposes its data
type queryBackend interface {
	backend.Backend
	server.GraphStore
}

// app is the engine assembled from a configuration
type app struct {
	backend  queryBackend
	executor *executor.Executor
	closers  []func() error
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	switch cfg.Backend {
	case config.BackendMemory:
		a.backend = backend.NewMemory(nil)
	case config.BackendWeb, config.BackendLDP:
		fetcher := backend.NewHTTPFetcher()
		fetcher.Logger = logger
		if cfg.Fetch.Cache.Enabled {
			st, err := storage.NewBadgerStorage(cfg.Fetch.Cache.Path)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, st.Close)
			fetcher.Cache = storage.NewResponseCache(st, logger)
		}
		opts := []backend.Option{
			backend.WithFetcher(fetcher),
			backend.WithTimeout(cfg.Fetch.Timeout),
			backend.WithProxyURI(cfg.Fetch.ProxyURI),
			backend.WithHeaders(cfg.Fetch.Headers),
			backend.WithLogger(logger),
		}
		if cfg.Backend == config.BackendLDP {
			a.backend = backend.NewLDP(opts...)
		} else {
			a.backend = backend.NewWeb(opts...)
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	for _, df := range cfg.Data {
		g, err := loadDataFile(df)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.backend.Merge(g)
		logger.Debug("loaded data file", "path", df.Path, "graph", df.Graph, "quads", g.Len())
	}

	kinds, err := cfg.InlineErrorKinds()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.executor = executor.New(a.backend,
		executor.WithInlineErrors(kinds...),
		executor.WithMaxConcurrency(cfg.Query.MaxConcurrency),
		executor.WithLogger(logger),
	)
	return a, nil
}

func loadDataFile(df config.DataFile) (*rdf.Graph, error) {
	parse, err := rdf.ParserForFile(df.Path)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(df.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	quads, err := parse(df.Graph, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", df.Path, err)
	}
	return rdf.FromQuads(quads)
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
