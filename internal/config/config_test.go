package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-f/twinql/pkg/query/executor"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendWeb, cfg.Backend)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)

	kinds, err := cfg.InlineErrorKinds()
	require.NoError(t, err)
	assert.Equal(t, []executor.ErrorKind{executor.KindHTTPError}, kinds)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
backend: memory
data:
  - path: testdata/alice.ttl
    graph: https://a.example/alice
fetch:
  timeout: 2s
  proxy_uri: https://proxy.example/?uri=
  headers:
    Authorization: Bearer token
  cache:
    enabled: true
query:
  inline_errors: [HttpError, RdfParseError]
  max_concurrency: 8
server:
  addr: "0.0.0.0:9090"
`))
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, []DataFile{{Path: "testdata/alice.ttl", Graph: "https://a.example/alice"}}, cfg.Data)
	assert.Equal(t, 2*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "https://proxy.example/?uri=", cfg.Fetch.ProxyURI)
	assert.Equal(t, "Bearer token", cfg.Fetch.Headers["Authorization"])
	assert.True(t, cfg.Fetch.Cache.Enabled)
	assert.Empty(t, cfg.Fetch.Cache.Path)
	assert.Equal(t, 8, cfg.Query.MaxConcurrency)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr)

	kinds, err := cfg.InlineErrorKinds()
	require.NoError(t, err)
	assert.Equal(t, []executor.ErrorKind{executor.KindHTTPError, executor.KindRDFParseError}, kinds)
}

func TestParse_KeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("backend: ldp\n"))
	require.NoError(t, err)
	assert.Equal(t, BackendLDP, cfg.Backend)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, []string{"HttpError"}, cfg.Query.InlineErrors)

	cfg, err = Parse([]byte("query:\n  inline_errors: []\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Query.InlineErrors)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown backend", "backend: sparql\n"},
		{"negative timeout", "fetch:\n  timeout: -1s\n"},
		{"bad proxy", "fetch:\n  proxy_uri: not a url\n"},
		{"unknown inline error", "query:\n  inline_errors: [QueryError]\n"},
		{"negative concurrency", "query:\n  max_concurrency: -1\n"},
		{"data without graph", "data:\n  - path: a.ttl\n"},
		{"empty addr", "server:\n  addr: \"\"\n"},
		{"malformed yaml", "backend: [web\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "twinql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: memory\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
