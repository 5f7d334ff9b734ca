package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-f/twinql/internal/storage"
)

const aliceTurtle = `@prefix foaf: <http://xmlns.com/foaf/0.1/> .
<#me> foaf:name "Alice" ;
    foaf:knows <https://a.example/bob#me> .
<https://a.example/bob#me> foaf:name "Bob" .
`

// writeConfig writes a memory backend config loading the alice document
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "alice.ttl")
	require.NoError(t, os.WriteFile(data, []byte(aliceTurtle), 0o644))

	cfg := filepath.Join(dir, "twinql.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`backend: memory
data:
  - path: `+data+`
    graph: https://a.example/alice
`), 0o644))
	return cfg
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQueryCommand(t *testing.T) {
	cfg := writeConfig(t)
	query := "@prefix foaf http://xmlns.com/foaf/0.1/\n\nhttps://a.example/alice#me { foaf:name [ foaf:knows ] { foaf:name } }"

	out, err := run(t, "", "--config", cfg, "query", "--compact", query)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"@context": {"foaf": "http://xmlns.com/foaf/0.1/"},
		"@id": "https://a.example/alice#me",
		"foaf:name": "Alice",
		"foaf:knows": [{"@id": "https://a.example/bob#me", "foaf:name": "Bob"}]
	}`, out)

	// The query can come from stdin
	out, err = run(t, query, "--config", cfg, "query", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"foaf:name": "Alice"`)
}

func TestQueryCommand_Errors(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, "", "--config", cfg, "query", "https://a.example/alice#me")
	assert.ErrorContains(t, err, "Expected a token of type(s)")

	_, err = run(t, "", "--config", cfg, "query", "--backend", "sparql", "https://a.example/alice#me {}")
	assert.ErrorContains(t, err, "invalid config")

	_, err = run(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "query", "x")
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "", "parse", "@prefix foaf http://xmlns.com/foaf/0.1/ https://a.example/alice#me { foaf:name }")
	require.NoError(t, err)
	assert.Contains(t, out, "@prefix foaf http://xmlns.com/foaf/0.1/")
	assert.Contains(t, out, "foaf:name")

	_, err = run(t, "", "parse", "https://a.example/alice#me { ~ }")
	assert.ErrorContains(t, err, "Illegal character '~'")
}

func TestLexCommand(t *testing.T) {
	out, err := run(t, "", "lex", "https://a.example/alice#me {}")
	require.NoError(t, err)
	assert.Equal(t, "1:0\tURI\thttps://a.example/alice#me\n1:27\tLBRACE\t{\n1:28\tRBRACE\t}\n1:29\tEOF\t\n", out)
}

func TestCacheCommands(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache")

	st, err := storage.NewBadgerStorage(cachePath)
	require.NoError(t, err)
	cache := storage.NewResponseCache(st, nil)
	require.NoError(t, cache.Store("https://a.example/alice", `"a"`, []byte("alice")))
	require.NoError(t, cache.Store("https://a.example/bob", `"b"`, []byte("bob")))
	require.NoError(t, st.Close())

	cfg := filepath.Join(dir, "twinql.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`fetch:
  cache:
    enabled: true
    path: `+cachePath+`
`), 0o644))

	out, err := run(t, "", "--config", cfg, "cache", "list")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://a.example/alice", "https://a.example/bob"}, strings.Fields(out))

	out, err = run(t, "", "--config", cfg, "cache", "purge", "https://a.example/alice")
	require.NoError(t, err)
	assert.Equal(t, "purged 1 entries\n", out)

	out, err = run(t, "", "--config", cfg, "cache", "list")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/bob\n", out)

	_, err = run(t, "", "--config", cfg, "cache", "purge")
	assert.ErrorContains(t, err, "--all")

	_, err = run(t, "", "--config", cfg, "cache", "purge", "--all")
	require.NoError(t, err)
	out, err = run(t, "", "--config", cfg, "cache", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCacheCommands_NoCache(t *testing.T) {
	_, err := run(t, "", "cache", "list")
	assert.ErrorIs(t, err, errNoCache)
}
