// Package config loads the YAML configuration of the twinql command.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dan-f/twinql/pkg/backend"
	"github.com/dan-f/twinql/pkg/query/executor"
)

// Backend names
const (
	BackendMemory = "memory"
	BackendWeb    = "web"
	BackendLDP    = "ldp"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the root of the configuration file
type Config struct {
	Backend string       `yaml:"backend" validate:"oneof=memory web ldp"`
	Data    []DataFile   `yaml:"data" validate:"dive"`
	Fetch   FetchConfig  `yaml:"fetch"`
	Query   QueryConfig  `yaml:"query"`
	Server  ServerConfig `yaml:"server"`
}

// DataFile is a local document loaded into a named graph
type DataFile struct {
	Path  string `yaml:"path" validate:"required"`
	Graph string `yaml:"graph" validate:"required,url"`
}

type FetchConfig struct {
	Timeout  time.Duration     `yaml:"timeout" validate:"gte=0"`
	ProxyURI string            `yaml:"proxy_uri" validate:"omitempty,url"`
	Headers  map[string]string `yaml:"headers"`
	Cache    CacheConfig       `yaml:"cache"`
}

// CacheConfig controls the revalidation cache. An empty Path keeps the cache
// in memory.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type QueryConfig struct {
	InlineErrors   []string `yaml:"inline_errors" validate:"dive,oneof=HttpError RdfParseError"`
	MaxConcurrency int      `yaml:"max_concurrency" validate:"gte=0"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	inline := make([]string, len(executor.DefaultInlineErrors))
	for i, k := range executor.DefaultInlineErrors {
		inline[i] = string(k)
	}
	return &Config{
		Backend: BackendWeb,
		Fetch: FetchConfig{
			Timeout: backend.DefaultTimeout,
		},
		Query: QueryConfig{
			InlineErrors: inline,
		},
		Server: ServerConfig{
			Addr: "localhost:8080",
		},
	}
}

// Load reads the configuration file at path. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// InlineErrorKinds returns the configured inlineable error kinds
func (c *Config) InlineErrorKinds() ([]executor.ErrorKind, error) {
	kinds := make([]executor.ErrorKind, 0, len(c.Query.InlineErrors))
	for _, s := range c.Query.InlineErrors {
		k, err := executor.ParseErrorKind(s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
