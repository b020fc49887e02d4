// Package config loads analyzer settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/thoth-station/build-analysers/pkg/analyzer"
	"github.com/thoth-station/build-analysers/pkg/parser"
)

// Output formats understood by the formatter.
const (
	OutputHuman = "human"
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

var outputFormats = []string{OutputHuman, OutputTable, OutputJSON, OutputYAML}

var logLevels = []string{"debug", "info", "warn", "error"}

// Config is the complete CLI configuration. Zero values are never used
// directly; Default fills every field and a file only overrides the keys it sets.
type Config struct {
	Handler    string           `koanf:"handler"`
	KeepNoise  bool             `koanf:"keep_noise"`
	Top        int              `koanf:"top"`
	Candidates bool             `koanf:"candidates"`
	Output     string           `koanf:"output"`
	LogLevel   string           `koanf:"log_level"`
	Pretty     bool             `koanf:"pretty"`
	NoColor    bool             `koanf:"no_color"`
	Weights    analyzer.Weights `koanf:"weights"`
	Batch      BatchConfig      `koanf:"batch"`
}

// BatchConfig tunes the batch command.
type BatchConfig struct {
	// Workers bounds concurrent analyses. Zero means one per CPU.
	Workers int `koanf:"workers"`

	// CacheSize is the number of reports kept for identical logs.
	CacheSize int `koanf:"cache_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	opts := analyzer.DefaultOptions()
	return &Config{
		Handler:    opts.Handler,
		KeepNoise:  opts.KeepNoise,
		Top:        opts.TopN,
		Candidates: opts.IncludeCandidates,
		Output:     OutputHuman,
		LogLevel:   "warn",
		Weights:    opts.Weights,
		Batch: BatchConfig{
			CacheSize: 128,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed for %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Handler != "" && c.Handler != parser.HandlerAuto {
		if _, err := parser.Lookup(c.Handler); err != nil {
			errs = append(errs, err)
		}
	}
	if !contains(outputFormats, c.Output) {
		errs = append(errs, fmt.Errorf("output must be one of %s, got %q", strings.Join(outputFormats, ", "), c.Output))
	}
	if !contains(logLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("log_level must be one of %s, got %q", strings.Join(logLevels, ", "), c.LogLevel))
	}
	if err := c.Weights.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Batch.Workers < 0 {
		errs = append(errs, fmt.Errorf("batch.workers must be non-negative, got %d", c.Batch.Workers))
	}
	if c.Batch.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("batch.cache_size must be positive, got %d", c.Batch.CacheSize))
	}
	return errors.Join(errs...)
}

// AnalyzerOptions maps the configuration onto engine options.
func (c *Config) AnalyzerOptions() analyzer.Options {
	return analyzer.Options{
		Handler:           c.Handler,
		KeepNoise:         c.KeepNoise,
		TopN:              c.Top,
		IncludeCandidates: c.Candidates,
		Weights:           c.Weights,
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
