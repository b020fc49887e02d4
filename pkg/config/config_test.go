package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoth-station/build-analysers/pkg/analyzer"
	"github.com/thoth-station/build-analysers/pkg/parser"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thoth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, parser.HandlerAuto, cfg.Handler)
	assert.Equal(t, analyzer.DefaultTopN, cfg.Top)
	assert.True(t, cfg.Candidates)
	assert.Equal(t, analyzer.DefaultWeights(), cfg.Weights)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
handler: pip
top: 3
output: json
weights:
  conflict: 4
batch:
  workers: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, parser.HandlerPip, cfg.Handler)
	assert.Equal(t, 3, cfg.Top)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.Equal(t, 4.0, cfg.Weights.Conflict)
	assert.Equal(t, 2.0, cfg.Weights.Proximity, "unset weights keep their default")
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, 128, cfg.Batch.CacheSize)
	assert.True(t, cfg.KeepNoise)

	opts := cfg.AnalyzerOptions()
	assert.Equal(t, 3, opts.TopN)
	assert.Equal(t, 4.0, opts.Weights.Conflict)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "negative weight", content: "weights:\n  proximity: -1\n", want: "proximity"},
		{name: "unknown handler", content: "handler: conda\n", want: "unknown log handler"},
		{name: "bad output", content: "output: xml\n", want: "output must be one of"},
		{name: "bad log level", content: "log_level: loud\n", want: "log_level"},
		{name: "bad cache", content: "batch:\n  cache_size: 0\n", want: "cache_size"},
		{name: "invalid yaml", content: "top: [1,\n", want: "failed to load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to load config")
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Output = "xml"
	cfg.Batch.Workers = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
	assert.Contains(t, err.Error(), "batch.workers")
}
