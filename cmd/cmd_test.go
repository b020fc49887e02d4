package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/thoth-station/build-analysers/pkg/batch"
	"github.com/thoth-station/build-analysers/pkg/parser"
)

const genericLog = "install A\n" +
	"install B (requires A)\n" +
	"install C (requires A)\n" +
	"conflict: B requires A==1, C requires A==2\n" +
	"fail B\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "thoth-build-analysers", SilenceUsage: true, SilenceErrors: true}
	AddGlobalFlags(root)
	root.AddCommand(NewReportCmd(), NewAnalyzeCmd(), NewDependenciesCmd(), NewBatchCmd())

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--no-color"))

	err := root.Execute()
	return stdout.String(), err
}

func TestReportCmd_JSON(t *testing.T) {
	log := writeFile(t, t.TempDir(), "build.log", genericLog)

	out, err := execute(t, "", "report", log, "-o", "json", "--top", "2")
	require.NoError(t, err)

	var doc struct {
		Candidates []struct {
			Package string `json:"package"`
		} `json:"candidates"`
		Summary struct {
			Failed int `json:"failed"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Candidates, 2)
	assert.Equal(t, "A", doc.Candidates[0].Package)
	assert.Equal(t, 1, doc.Summary.Failed)
}

func TestReportCmd_WithoutCandidatesFromStdin(t *testing.T) {
	out, err := execute(t, genericLog, "report", "-", "-o", "json", "--candidates=false")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotContains(t, doc, "candidates")
	assert.Contains(t, doc, "failed_branch")
}

func TestReportCmd_Human(t *testing.T) {
	log := writeFile(t, t.TempDir(), "build.log", genericLog)

	out, err := execute(t, "", "report", log)
	require.NoError(t, err)
	assert.Contains(t, out, "FAILED INSTALLATION")
	assert.Contains(t, out, "BUILD BREAKER CANDIDATES")
}

func TestReportCmd_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	log := writeFile(t, dir, "build.log", genericLog)
	cfg := writeFile(t, dir, "thoth.yaml", "output: yaml\ntop: 1\n")

	out, err := execute(t, "", "report", log, "--config", cfg)
	require.NoError(t, err)

	var doc struct {
		Candidates []map[string]any `yaml:"candidates"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Candidates, 1)

	out, err = execute(t, "", "report", log, "--config", cfg, "-o", "json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)), "explicit flags win over the config file")
}

func TestReportCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.log", "")

	_, err := execute(t, "", "report", empty, "-o", "json")
	assert.ErrorIs(t, err, parser.ErrMalformedLog)

	_, err = execute(t, "", "report", filepath.Join(dir, "missing.log"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, "", "report", empty, "--handler", "conda")
	assert.ErrorIs(t, err, parser.ErrUnknownHandler)

	_, err = execute(t, "", "report", empty, "-o", "xml")
	assert.ErrorContains(t, err, "output must be one of")
}

func TestAnalyzeCmd_Alias(t *testing.T) {
	log := writeFile(t, t.TempDir(), "build.log", genericLog)

	for _, name := range []string{"analyze", "analyse"} {
		out, err := execute(t, "", name, log, "-o", "yaml")
		require.NoError(t, err, name)
		assert.Contains(t, out, "failed_branch:")
		assert.Contains(t, out, "failure_index: 1")
	}
}

func TestDependenciesCmd(t *testing.T) {
	log := writeFile(t, t.TempDir(), "build.log", genericLog)

	out, err := execute(t, "", "dependencies", log)
	require.NoError(t, err)
	assert.Contains(t, out, "PACKAGE")
	assert.Contains(t, out, "B ==1; C ==2")

	out, err = execute(t, "", "dependencies", log, "-o", "json", "--pretty")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 3)
}

func TestBatchCmd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.log", genericLog)
	writeFile(t, dir, "b.log", genericLog)

	out, err := execute(t, "", "batch", filepath.Join(dir, "*.log"), "-o", "json", "-w", "1")
	require.NoError(t, err)

	var doc struct {
		Results []batch.Result `json:"results"`
		Cache   batch.Stats    `json:"cache"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Results, 2)
	assert.Equal(t, uint64(1), doc.Cache.Hits)
	assert.True(t, doc.Results[1].Cached)

	writeFile(t, dir, "c.log", "")
	_, err = execute(t, "", "batch", filepath.Join(dir, "*.log"), "-o", "json")
	assert.ErrorContains(t, err, "1 of 3 logs could not be analyzed")

	_, err = execute(t, "", "batch", filepath.Join(dir, "*.nope"))
	assert.ErrorIs(t, err, batch.ErrNoFiles)
}
