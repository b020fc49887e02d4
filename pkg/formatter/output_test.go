package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/thoth-station/build-analysers/pkg/analyzer"
	"github.com/thoth-station/build-analysers/pkg/batch"
	"github.com/thoth-station/build-analysers/pkg/model"
)

const genericLog = "install A\n" +
	"install B (requires A)\n" +
	"install C (requires A)\n" +
	"conflict: B requires A==1, C requires A==2\n" +
	"fail B\n"

func init() {
	color.NoColor = true
}

func analyze(t *testing.T, log string) ([]model.DependencyRow, model.Report) {
	t.Helper()
	rows, report, err := analyzer.NewDefault().Analyze(log)
	require.NoError(t, err)
	return rows, report
}

func render(t *testing.T, format string, pretty bool, fn func(*Formatter) error) string {
	t.Helper()
	var buf bytes.Buffer
	f, err := New(&buf, format, pretty)
	require.NoError(t, err)
	require.NoError(t, fn(f))
	return buf.String()
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", false)
	assert.ErrorContains(t, err, "xml")

	f, err := New(&bytes.Buffer{}, "", false)
	require.NoError(t, err)
	assert.Equal(t, FormatHuman, f.format)
}

func TestReport_JSON(t *testing.T) {
	_, report := analyze(t, genericLog)
	out := render(t, FormatJSON, false, func(f *Formatter) error { return f.Report(report) })

	var doc struct {
		Branch struct {
			Rows []struct {
				Package string `json:"package"`
				Outcome string `json:"outcome"`
			} `json:"rows"`
			FailureIndex int `json:"failure_index"`
		} `json:"failed_branch"`
		Candidates []struct {
			Package string  `json:"package"`
			Score   float64 `json:"score"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Branch.Rows, 3)
	assert.Equal(t, "failure", doc.Branch.Rows[1].Outcome)
	assert.Equal(t, 1, doc.Branch.FailureIndex)
	require.NotEmpty(t, doc.Candidates)
	assert.Equal(t, "A", doc.Candidates[0].Package)
	assert.InDelta(t, 4.5, doc.Candidates[0].Score, 1e-9)
}

func TestReport_PrettyJSONIsIndented(t *testing.T) {
	_, report := analyze(t, genericLog)
	compact := render(t, FormatJSON, false, func(f *Formatter) error { return f.Report(report) })
	pretty := render(t, FormatJSON, true, func(f *Formatter) error { return f.Report(report) })

	assert.NotContains(t, compact, "\n  ")
	assert.Contains(t, pretty, "\n  \"failed_branch\"")
}

func TestReport_YAML(t *testing.T) {
	_, report := analyze(t, genericLog)
	out := render(t, FormatYAML, false, func(f *Formatter) error { return f.Report(report) })

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "failed_branch")
	assert.Contains(t, doc, "candidates")
	assert.Contains(t, out, "outcome: failure")
}

func TestReport_Human(t *testing.T) {
	_, report := analyze(t, genericLog)
	out := render(t, FormatHuman, false, func(f *Formatter) error { return f.Report(report) })

	assert.Contains(t, out, "FAILED INSTALLATION")
	assert.Contains(t, out, "B (line 5)")
	assert.Contains(t, out, "1. 🔴 A  score 4.50")
	assert.Contains(t, out, "Constraints: B ==1; C ==2")
	assert.Contains(t, out, "handler generic, 6 events, 3 rows")
}

func TestReport_HumanWithoutFailure(t *testing.T) {
	_, report := analyze(t, "install flask\ninstalled flask 2.3.0\n")
	out := render(t, FormatHuman, false, func(f *Formatter) error { return f.Report(report) })

	assert.Contains(t, out, "NO FAILURE FOUND")
	assert.NotContains(t, out, "CANDIDATES")
}

func TestReport_Table(t *testing.T) {
	_, report := analyze(t, genericLog)
	out := render(t, FormatTable, false, func(f *Formatter) error { return f.Report(report) })

	assert.Contains(t, out, "PACKAGE")
	assert.Contains(t, out, "failure")
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "4.50")
}

func TestBranch(t *testing.T) {
	rows, report := analyze(t, genericLog)
	doc := Branch{FailedBranch: report.Branch, Installed: analyzer.SuccessfullyInstalled(rows)}

	out := render(t, FormatJSON, false, func(f *Formatter) error { return f.Branch(doc) })
	assert.Contains(t, out, `"failed_branch"`)
	assert.Contains(t, out, `"installed":null`)

	out = render(t, FormatHuman, false, func(f *Formatter) error { return f.Branch(doc) })
	assert.Contains(t, out, "→ B <- A")
}

func TestRows(t *testing.T) {
	rows, _ := analyze(t, genericLog)

	out := render(t, FormatTable, false, func(f *Formatter) error { return f.Rows(rows) })
	assert.Contains(t, out, "B ==1; C ==2")

	out = render(t, FormatYAML, false, func(f *Formatter) error { return f.Rows(rows) })
	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Len(t, decoded, 3)
}

func TestBatch(t *testing.T) {
	_, report := analyze(t, genericLog)
	results := []batch.Result{
		{Path: "a.log", Digest: "abc", Report: &report},
		{Path: "b.log", Err: errors.New("boom"), Error: "boom"},
	}
	stats := batch.Stats{Hits: 1, Misses: 1, Items: 1}

	out := render(t, FormatTable, false, func(f *Formatter) error { return f.Batch(results, stats) })
	assert.Contains(t, out, "a.log")
	assert.Contains(t, out, "error: boom")
	assert.Contains(t, out, "cache: 1 hits, 1 misses")

	out = render(t, FormatJSON, false, func(f *Formatter) error { return f.Batch(results, stats) })
	var doc BatchDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Results, 2)
	assert.Equal(t, "boom", doc.Results[1].Error)
	assert.Equal(t, uint64(1), doc.Cache.Hits)
}

func TestWrapText(t *testing.T) {
	out := wrapText("alpha beta gamma delta", 14, "  ")
	assert.Equal(t, "  alpha beta\n  gamma delta", out)
}
