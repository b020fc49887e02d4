package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/thoth-station/build-analysers/pkg/batch"
	"github.com/thoth-station/build-analysers/pkg/model"
)

// Output formats.
const (
	FormatHuman = "human"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formatter renders analysis results to a writer.
type Formatter struct {
	w      io.Writer
	format string
	pretty bool
}

// New returns a Formatter for format. Pretty indents JSON output.
func New(w io.Writer, format string, pretty bool) (*Formatter, error) {
	switch format {
	case FormatHuman, FormatTable, FormatJSON, FormatYAML:
	case "":
		format = FormatHuman
	default:
		return nil, fmt.Errorf("unsupported output format %q (use human, table, json or yaml)", format)
	}
	return &Formatter{w: w, format: format, pretty: pretty}, nil
}

// Branch is the document printed by the analyze command.
type Branch struct {
	FailedBranch model.FailedBranch `json:"failed_branch" yaml:"failed_branch"`
	Installed    []string           `json:"installed" yaml:"installed"`
}

// BatchDocument is the document printed by the batch command.
type BatchDocument struct {
	Results []batch.Result `json:"results" yaml:"results"`
	Cache   batch.Stats    `json:"cache" yaml:"cache"`
}

// Report writes a full build breaker report.
func (f *Formatter) Report(r model.Report) error {
	switch f.format {
	case FormatJSON:
		return f.json(r)
	case FormatYAML:
		return f.yaml(r)
	case FormatTable:
		f.rowsTable(r.Branch.Rows)
		if len(r.Candidates) > 0 {
			fmt.Fprintln(f.w)
			f.candidatesTable(r.Candidates)
		}
		return nil
	default:
		f.humanReport(r)
		return nil
	}
}

// Branch writes the failed branch and the packages that installed cleanly.
func (f *Formatter) Branch(b Branch) error {
	switch f.format {
	case FormatJSON:
		return f.json(b)
	case FormatYAML:
		return f.yaml(b)
	case FormatTable:
		f.rowsTable(b.FailedBranch.Rows)
		return nil
	default:
		f.humanBranch(b.FailedBranch)
		if len(b.Installed) > 0 {
			green := color.New(color.FgGreen, color.Bold)
			green.Fprintln(f.w, "✅ INSTALLED:")
			fmt.Fprintln(f.w, wrapText(strings.Join(b.Installed, ", "), 80, "   "))
		}
		return nil
	}
}

// Rows writes a dependency table.
func (f *Formatter) Rows(rows []model.DependencyRow) error {
	switch f.format {
	case FormatJSON:
		return f.json(rows)
	case FormatYAML:
		return f.yaml(rows)
	default:
		f.rowsTable(rows)
		return nil
	}
}

// Batch writes the per-file results of a batch run.
func (f *Formatter) Batch(results []batch.Result, stats batch.Stats) error {
	switch f.format {
	case FormatJSON:
		return f.json(BatchDocument{Results: results, Cache: stats})
	case FormatYAML:
		return f.yaml(BatchDocument{Results: results, Cache: stats})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FILE", "FAILURE", "TOP CANDIDATE", "SCORE", "CACHED")
	for _, res := range results {
		if res.Err != nil {
			t.Row(res.Path, "error: "+res.Error, "", "", "")
			continue
		}
		failure, top, score := "-", "-", "-"
		if row, ok := res.Report.Branch.Failure(); ok {
			failure = row.Package
		}
		if len(res.Report.Candidates) > 0 {
			top = res.Report.Candidates[0].Package
			score = fmt.Sprintf("%.2f", res.Report.Candidates[0].Score)
		}
		t.Row(res.Path, failure, top, score, fmt.Sprintf("%t", res.Cached))
	}
	fmt.Fprintln(f.w, t.String())
	fmt.Fprintf(f.w, "%s\n", color.HiBlackString("cache: %d hits, %d misses", stats.Hits, stats.Misses))
	return nil
}

func (f *Formatter) json(v any) error {
	var (
		output []byte
		err    error
	)
	if f.pretty {
		output, err = json.MarshalIndent(v, "", "  ")
	} else {
		output, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.w, string(output))
	return err
}

func (f *Formatter) yaml(v any) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(f.w, string(output))
	return err
}

func (f *Formatter) humanReport(r model.Report) {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Fprintln(f.w)

	f.humanBranch(r.Branch)

	if len(r.Candidates) > 0 {
		yellow.Fprintln(f.w, "⚠️  BUILD BREAKER CANDIDATES:")
		for i, c := range r.Candidates {
			fmt.Fprintf(f.w, "   %d. %s %s  score %.2f\n", i+1, getScoreIcon(c.Score, r.Candidates[0].Score), c.Package, c.Score)
			if reasons := describeFactors(c.Factors); reasons != "" {
				fmt.Fprintf(f.w, "      %s\n", color.HiBlackString(reasons))
			}
			for _, ev := range c.Evidence {
				if len(ev.Constraints) > 0 {
					fmt.Fprintf(f.w, "      Constraints: %s\n", color.YellowString(strings.Join(ev.Constraints, "; ")))
				}
				for _, line := range ev.Context {
					fmt.Fprintf(f.w, "      Evidence: %s\n", color.RedString(line))
				}
			}
		}
		fmt.Fprintln(f.w)
	}

	s := r.Summary
	cyan.Fprintln(f.w, "📊 SUMMARY:")
	fmt.Fprintf(f.w, "   handler %s, %d events, %d rows\n", s.Handler, s.TotalEvents, s.TotalRows)
	fmt.Fprintf(f.w, "   %s installed, %s failed, %d unknown\n",
		color.GreenString("%d", s.Installed), red.Sprintf("%d", s.Failed), s.Unknown)
	if s.Anomalies.Total() > 0 {
		fmt.Fprintf(f.w, "   %s\n", color.YellowString("%d unresolved outcomes, %d cycles broken",
			s.Anomalies.UnresolvedOutcomes, s.Anomalies.CyclesBroken))
	}
	fmt.Fprintln(f.w)

	fmt.Fprintln(f.w, strings.Repeat("─", 80))
	fmt.Fprintf(f.w, "💡 %s\n", color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
}

func (f *Formatter) humanBranch(b model.FailedBranch) {
	failure, ok := b.Failure()
	if !ok {
		green := color.New(color.FgGreen, color.Bold)
		green.Fprintln(f.w, "✅ NO FAILURE FOUND")
		fmt.Fprintf(f.w, "   %s\n\n", "The log records no failed installation.")
		return
	}

	red := color.New(color.FgRed, color.Bold)
	red.Fprintln(f.w, "💥 FAILED INSTALLATION:")
	fmt.Fprintf(f.w, "   %s (line %d)\n\n", failure.Package, failure.LastLine)

	white := color.New(color.FgWhite, color.Bold)
	white.Fprintln(f.w, "🌳 FAILED BRANCH:")
	for i, row := range b.Rows {
		marker := " "
		if i == b.FailureIndex {
			marker = "→"
		}
		fmt.Fprintf(f.w, "   %s %s %s\n", marker, describeRow(row), getOutcomeColor(row.Outcome).Sprint(row.Outcome))
	}
	fmt.Fprintln(f.w)
}

func (f *Formatter) rowsTable(rows []model.DependencyRow) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "PACKAGE", "VERSION", "PARENT", "OUTCOME", "CONFLICT", "ATTEMPTS", "LINES")
	for _, r := range rows {
		conflict := ""
		if r.Conflict {
			conflict = strings.Join(r.Constraints, "; ")
		}
		t.Row(
			fmt.Sprintf("%d", r.Index),
			r.Package,
			r.Version,
			r.Parent,
			r.Outcome.String(),
			conflict,
			fmt.Sprintf("%d", r.Attempts),
			fmt.Sprintf("%d-%d", r.FirstLine, r.LastLine),
		)
	}
	fmt.Fprintln(f.w, t.String())
}

func (f *Formatter) candidatesTable(candidates []model.Candidate) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RANK", "PACKAGE", "SCORE", "CONFLICT", "VIOLATION", "PROXIMITY", "FAILURE", "ERRORS")
	for i, c := range candidates {
		t.Row(
			fmt.Sprintf("%d", i+1),
			c.Package,
			fmt.Sprintf("%.2f", c.Score),
			fmt.Sprintf("%.2f", c.Factors.Conflict),
			fmt.Sprintf("%.2f", c.Factors.Violation),
			fmt.Sprintf("%.2f", c.Factors.Proximity),
			fmt.Sprintf("%.2f", c.Factors.Failure),
			fmt.Sprintf("%.2f", c.Factors.ErrorContext),
		)
	}
	fmt.Fprintln(f.w, t.String())
}

func describeRow(r model.DependencyRow) string {
	name := r.Package
	if r.Version != "" {
		name += " " + r.Version
	}
	switch r.Parent {
	case "":
		name += " (root)"
	default:
		name += " <- " + r.Parent
	}
	if r.Conflict {
		name += " " + color.YellowString("[conflict]")
	}
	return name
}

func describeFactors(f model.ScoreFactors) string {
	var parts []string
	add := func(name string, v float64) {
		if v > 0 {
			parts = append(parts, fmt.Sprintf("%s %.2f", name, v))
		}
	}
	add("conflict", f.Conflict)
	add("violation", f.Violation)
	add("failure", f.Failure)
	add("errors", f.ErrorContext)
	add("proximity", f.Proximity)
	add("appearance", f.Appearance)
	return strings.Join(parts, ", ")
}

func getOutcomeColor(o model.Outcome) *color.Color {
	switch o {
	case model.OutcomeFailure:
		return color.New(color.FgRed)
	case model.OutcomeSuccess:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func getScoreIcon(score, best float64) string {
	switch {
	case best <= 0:
		return "⚪"
	case score >= best:
		return "🔴"
	case score >= best*0.75:
		return "🟠"
	case score >= best*0.5:
		return "🟡"
	default:
		return "🟢"
	}
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		currentLine := indent
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				result.WriteString(currentLine + "\n")
				currentLine = indent + word
			} else if currentLine == indent {
				currentLine += word
			} else {
				currentLine += " " + word
			}
		}

		if currentLine != indent {
			result.WriteString(currentLine + "\n")
		}
	}

	return strings.TrimSuffix(result.String(), "\n")
}
