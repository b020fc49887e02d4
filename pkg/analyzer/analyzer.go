// Package analyzer is the build-breaker analysis engine.
//
// An analysis run is a forward pipeline of pure stages:
//
//	log text -> events -> dependency table -> failed branch -> candidates -> report
//
// No stage keeps state between runs, so one Analyzer may be shared by
// goroutines analyzing different logs.
package analyzer

import (
	"github.com/thoth-station/build-analysers/pkg/model"
	"github.com/thoth-station/build-analysers/pkg/parser"
	"github.com/thoth-station/build-analysers/pkg/table"
)

// Options configure an Analyzer.
type Options struct {
	Handler           string
	KeepNoise         bool
	TopN              int
	IncludeCandidates bool
	Weights           Weights
}

// DefaultOptions returns auto detection, noise kept for context, top 5 candidates.
func DefaultOptions() Options {
	return Options{
		Handler:           parser.HandlerAuto,
		KeepNoise:         true,
		TopN:              DefaultTopN,
		IncludeCandidates: true,
		Weights:           DefaultWeights(),
	}
}

type Analyzer struct {
	opts Options
}

// New validates opts and returns an Analyzer.
func New(opts Options) (*Analyzer, error) {
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}
	if opts.Handler != "" && opts.Handler != parser.HandlerAuto {
		if _, err := parser.Lookup(opts.Handler); err != nil {
			return nil, err
		}
	}
	return &Analyzer{opts: opts}, nil
}

// NewDefault returns an Analyzer using DefaultOptions.
func NewDefault() *Analyzer {
	return &Analyzer{opts: DefaultOptions()}
}

// Options returns the options the analyzer was built with.
func (a *Analyzer) Options() Options {
	return a.opts
}

// Analyze runs the whole pipeline and returns the dependency table together
// with the report.
func (a *Analyzer) Analyze(logText string) ([]model.DependencyRow, model.Report, error) {
	return a.run(logText, a.opts.TopN, a.opts.IncludeCandidates)
}

// Report runs the pipeline with an explicit candidate limit and returns only the report.
func (a *Analyzer) Report(logText string, topN int, includeCandidates bool) (model.Report, error) {
	_, report, err := a.run(logText, topN, includeCandidates)
	return report, err
}

// DependencyTable parses logText and returns the reconstructed rows without
// failure analysis.
func (a *Analyzer) DependencyTable(logText string) ([]model.DependencyRow, error) {
	res, err := a.parse(logText)
	if err != nil {
		return nil, err
	}
	return table.Build(res.Events).Rows(), nil
}

func (a *Analyzer) run(logText string, topN int, includeCandidates bool) ([]model.DependencyRow, model.Report, error) {
	res, err := a.parse(logText)
	if err != nil {
		return nil, model.Report{}, err
	}

	tbl := table.Build(res.Events)
	rows := tbl.Rows()

	branch := FailedBranch(rows)
	var candidates []model.Candidate
	if includeCandidates {
		candidates = Rank(branch, topN, a.opts.Weights)
	}
	summary := Summarize(rows, len(res.Events), res.Handler, tbl.Anomalies())

	return rows, Assemble(branch, candidates, summary, includeCandidates), nil
}

func (a *Analyzer) parse(logText string) (*parser.Result, error) {
	res, err := parser.Parse(logText, parser.Options{
		Handler:   a.opts.Handler,
		KeepNoise: a.opts.KeepNoise,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Events) == 0 {
		return nil, &parser.MalformedLogError{Handler: res.Handler, Lines: res.Lines}
	}
	return res, nil
}
