package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoth-station/build-analysers/pkg/analyzer"
	"github.com/thoth-station/build-analysers/pkg/logging"
)

var (
	reportTop          int
	reportCandidates   bool
	reportHandler      string
	reportOutputFormat string
)

func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report LOG",
		Short: "Report the failed branch and the most likely build breakers",
		Long: `Analyze a build log and report the branch of the dependency tree that led to
the first failed installation, together with ranked build breaker candidates.

Examples:
  # Report the top 5 candidates of a pip log
  thoth-build-analysers report build.log

  # Only the failed branch, as JSON
  thoth-build-analysers report build.log --candidates=false -o json

  # Read the log from stdin and force the pipenv handler
  cat build.log | thoth-build-analysers report - --handler pipenv`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().IntVarP(&reportTop, "top", "t", analyzer.DefaultTopN, "Number of candidates to report (0 for all)")
	cmd.Flags().BoolVar(&reportCandidates, "candidates", true, "Include ranked candidates")
	cmd.Flags().StringVar(&reportHandler, "handler", "auto", "Log handler (auto, generic, pip, pipenv)")
	cmd.Flags().StringVarP(&reportOutputFormat, "output", "o", "human", "Output format (human, table, json, yaml)")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, ctx, err := prepare(cmd, overrides{
		handler:    &reportHandler,
		top:        &reportTop,
		candidates: &reportCandidates,
		output:     &reportOutputFormat,
	})
	if err != nil {
		return err
	}
	logger := logging.FromContext(ctx)

	text, err := readLog(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := analyzer.New(cfg.AnalyzerOptions())
	if err != nil {
		return err
	}

	s := startSpinner(cfg, " Analyzing build log...")
	report, err := a.Report(text, cfg.Top, cfg.Candidates)
	s.Stop()
	if err != nil {
		return fmt.Errorf("analysis of %s failed: %w", args[0], err)
	}
	logger.Debug("report ready",
		"handler", report.Summary.Handler,
		"events", report.Summary.TotalEvents,
		"rows", report.Summary.TotalRows,
		"candidates", len(report.Candidates))
	for _, w := range report.Warnings {
		logger.Info("report warning", "warning", string(w))
	}
	printSuccess(cmd, cfg, "Analysis complete")

	f, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}
	return f.Report(report)
}
