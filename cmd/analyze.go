package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoth-station/build-analysers/pkg/analyzer"
	"github.com/thoth-station/build-analysers/pkg/formatter"
	"github.com/thoth-station/build-analysers/pkg/logging"
)

var (
	analyzeHandler      string
	analyzeOutputFormat string
)

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "analyze LOG",
		Aliases: []string{"analyse"},
		Short:   "Show the failed branch of a build log",
		Long: `Reconstruct the dependency tree of a build log and print the branch that led
to the first failed installation, plus the packages that installed cleanly.

Examples:
  thoth-build-analysers analyze build.log
  thoth-build-analysers analyse build.log -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVar(&analyzeHandler, "handler", "auto", "Log handler (auto, generic, pip, pipenv)")
	cmd.Flags().StringVarP(&analyzeOutputFormat, "output", "o", "human", "Output format (human, table, json, yaml)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, ctx, err := prepare(cmd, overrides{
		handler: &analyzeHandler,
		output:  &analyzeOutputFormat,
	})
	if err != nil {
		return err
	}

	text, err := readLog(cmd, args[0])
	if err != nil {
		return err
	}

	opts := cfg.AnalyzerOptions()
	opts.IncludeCandidates = false
	a, err := analyzer.New(opts)
	if err != nil {
		return err
	}

	s := startSpinner(cfg, " Reconstructing dependency tree...")
	rows, report, err := a.Analyze(text)
	s.Stop()
	if err != nil {
		return fmt.Errorf("analysis of %s failed: %w", args[0], err)
	}
	logging.FromContext(ctx).Debug("branch isolated",
		"rows", len(rows),
		"branch", len(report.Branch.Rows),
		"failure_index", report.Branch.FailureIndex)

	f, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}
	return f.Branch(formatter.Branch{
		FailedBranch: report.Branch,
		Installed:    analyzer.SuccessfullyInstalled(rows),
	})
}
