package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoth-station/build-analysers/pkg/analyzer"
	"github.com/thoth-station/build-analysers/pkg/config"
	"github.com/thoth-station/build-analysers/pkg/logging"
)

var (
	dependenciesHandler      string
	dependenciesOutputFormat string
)

func NewDependenciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dependencies LOG",
		Short: "Print the dependency table reconstructed from a build log",
		Long: `Print one row per (package, parent) pair found in the log, with its resolved
version, outcome, conflict markers and the log lines it spans.

Examples:
  thoth-build-analysers dependencies build.log
  thoth-build-analysers dependencies build.log -o json --pretty`,
		Args: cobra.ExactArgs(1),
		RunE: runDependencies,
	}

	cmd.Flags().StringVar(&dependenciesHandler, "handler", "auto", "Log handler (auto, generic, pip, pipenv)")
	cmd.Flags().StringVarP(&dependenciesOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")

	return cmd
}

func runDependencies(cmd *cobra.Command, args []string) error {
	cfg, ctx, err := prepare(cmd, overrides{
		handler: &dependenciesHandler,
		output:  &dependenciesOutputFormat,
	})
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("output") && cfg.Output == config.OutputHuman {
		cfg.Output = dependenciesOutputFormat
	}

	text, err := readLog(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := analyzer.New(cfg.AnalyzerOptions())
	if err != nil {
		return err
	}
	rows, err := a.DependencyTable(text)
	if err != nil {
		return fmt.Errorf("analysis of %s failed: %w", args[0], err)
	}
	logging.FromContext(ctx).Debug("dependency table built", "rows", len(rows))

	f, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}
	return f.Rows(rows)
}
