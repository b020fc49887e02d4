package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoth-station/build-analysers/pkg/analyzer"
	"github.com/thoth-station/build-analysers/pkg/batch"
	"github.com/thoth-station/build-analysers/pkg/logging"
)

var (
	batchWorkers      int
	batchTop          int
	batchHandler      string
	batchOutputFormat string
)

func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch GLOB...",
		Short: "Analyze many build logs concurrently",
		Long: `Analyze every log matched by the given patterns. Patterns support ** for
recursive matching. Logs with identical content are analyzed only once.

Examples:
  thoth-build-analysers batch 'logs/**/*.log'
  thoth-build-analysers batch 'ci/*.txt' 'nightly/*.log' --workers 8 -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBatch,
	}

	cmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Concurrent analyses (0 for one per CPU)")
	cmd.Flags().IntVarP(&batchTop, "top", "t", analyzer.DefaultTopN, "Number of candidates per report (0 for all)")
	cmd.Flags().StringVar(&batchHandler, "handler", "auto", "Log handler (auto, generic, pip, pipenv)")
	cmd.Flags().StringVarP(&batchOutputFormat, "output", "o", "human", "Output format (human, table, json, yaml)")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, ctx, err := prepare(cmd, overrides{
		handler: &batchHandler,
		top:     &batchTop,
		output:  &batchOutputFormat,
		workers: &batchWorkers,
	})
	if err != nil {
		return err
	}
	logger := logging.FromContext(ctx)

	paths, err := batch.Expand(args)
	if err != nil {
		return err
	}
	logger.Info("analyzing logs", "files", len(paths), "workers", cfg.Batch.Workers)

	a, err := analyzer.New(cfg.AnalyzerOptions())
	if err != nil {
		return err
	}
	runner, err := batch.New(a, batch.Options{
		Workers:   cfg.Batch.Workers,
		CacheSize: cfg.Batch.CacheSize,
	})
	if err != nil {
		return err
	}

	s := startSpinner(cfg, fmt.Sprintf(" Analyzing %d logs...", len(paths)))
	results, err := runner.Run(ctx, paths)
	s.Stop()
	if err != nil {
		return fmt.Errorf("batch analysis interrupted: %w", err)
	}
	printSuccess(cmd, cfg, fmt.Sprintf("Analyzed %d logs", len(paths)))

	f, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}
	if err := f.Batch(results, runner.Stats()); err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d logs could not be analyzed", failed, len(results))
	}
	return nil
}
