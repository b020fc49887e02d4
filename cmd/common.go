package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoth-station/build-analysers/pkg/batch"
	"github.com/thoth-station/build-analysers/pkg/config"
	"github.com/thoth-station/build-analysers/pkg/formatter"
	"github.com/thoth-station/build-analysers/pkg/logging"
)

var (
	configPath string
	logLevel   string
	pretty     bool
	keepNoise  bool
	noColor    bool
)

// AddGlobalFlags registers the flags shared by every subcommand.
func AddGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVar(&pretty, "pretty", false, "Indent JSON output")
	flags.BoolVar(&keepNoise, "keep-noise", true, "Keep unrecognized lines as context for error attribution")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// overrides copies flags the user set explicitly onto cfg.
type overrides struct {
	handler    *string
	top        *int
	candidates *bool
	output     *string
	workers    *int
}

// prepare loads the configuration, applies explicit flags and returns a
// context carrying the logger.
func prepare(cmd *cobra.Command, o overrides) (*config.Config, context.Context, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("pretty") {
		cfg.Pretty = pretty
	}
	if flags.Changed("keep-noise") {
		cfg.KeepNoise = keepNoise
	}
	if flags.Changed("no-color") {
		cfg.NoColor = noColor
	}
	if o.handler != nil && flags.Changed("handler") {
		cfg.Handler = *o.handler
	}
	if o.top != nil && flags.Changed("top") {
		cfg.Top = *o.top
	}
	if o.candidates != nil && flags.Changed("candidates") {
		cfg.Candidates = *o.candidates
	}
	if o.output != nil && flags.Changed("output") {
		cfg.Output = *o.output
	}
	if o.workers != nil && flags.Changed("workers") {
		cfg.Batch.Workers = *o.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid settings: %w", err)
	}

	if cfg.NoColor {
		color.NoColor = true
	}

	structured := cfg.Output == config.OutputJSON || cfg.Output == config.OutputYAML
	logger := logging.New(cfg.LogLevel, structured, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return cfg, logging.WithLogger(ctx, logger), nil
}

func newFormatter(cmd *cobra.Command, cfg *config.Config) (*formatter.Formatter, error) {
	return formatter.New(cmd.OutOrStdout(), cfg.Output, cfg.Pretty)
}

// readLog reads the log at path, or standard input when path is "-".
func readLog(cmd *cobra.Command, path string) (string, error) {
	if path != "-" {
		return batch.ReadLog(path)
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read log from stdin: %w", err)
	}
	return batch.DecodeLog(data), nil
}

// startSpinner shows progress on stderr for human output. The spinner stays
// silent when stderr is not a terminal.
func startSpinner(cfg *config.Config, suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	if cfg.Output == config.OutputHuman {
		s.Start()
	}
	return s
}

func printSuccess(cmd *cobra.Command, cfg *config.Config, msg string) {
	if cfg.Output != config.OutputHuman {
		return
	}
	green := color.New(color.FgGreen)
	green.Fprintf(cmd.ErrOrStderr(), "✓ %s\n", msg)
}
