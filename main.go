package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoth-station/build-analysers/cmd"
)

var (
	version = "v0.2.0" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "thoth-build-analysers",
		Short: "Find the package that broke a Python build",
		Long: `thoth-build-analysers reads pip, pipenv or generic installer logs, rebuilds the
dependency tree they describe and ranks the packages most likely responsible
for the failed build.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddGlobalFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(
		cmd.NewReportCmd(),
		cmd.NewAnalyzeCmd(),
		cmd.NewDependenciesCmd(),
		cmd.NewBatchCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "thoth-build-analysers version %s\n", version)
		},
	}
}
