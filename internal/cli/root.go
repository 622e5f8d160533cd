// Package cli implements the diagsink command-line interface using cobra.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "0.1.0-dev"

// Execute runs the root command.
func Execute() error {
	return rootCmd().Execute()
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagsink",
		Short: "Rotating diagnostics sink for benchmark telemetry",
		Long: `Diagsink captures latency diagnostics emitted by a running benchmark,
appends them to local rotating segment files, and ships completed
segments to remote object storage when the run ends.

Records arrive one per line as "name;payload" and are passed through
verbatim. Segment files rotate when they cross the configured size
threshold; at shutdown every segment is drained and uploaded.

Quick start:
  my-benchmark | diagsink run
  my-benchmark | diagsink run --config diagsink.yaml
  diagsink check --config diagsink.yaml`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		runCmd(),
		checkCmd(),
	)

	return cmd
}
