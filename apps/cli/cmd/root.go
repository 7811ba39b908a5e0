package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "hitbench",
	Short: "Interaction benchmarks for UI fixtures.",
	Long: `hitbench replays scripted user interactions against a fixture page and
measures how long the synchronous work and the follow-up layout take.

Suites are plain YAML files. Each suite loads a fixture, optionally prepares
it, and runs its tests in order. The run ends with a single score derived
from the geometric mean of the suite totals.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code carried by the error.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitBenchmarkError
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITBENCH_NO_COLOR", false), "Disable colored output (env: HITBENCH_NO_COLOR)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
