package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitbench/packages/compare"
)

var (
	compareOutputFlag    string
	compareThresholdFlag string
	compareFailFlag      string
)

var compareCmd = &cobra.Command{
	Use:     "compare <base.json> <head.json>",
	Aliases: []string{"diff"},
	Short:   "Compare two JSON benchmark reports",
	Long: `Compare two reports written by "hitbench run --json" and show how the
score and every suite mean changed.

Suites whose mean moved by less than --threshold are unchanged. With
--fail-threshold, a suite slower by more than that percentage fails the
comparison.

Examples:
  hitbench compare base.json head.json
  hitbench compare base.json head.json --threshold 5%
  hitbench compare base.json head.json --fail-threshold 10% --output json`,
	Args: cobra.ExactArgs(2),
	RunE: compareCommand,
}

func init() {
	compareCmd.Flags().StringVarP(&compareOutputFlag, "output", "o", "console", "Output format: console, json")
	compareCmd.Flags().StringVar(&compareThresholdFlag, "threshold", "2%", "Changes within this percentage count as unchanged")
	compareCmd.Flags().StringVar(&compareFailFlag, "fail-threshold", "", "Fail when a suite regresses by more than this percentage")
}

func compareCommand(cmd *cobra.Command, args []string) error {
	threshold, err := parseThreshold(compareThresholdFlag)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	var fail float64
	if compareFailFlag != "" {
		if fail, err = parseThreshold(compareFailFlag); err != nil {
			return withExitCode(ExitUsageError, err)
		}
	}

	base, err := compare.Load(args[0])
	if err != nil {
		return withExitCode(ExitParseError, err)
	}
	head, err := compare.Load(args[1])
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	result := compare.Compare(base, head, compare.WithThreshold(threshold), compare.WithFailThreshold(fail))

	switch strings.ToLower(compareOutputFlag) {
	case "json":
		err = compare.RenderJSON(cmd.OutOrStdout(), result)
	case "console":
		err = compare.Render(cmd.OutOrStdout(), result)
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown output format %q", compareOutputFlag))
	}

	if errors.Is(err, compare.ErrThresholdExceeded) {
		return withExitCode(ExitRegression, err)
	}
	return err
}

// parseThreshold parses a percentage such as "10%" or "2.5".
func parseThreshold(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("threshold must not be negative, got %v", v)
	}
	return v, nil
}
