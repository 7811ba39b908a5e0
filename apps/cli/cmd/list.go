package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitbench/packages/output"
	"github.com/abdul-hamid-achik/hitbench/packages/suite"
)

var listVerboseFlag bool

var listCmd = &cobra.Command{
	Use:   "list <suites.yaml>",
	Short: "List the suites and tests of a suite file",
	Long: `List the suites defined in a suite file. Disabled suites are marked
and their tests are only shown with --verbose.

Examples:
  hitbench list suites.yaml
  hitbench list suites.yaml -v`,
	Args: cobra.ExactArgs(1),
	RunE: listCommand,
}

func init() {
	listCmd.Flags().BoolVarP(&listVerboseFlag, "verbose", "v", false, "Show tests of disabled suites")
}

func listCommand(cmd *cobra.Command, args []string) error {
	f, err := suite.LoadFile(args[0])
	if err != nil {
		return withExitCode(ExitParseError, err)
	}
	suites, err := f.Compile()
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	reporter := output.NewReporter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(listVerboseFlag),
		output.WithNoColor(noColorFlag),
	)
	reporter.SuiteList(suites)
	reporter.Info("\n%d of %d suites enabled", suite.Enabled(suites), len(suites))
	return nil
}
