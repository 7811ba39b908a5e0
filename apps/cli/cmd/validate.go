package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitbench/packages/fixture/memdom"
	"github.com/abdul-hamid-achik/hitbench/packages/output"
	"github.com/abdul-hamid-achik/hitbench/packages/suite"
)

var validateCmd = &cobra.Command{
	Use:   "validate <suites.yaml>...",
	Short: "Validate suite files and their fixture documents",
	Long: `Validate suite files against the suite schema, compile their steps and
parse every fixture document they reference, without running anything.

Examples:
  hitbench validate suites.yaml
  hitbench validate bench/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	reporter := output.NewReporter(output.WithWriter(cmd.OutOrStdout()), output.WithNoColor(noColorFlag))

	hasErrors := false
	for _, file := range args {
		count, err := validateFile(file)
		if err != nil {
			reporter.Error(fmt.Errorf("%s: %w", file, err))
			hasErrors = true
			continue
		}
		reporter.Info("Valid: %s (%d suites)", file, count)
	}

	if hasErrors {
		return withExitCode(ExitParseError, errors.New("validation failed"))
	}
	return nil
}

// validateFile checks a suite file and returns the number of suites it defines.
func validateFile(path string) (int, error) {
	f, err := suite.LoadFile(path)
	if err != nil {
		return 0, err
	}
	if _, err := f.Compile(); err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	var errs []error
	for _, s := range f.Suites {
		if s.Disabled {
			continue
		}
		doc := filepath.Join(dir, filepath.FromSlash(f.ResourceBase+s.URL))
		if _, err := memdom.LoadDocument(doc); err != nil {
			errs = append(errs, fmt.Errorf("suite %q: %w", s.Name, err))
		}
	}
	return len(f.Suites), errors.Join(errs...)
}
