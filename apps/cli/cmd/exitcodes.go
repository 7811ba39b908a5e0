package cmd

// Exit codes for hitbench CLI
const (
	// ExitSuccess indicates the run completed
	ExitSuccess = 0

	// ExitBenchmarkError indicates a run was aborted by a failing load, prepare or test
	ExitBenchmarkError = 1

	// ExitParseError indicates a suite or report file could not be parsed
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitRegression indicates compare found a regression beyond the fail threshold
	ExitRegression = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for err.
type exitError struct {
	code int
	err  error
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }
