// Package runner executes benchmark suites against a fixture host.
//
// It provides:
//   - State, which walks enabled suites and their tests in order
//   - Runner, a step loop that loads one fixture per suite and times each test
//   - Client, optional lifecycle hooks for reporters and exporters
//   - Multi-iteration runs that collect one summary per iteration
//
// Each test is timed in two phases: the synchronous body, then the host work
// it triggered, measured across a zero-delay yield and a forced layout read.
// The runner then waits for the next paint before moving on.
package runner
