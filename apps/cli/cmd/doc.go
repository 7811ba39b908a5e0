// Package cmd implements the hitbench CLI commands using Cobra.
//
// Available commands:
//   - run: Execute benchmark suites and report timings and the score
//   - validate: Check suite files and their fixture documents without running
//   - list: Display the suites and tests of a suite file
//   - history: Show runs stored in the SQLite history database
//   - compare: Diff two JSON reports and flag regressions
//   - init: Create a starter suite, fixture and config
//   - version: Show hitbench version information
//
// The run command merges the config file with flags, can repeat iterations,
// record batch action logs, export metrics and re-run on file changes.
package cmd
