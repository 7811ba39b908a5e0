// Package output provides reporters for benchmark runs.
//
// Supported output formats:
//   - Console: colored progress lines and run summaries
//   - JSON: machine-readable report with one entry per iteration
//   - JUnit: JUnit XML with one testsuite per suite and iteration
//
// Each reporter exposes Client, returning runner hooks that feed it while the
// run progresses. JSON and JUnit accumulate results and write them on Flush.
package output
