// Package suite defines benchmark suites and the tests they contain.
//
// Suites can be built directly in Go or loaded from YAML suite files, which are
// validated against an embedded JSON schema and compiled into Suite values.
package suite

import (
	"context"

	"github.com/abdul-hamid-achik/hitbench/packages/page"
)

// Test is a single named unit of work run against a prepared fixture.
//
// Run is synchronous. Anything it schedules on the host is measured by the
// runner, not awaited by the body. A non-nil error aborts the remaining run.
type Test struct {
	Name string
	Run  func(p page.Accessor) error
}

// PrepareFunc initializes a freshly loaded fixture before the suite's first test.
type PrepareFunc func(ctx context.Context, p page.Accessor) error

// Suite is an ordered collection of tests sharing one fixture.
type Suite struct {
	Name     string
	URL      string
	Disabled bool
	Tests    []*Test
	Prepare  PrepareFunc
}

// NewTest creates a test step
func NewTest(name string, run func(p page.Accessor) error) *Test {
	return &Test{Name: name, Run: run}
}

// Enabled returns the number of suites that are not disabled.
func Enabled(suites []*Suite) int {
	n := 0
	for _, s := range suites {
		if !s.Disabled {
			n++
		}
	}
	return n
}

// Filter returns copies of suites where every suite whose name is not in names
// is disabled. An empty names leaves the collection untouched.
func Filter(suites []*Suite, names []string) []*Suite {
	if len(names) == 0 {
		return suites
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}

	out := make([]*Suite, len(suites))
	for i, s := range suites {
		c := *s
		if !keep[s.Name] {
			c.Disabled = true
		}
		out[i] = &c
	}
	return out
}
