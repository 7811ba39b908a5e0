package runner

import (
	"github.com/abdul-hamid-achik/hitbench/packages/fixture"
	"github.com/abdul-hamid-achik/hitbench/packages/page"
	"github.com/abdul-hamid-achik/hitbench/packages/results"
	"github.com/abdul-hamid-achik/hitbench/packages/suite"
)

// Client receives run lifecycle callbacks. Every hook is optional.
//
// When DidRunSuites is nil the runner skips computing statistics and the
// iteration's summary stays undefined.
type Client struct {
	// WillAddFixture is called with a new fixture before it is attached.
	WillAddFixture func(f fixture.Fixture)
	// WillRunTest is called before a test's settle yield.
	WillRunTest func(s *suite.Suite, t *suite.Test)
	// DidRunTest is called once the test's timing has been recorded.
	DidRunTest func(s *suite.Suite, t *suite.Test, timing *results.Timing)
	// DidRunSuites receives the finalized summary of one iteration.
	DidRunSuites func(summary *results.Summary)
	// WillStartFirstIteration is called before a multi-iteration run.
	WillStartFirstIteration func(iterations int)
	// DidFinishLastIteration is called after the last iteration.
	DidFinishLastIteration func()
	// DidRecordActions receives batch logs. t is nil for a suite's prepare log.
	DidRecordActions func(s *suite.Suite, t *suite.Test, actions []page.Action)
}

func (c *Client) willAddFixture(f fixture.Fixture) {
	if c != nil && c.WillAddFixture != nil {
		c.WillAddFixture(f)
	}
}

func (c *Client) willRunTest(s *suite.Suite, t *suite.Test) {
	if c != nil && c.WillRunTest != nil {
		c.WillRunTest(s, t)
	}
}

func (c *Client) didRunTest(s *suite.Suite, t *suite.Test, timing *results.Timing) {
	if c != nil && c.DidRunTest != nil {
		c.DidRunTest(s, t, timing)
	}
}

func (c *Client) wantsSummary() bool {
	return c != nil && c.DidRunSuites != nil
}

func (c *Client) willStartFirstIteration(n int) {
	if c != nil && c.WillStartFirstIteration != nil {
		c.WillStartFirstIteration(n)
	}
}

func (c *Client) didFinishLastIteration() {
	if c != nil && c.DidFinishLastIteration != nil {
		c.DidFinishLastIteration()
	}
}

func (c *Client) didRecordActions(s *suite.Suite, t *suite.Test, actions []page.Action) {
	if c != nil && c.DidRecordActions != nil {
		c.DidRecordActions(s, t, actions)
	}
}

// Merge combines clients so every non-nil hook of each is called in order.
func Merge(clients ...*Client) *Client {
	var cs []*Client
	for _, c := range clients {
		if c != nil {
			cs = append(cs, c)
		}
	}
	if len(cs) == 1 {
		return cs[0]
	}

	m := &Client{}
	for _, c := range cs {
		c := c
		if c.WillAddFixture != nil {
			prev := m.WillAddFixture
			m.WillAddFixture = func(f fixture.Fixture) {
				if prev != nil {
					prev(f)
				}
				c.WillAddFixture(f)
			}
		}
		if c.WillRunTest != nil {
			prev := m.WillRunTest
			m.WillRunTest = func(s *suite.Suite, t *suite.Test) {
				if prev != nil {
					prev(s, t)
				}
				c.WillRunTest(s, t)
			}
		}
		if c.DidRunTest != nil {
			prev := m.DidRunTest
			m.DidRunTest = func(s *suite.Suite, t *suite.Test, timing *results.Timing) {
				if prev != nil {
					prev(s, t, timing)
				}
				c.DidRunTest(s, t, timing)
			}
		}
		if c.DidRunSuites != nil {
			prev := m.DidRunSuites
			m.DidRunSuites = func(summary *results.Summary) {
				if prev != nil {
					prev(summary)
				}
				c.DidRunSuites(summary)
			}
		}
		if c.WillStartFirstIteration != nil {
			prev := m.WillStartFirstIteration
			m.WillStartFirstIteration = func(n int) {
				if prev != nil {
					prev(n)
				}
				c.WillStartFirstIteration(n)
			}
		}
		if c.DidFinishLastIteration != nil {
			prev := m.DidFinishLastIteration
			m.DidFinishLastIteration = func() {
				if prev != nil {
					prev()
				}
				c.DidFinishLastIteration()
			}
		}
		if c.DidRecordActions != nil {
			prev := m.DidRecordActions
			m.DidRecordActions = func(s *suite.Suite, t *suite.Test, actions []page.Action) {
				if prev != nil {
					prev(s, t, actions)
				}
				c.DidRecordActions(s, t, actions)
			}
		}
	}
	return m
}
