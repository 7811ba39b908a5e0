package runner

import "github.com/abdul-hamid-achik/hitbench/packages/suite"

// State tracks the current suite and test of a traversal.
//
// When CurrentSuite is non-nil it is enabled and CurrentTest is non-nil.
// Once the suites are exhausted the state is terminal and stays terminal.
type State struct {
	suites     []*suite.Suite
	suiteIndex int
	testIndex  int
}

// NewState returns a state positioned on the first test of the first runnable suite.
func NewState(suites []*suite.Suite) *State {
	s := &State{
		suites:     suites,
		suiteIndex: -1,
	}
	return s.Next()
}

// CurrentSuite returns the suite being run, or nil when terminal.
func (s *State) CurrentSuite() *suite.Suite {
	if s.suiteIndex < 0 || s.suiteIndex >= len(s.suites) {
		return nil
	}
	return s.suites[s.suiteIndex]
}

// CurrentTest returns the test to run next, or nil when terminal.
func (s *State) CurrentTest() *suite.Test {
	cur := s.CurrentSuite()
	if cur == nil {
		return nil
	}
	return cur.Tests[s.testIndex]
}

// IsFirstTest reports whether the current test is the first of its suite,
// which is when the fixture has to be reloaded.
func (s *State) IsFirstTest() bool {
	return s.testIndex == 0
}

// Done reports whether the traversal is terminal.
func (s *State) Done() bool {
	return s.suiteIndex >= len(s.suites)
}

// SuiteIndex returns the index of the current suite.
func (s *State) SuiteIndex() int { return s.suiteIndex }

// TestIndex returns the index of the current test within its suite.
func (s *State) TestIndex() int { return s.testIndex }

// Next advances to the next test, skipping disabled and empty suites.
func (s *State) Next() *State {
	if s.Done() {
		s.testIndex = 0
		return s
	}

	s.testIndex++
	if cur := s.CurrentSuite(); cur != nil && s.testIndex < len(cur.Tests) {
		return s
	}

	s.testIndex = 0
	for {
		s.suiteIndex++
		if s.suiteIndex >= len(s.suites) {
			s.suiteIndex = len(s.suites)
			return s
		}
		if next := s.suites[s.suiteIndex]; !next.Disabled && len(next.Tests) > 0 {
			return s
		}
	}
}
