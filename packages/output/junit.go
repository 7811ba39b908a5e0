package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/core/runner"
	"github.com/abdul-hamid-achik/hitbench/packages/results"
	"github.com/abdul-hamid-achik/hitbench/packages/suite"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a benchmark suite in one iteration
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitProperty carries a named statistic
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitTestCase represents a single test
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitError represents a run error
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a disabled suite
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter formats benchmark timings as JUnit XML
type JUnitFormatter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
	iteration  int
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

// Client returns hooks that collect every finalized summary.
func (f *JUnitFormatter) Client() *runner.Client {
	return &runner.Client{
		DidRunSuites: f.Add,
	}
}

// Add converts one iteration's summary into test suites.
func (f *JUnitFormatter) Add(summary *results.Summary) {
	f.iteration++
	for _, sr := range summary.SuiteResults() {
		ts := JUnitTestSuite{
			Name:      fmt.Sprintf("%s#%d", sr.Suite, f.iteration),
			Tests:     len(sr.Order),
			Time:      sr.TotalMs / 1000,
			TestCases: make([]JUnitTestCase, 0, len(sr.Order)),
			Properties: []JUnitProperty{
				{Name: "totalMs", Value: FormatMs(sr.TotalMs)},
				{Name: "score", Value: FormatScore(summary.Score)},
			},
		}
		for _, t := range sr.Timings() {
			ts.TestCases = append(ts.TestCases, JUnitTestCase{
				Name:      t.Test,
				ClassName: sr.Suite,
				Time:      t.TotalMs / 1000,
			})
		}
		f.testSuites = append(f.testSuites, ts)
	}
}

// Skip records disabled suites as skipped test cases.
func (f *JUnitFormatter) Skip(suites []*suite.Suite) {
	for _, s := range suites {
		if !s.Disabled {
			continue
		}
		ts := JUnitTestSuite{
			Name:    s.Name,
			Tests:   len(s.Tests),
			Skipped: len(s.Tests),
		}
		for _, t := range s.Tests {
			ts.TestCases = append(ts.TestCases, JUnitTestCase{
				Name:      t.Name,
				ClassName: s.Name,
				Skipped:   &JUnitSkipped{Message: "suite disabled"},
			})
		}
		f.testSuites = append(f.testSuites, ts)
	}
}

// FormatError records an aborted run.
func (f *JUnitFormatter) FormatError(err error) {
	f.testSuites = append(f.testSuites, JUnitTestSuite{
		Name:   "hitbench",
		Tests:  1,
		Errors: 1,
		TestCases: []JUnitTestCase{{
			Name:      "run",
			ClassName: "hitbench",
			Error:     &JUnitError{Message: err.Error(), Type: "Error"},
		}},
	})
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitFormatter) Flush() error {
	out := JUnitTestSuites{
		Name:       "hitbench",
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: f.testSuites,
	}
	for _, ts := range f.testSuites {
		out.Tests += ts.Tests
		out.Errors += ts.Errors
		out.Skipped += ts.Skipped
		out.Time += ts.Time
	}

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return err
	}
	_, err := io.WriteString(f.writer, "\n")
	return err
}
