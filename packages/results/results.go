// Package results accumulates per-test timings and computes run scores.
//
// Suite totals are summed in ascending order, averaged, and combined into a
// geometric mean. The score is ScoreNumerator / geomean / CorrectionFactor.
package results

import (
	"math"
	"sort"
)

const (
	// ScoreNumerator converts a geomean duration in milliseconds to runs per minute.
	ScoreNumerator = 60 * 1000
	// CorrectionFactor scales scores into roughly 0 to 140 for typical runs.
	CorrectionFactor = 3
)

// Timing is the measurement of one test execution.
type Timing struct {
	Test    string
	SyncMs  float64
	AsyncMs float64
	TotalMs float64
}

// SuiteResult holds the timings of every test a suite ran.
type SuiteResult struct {
	Suite   string
	Tests   map[string]*Timing
	Order   []string // test names in execution order
	TotalMs float64
}

// Summary is the result of one traversal of all suites.
type Summary struct {
	Suites    map[string]*SuiteResult
	Order     []string // suite names in execution order
	TotalMs   float64
	MeanMs    float64
	GeomeanMs float64
	Score     float64
	Finalized bool
}

// NewSummary returns an empty summary with undefined statistics.
func NewSummary() *Summary {
	return &Summary{
		Suites:    make(map[string]*SuiteResult),
		TotalMs:   math.NaN(),
		MeanMs:    math.NaN(),
		GeomeanMs: math.NaN(),
		Score:     math.NaN(),
	}
}

// SuiteResults returns the suite results in execution order.
func (s *Summary) SuiteResults() []*SuiteResult {
	out := make([]*SuiteResult, 0, len(s.Order))
	for _, name := range s.Order {
		out = append(out, s.Suites[name])
	}
	return out
}

// Timings returns the suite's timings in execution order.
func (r *SuiteResult) Timings() []*Timing {
	out := make([]*Timing, 0, len(r.Order))
	for _, name := range r.Order {
		out = append(out, r.Tests[name])
	}
	return out
}

// Aggregator records timings into a Summary.
type Aggregator struct {
	summary *Summary
}

// NewAggregator creates an aggregator with a fresh summary.
func NewAggregator() *Aggregator {
	return &Aggregator{summary: NewSummary()}
}

// Record stores the timing of test in suite and adds it to the suite total.
func (a *Aggregator) Record(suite, test string, syncMs, asyncMs float64) *Timing {
	sr, ok := a.summary.Suites[suite]
	if !ok {
		sr = &SuiteResult{
			Suite: suite,
			Tests: make(map[string]*Timing),
		}
		a.summary.Suites[suite] = sr
		a.summary.Order = append(a.summary.Order, suite)
	}

	timing := &Timing{
		Test:    test,
		SyncMs:  syncMs,
		AsyncMs: asyncMs,
		TotalMs: syncMs + asyncMs,
	}
	if _, exists := sr.Tests[test]; !exists {
		sr.Order = append(sr.Order, test)
	}
	sr.Tests[test] = timing
	sr.TotalMs += timing.TotalMs
	return timing
}

// Summary returns the summary being built.
func (a *Aggregator) Summary() *Summary {
	return a.summary
}

// Finalize computes the run statistics. Calling it again has no effect.
func (a *Aggregator) Finalize() *Summary {
	s := a.summary
	if s.Finalized {
		return s
	}

	totals := make([]float64, 0, len(s.Suites))
	for _, sr := range s.Suites {
		totals = append(totals, sr.TotalMs)
	}
	s.TotalMs, s.MeanMs, s.GeomeanMs, s.Score = Compute(totals)
	s.Finalized = true
	return s
}

// Compute returns the sum, mean, geometric mean and score of suite totals.
// With no totals the sum is 0 and the rest are NaN.
func Compute(totals []float64) (total, mean, geomean, score float64) {
	if len(totals) == 0 {
		return 0, math.NaN(), math.NaN(), math.NaN()
	}

	values := make([]float64, len(totals))
	copy(values, totals)
	// Ascending order limits loss of significance in the sum.
	sort.Float64s(values)

	logSum := 0.0
	for _, v := range values {
		total += v
		logSum += math.Log(v)
	}

	n := float64(len(values))
	mean = total / n
	geomean = math.Exp(logSum / n)
	score = ScoreNumerator / geomean / CorrectionFactor
	return total, mean, geomean, score
}
