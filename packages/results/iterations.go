package results

import (
	"math"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// histogram range in microseconds: 1us to 60s, 3 significant digits
const (
	histMin    = 1
	histMax    = 60_000_000
	histDigits = 3
)

// TestStats is the distribution of one test's total time across iterations.
type TestStats struct {
	Suite  string
	Test   string
	Count  int64
	MinMs  float64
	MeanMs float64
	P50Ms  float64
	P95Ms  float64
	MaxMs  float64
}

// IterationStats summarizes a multi-iteration run.
type IterationStats struct {
	Iterations int
	Scores     []float64
	ScoreMean  float64
	ScoreCI    ConfidenceInterval
	Tests      []TestStats
}

type testKey struct {
	suite string
	test  string
}

// Iterations combines finalized summaries of repeated runs. Summaries with an
// undefined score do not contribute a score but still contribute timings.
func Iterations(summaries []*Summary, seed int64) *IterationStats {
	stats := &IterationStats{Iterations: len(summaries)}

	hists := make(map[testKey]*hdrhistogram.Histogram)
	var order []testKey

	for _, s := range summaries {
		if s == nil {
			continue
		}
		if !math.IsNaN(s.Score) && !math.IsInf(s.Score, 0) {
			stats.Scores = append(stats.Scores, s.Score)
		}
		for _, sr := range s.SuiteResults() {
			for _, t := range sr.Timings() {
				k := testKey{suite: sr.Suite, test: t.Test}
				h, ok := hists[k]
				if !ok {
					h = hdrhistogram.New(histMin, histMax, histDigits)
					hists[k] = h
					order = append(order, k)
				}
				_ = h.RecordValue(toMicros(t.TotalMs))
			}
		}
	}

	stats.ScoreMean = mean(stats.Scores)
	stats.ScoreCI = BootstrapCI(stats.Scores, 0.95, seed)

	for _, k := range order {
		h := hists[k]
		stats.Tests = append(stats.Tests, TestStats{
			Suite:  k.suite,
			Test:   k.test,
			Count:  h.TotalCount(),
			MinMs:  fromMicros(h.Min()),
			MeanMs: h.Mean() / 1000,
			P50Ms:  fromMicros(h.ValueAtQuantile(50)),
			P95Ms:  fromMicros(h.ValueAtQuantile(95)),
			MaxMs:  fromMicros(h.Max()),
		})
	}
	return stats
}

func toMicros(ms float64) int64 {
	us := int64(math.Round(ms * 1000))
	if us < histMin {
		us = histMin
	}
	if us > histMax {
		us = histMax
	}
	return us
}

func fromMicros(us int64) float64 {
	return float64(us) / 1000
}
