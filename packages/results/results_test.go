package results

import (
	"math"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSummaryIsUndefined(t *testing.T) {
	s := NewSummary()
	assert.True(t, math.IsNaN(s.TotalMs))
	assert.True(t, math.IsNaN(s.MeanMs))
	assert.True(t, math.IsNaN(s.GeomeanMs))
	assert.True(t, math.IsNaN(s.Score))
	assert.False(t, s.Finalized)
	assert.Empty(t, s.SuiteResults())
}

func TestAggregatorRecord(t *testing.T) {
	a := NewAggregator()
	a.Record("Todo", "Add", 10, 5)
	a.Record("Todo", "Complete", 3, 2)
	a.Record("Other", "Run", 1, 1)

	s := a.Summary()
	require.Len(t, s.Suites, 2)
	assert.Equal(t, []string{"Todo", "Other"}, s.Order)

	todo := s.Suites["Todo"]
	assert.Equal(t, 20.0, todo.TotalMs)
	assert.Equal(t, []string{"Add", "Complete"}, todo.Order)
	assert.Equal(t, &Timing{Test: "Add", SyncMs: 10, AsyncMs: 5, TotalMs: 15}, todo.Tests["Add"])
	assert.Len(t, todo.Timings(), 2)
}

func TestFinalizeSingleSuite(t *testing.T) {
	a := NewAggregator()
	a.Record("Suite", "Test", 10, 5)

	s := a.Finalize()
	assert.True(t, s.Finalized)
	assert.Equal(t, 15.0, s.Suites["Suite"].TotalMs)
	assert.InDelta(t, 15, s.TotalMs, 1e-9)
	assert.InDelta(t, 15, s.MeanMs, 1e-9)
	assert.InDelta(t, 15, s.GeomeanMs, 1e-9)
	assert.InDelta(t, 1333.333, s.Score, 0.001)
}

func TestFinalizeTwoSuites(t *testing.T) {
	a := NewAggregator()
	a.Record("A", "t1", 6, 4)
	a.Record("B", "t1", 30, 10)

	s := a.Finalize()
	assert.InDelta(t, 50, s.TotalMs, 1e-9)
	assert.InDelta(t, 25, s.MeanMs, 1e-9)
	assert.InDelta(t, 20, s.GeomeanMs, 1e-9)
	assert.InDelta(t, 1000, s.Score, 1e-9)
}

func TestFinalizeIsWriteOnce(t *testing.T) {
	a := NewAggregator()
	a.Record("A", "t", 10, 0)
	first := a.Finalize().Score

	a.Record("B", "t", 1000, 0)
	assert.Equal(t, first, a.Finalize().Score)
}

func TestComputeNoSuites(t *testing.T) {
	total, mean, geomean, score := Compute(nil)
	assert.Equal(t, 0.0, total)
	assert.True(t, math.IsNaN(mean))
	assert.True(t, math.IsNaN(geomean))
	assert.True(t, math.IsNaN(score))

	s := NewAggregator().Finalize()
	assert.True(t, math.IsNaN(s.Score))
}

func TestComputeSumMatchesHighPrecisionReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	totals := make([]float64, 200)
	ref := new(big.Float).SetPrec(256)
	for i := range totals {
		totals[i] = math.Pow(10, rng.Float64()*8-2)
		ref.Add(ref, new(big.Float).SetPrec(256).SetFloat64(totals[i]))
	}
	want, _ := ref.Float64()

	total, _, _, _ := Compute(totals)
	assert.InEpsilon(t, want, total, 1e-12)

	// Order of the input does not matter.
	reversed := make([]float64, len(totals))
	for i, v := range totals {
		reversed[len(totals)-1-i] = v
	}
	total2, _, _, _ := Compute(reversed)
	assert.Equal(t, total, total2)
}

func TestComputeGeomeanIsNthRootOfProduct(t *testing.T) {
	totals := []float64{2, 8, 4}
	_, _, geomean, score := Compute(totals)
	assert.InDelta(t, math.Cbrt(64), geomean, 1e-9)
	assert.InDelta(t, 60000/geomean/3, score, 1e-9)
}

func TestBootstrapCI(t *testing.T) {
	ci := BootstrapCI([]float64{10, 11, 9, 10, 12, 8}, 0.95, 1)
	assert.Equal(t, 10000, ci.NumBootstraps)
	assert.InDelta(t, 10, ci.Mean, 1e-9)
	assert.LessOrEqual(t, ci.Lower, ci.Mean)
	assert.GreaterOrEqual(t, ci.Upper, ci.Mean)

	single := BootstrapCI([]float64{5}, 0.95, 1)
	assert.Equal(t, 5.0, single.Lower)
	assert.Equal(t, 5.0, single.Upper)
	assert.Equal(t, 0, single.NumBootstraps)
}

func TestIterations(t *testing.T) {
	var summaries []*Summary
	for i := 0; i < 10; i++ {
		a := NewAggregator()
		a.Record("A", "fast", 1, 1)
		a.Record("A", "slow", float64(10+i), 0)
		summaries = append(summaries, a.Finalize())
	}
	summaries = append(summaries, NewAggregator().Finalize())

	stats := Iterations(summaries, 7)
	assert.Equal(t, 11, stats.Iterations)
	assert.Len(t, stats.Scores, 10)
	require.Len(t, stats.Tests, 2)

	fast := stats.Tests[0]
	assert.Equal(t, "fast", fast.Test)
	assert.Equal(t, int64(10), fast.Count)
	assert.InDelta(t, 2, fast.P50Ms, 0.01)

	slow := stats.Tests[1]
	assert.InDelta(t, 10, slow.MinMs, 0.05)
	assert.InDelta(t, 19, slow.MaxMs, 0.05)
	assert.True(t, slow.P95Ms >= slow.P50Ms)
	assert.False(t, math.IsNaN(stats.ScoreMean))
}
