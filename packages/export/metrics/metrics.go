// Package metrics exports benchmark timings and scores to monitoring systems.
package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/core/runner"
	"github.com/abdul-hamid-achik/hitbench/packages/results"
	"github.com/abdul-hamid-achik/hitbench/packages/suite"
)

// TestMetrics is one measured test in one iteration
type TestMetrics struct {
	Suite     string    `json:"suite"`
	Test      string    `json:"test"`
	Iteration int       `json:"iteration"`
	SyncMs    float64   `json:"sync_ms"`
	AsyncMs   float64   `json:"async_ms"`
	TotalMs   float64   `json:"total_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// AggregateMetrics represents aggregated metrics across iterations
type AggregateMetrics struct {
	Iterations   int                        `json:"iterations"`
	TestRuns     int64                      `json:"test_runs"`
	Scores       []float64                  `json:"scores"`
	ScoreAvg     float64                    `json:"score_avg"`
	ScoreMin     float64                    `json:"score_min"`
	ScoreMax     float64                    `json:"score_max"`
	GeomeanAvgMs float64                    `json:"geomean_avg_ms"`
	BySuite      map[string]*SuiteAggregate `json:"by_suite"`
	ByTest       map[string]*TestAggregate  `json:"by_test"`
}

// SuiteAggregate represents a suite's totals across iterations
type SuiteAggregate struct {
	Name       string  `json:"name"`
	Runs       int64   `json:"runs"`
	AvgTotalMs float64 `json:"avg_total_ms"`
	MinTotalMs float64 `json:"min_total_ms"`
	MaxTotalMs float64 `json:"max_total_ms"`
}

// TestAggregate represents aggregated metrics for a single test
type TestAggregate struct {
	Suite      string  `json:"suite"`
	Name       string  `json:"name"`
	Runs       int64   `json:"runs"`
	AvgSyncMs  float64 `json:"avg_sync_ms"`
	AvgAsyncMs float64 `json:"avg_async_ms"`
	AvgTotalMs float64 `json:"avg_total_ms"`
	MinTotalMs float64 `json:"min_total_ms"`
	MaxTotalMs float64 `json:"max_total_ms"`
}

// NewAggregateMetrics returns an empty aggregate. Score fields are zero until
// Scores has at least one entry.
func NewAggregateMetrics() *AggregateMetrics {
	return &AggregateMetrics{
		Scores:       make([]float64, 0),
		BySuite:      make(map[string]*SuiteAggregate),
		ByTest:       make(map[string]*TestAggregate),
	}
}

func testKey(suite, test string) string {
	return suite + "/" + test
}

// Exporter is the interface for metrics exporters
type Exporter interface {
	// Export exports metrics to the target destination
	Export(metrics *AggregateMetrics) error

	// ExportSingle exports a single test metric
	ExportSingle(metric *TestMetrics) error

	// Close closes the exporter and flushes any buffered data
	Close() error
}

// Collector collects metrics from benchmark runs
type Collector struct {
	mu        sync.Mutex
	metrics   []*TestMetrics
	aggregate *AggregateMetrics
	exporters []Exporter
	iteration int
	geomeans  []float64
	errors    []error
}

// NewCollector creates a new metrics collector
func NewCollector(exporters ...Exporter) *Collector {
	return &Collector{
		metrics:   make([]*TestMetrics, 0),
		exporters: exporters,
		aggregate: NewAggregateMetrics(),
		iteration: 1,
	}
}

// Client returns runner hooks that feed the collector.
func (c *Collector) Client() *runner.Client {
	return &runner.Client{
		DidRunTest: func(s *suite.Suite, t *suite.Test, timing *results.Timing) {
			c.Record(&TestMetrics{
				Suite:     s.Name,
				Test:      t.Name,
				SyncMs:    timing.SyncMs,
				AsyncMs:   timing.AsyncMs,
				TotalMs:   timing.TotalMs,
				Timestamp: time.Now(),
			})
		},
		DidRunSuites: c.RecordSummary,
	}
}

// Record records a test metric
func (c *Collector) Record(m *TestMetrics) {
	c.mu.Lock()
	if m.Iteration == 0 {
		m.Iteration = c.iteration
	}
	c.metrics = append(c.metrics, m)
	c.updateTest(m)
	exporters := c.exporters
	c.mu.Unlock()

	for _, exp := range exporters {
		if err := exp.ExportSingle(m); err != nil {
			c.mu.Lock()
			c.errors = append(c.errors, err)
			c.mu.Unlock()
		}
	}
}

// RecordSummary adds one finalized iteration.
func (c *Collector) RecordSummary(s *results.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.aggregate.Iterations++
	c.iteration++

	for _, sr := range s.SuiteResults() {
		sa, ok := c.aggregate.BySuite[sr.Suite]
		if !ok {
			sa = &SuiteAggregate{Name: sr.Suite, MinTotalMs: sr.TotalMs, MaxTotalMs: sr.TotalMs}
			c.aggregate.BySuite[sr.Suite] = sa
		}
		sa.Runs++
		sa.AvgTotalMs += (sr.TotalMs - sa.AvgTotalMs) / float64(sa.Runs)
		sa.MinTotalMs = math.Min(sa.MinTotalMs, sr.TotalMs)
		sa.MaxTotalMs = math.Max(sa.MaxTotalMs, sr.TotalMs)
	}

	if isFinite(s.GeomeanMs) {
		c.geomeans = append(c.geomeans, s.GeomeanMs)
		c.aggregate.GeomeanAvgMs = average(c.geomeans)
	}
	if !isFinite(s.Score) {
		return
	}
	c.aggregate.Scores = append(c.aggregate.Scores, s.Score)
	c.aggregate.ScoreAvg = average(c.aggregate.Scores)
	if len(c.aggregate.Scores) == 1 {
		c.aggregate.ScoreMin = s.Score
		c.aggregate.ScoreMax = s.Score
	} else {
		c.aggregate.ScoreMin = math.Min(c.aggregate.ScoreMin, s.Score)
		c.aggregate.ScoreMax = math.Max(c.aggregate.ScoreMax, s.Score)
	}
}

func (c *Collector) updateTest(m *TestMetrics) {
	c.aggregate.TestRuns++

	key := testKey(m.Suite, m.Test)
	ta, ok := c.aggregate.ByTest[key]
	if !ok {
		ta = &TestAggregate{
			Suite:      m.Suite,
			Name:       m.Test,
			MinTotalMs: m.TotalMs,
			MaxTotalMs: m.TotalMs,
		}
		c.aggregate.ByTest[key] = ta
	}

	ta.Runs++
	n := float64(ta.Runs)
	ta.AvgSyncMs += (m.SyncMs - ta.AvgSyncMs) / n
	ta.AvgAsyncMs += (m.AsyncMs - ta.AvgAsyncMs) / n
	ta.AvgTotalMs += (m.TotalMs - ta.AvgTotalMs) / n
	if m.TotalMs < ta.MinTotalMs {
		ta.MinTotalMs = m.TotalMs
	}
	if m.TotalMs > ta.MaxTotalMs {
		ta.MaxTotalMs = m.TotalMs
	}
}

// GetAggregate returns the aggregated metrics
func (c *Collector) GetAggregate() *AggregateMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggregate
}

// Metrics returns the recorded per-test metrics
func (c *Collector) Metrics() []*TestMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*TestMetrics, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// Errors returns the errors exporters reported for single metrics
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}

// Flush exports all aggregated metrics
func (c *Collector) Flush() error {
	aggregate := c.GetAggregate()
	for _, exp := range c.exporters {
		if err := exp.Export(aggregate); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all exporters
func (c *Collector) Close() error {
	for _, exp := range c.exporters {
		if err := exp.Close(); err != nil {
			return err
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
