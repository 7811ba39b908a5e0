package output

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/hitbench/packages/core/runner"
	"github.com/abdul-hamid-achik/hitbench/packages/results"
)

// JSONOutput represents the complete JSON report. Undefined statistics are null.
type JSONOutput struct {
	RunID      string          `json:"runId"`
	Version    string          `json:"version,omitempty"`
	Time       string          `json:"time"`
	Mode       string          `json:"mode"`
	Iterations int             `json:"iterations"`
	Score      *float64        `json:"score"`
	Suites     []JSONSuiteMean `json:"suites"`
	Runs       []JSONSummary   `json:"runs"`
	Stats      *JSONStats      `json:"stats,omitempty"`
}

// JSONSuiteMean is a suite's mean total across iterations
type JSONSuiteMean struct {
	Name   string   `json:"name"`
	MeanMs *float64 `json:"meanMs"`
}

// JSONSummary represents one iteration
type JSONSummary struct {
	TotalMs   *float64    `json:"totalMs"`
	MeanMs    *float64    `json:"meanMs"`
	GeomeanMs *float64    `json:"geomeanMs"`
	Score     *float64    `json:"score"`
	Suites    []JSONSuite `json:"suites"`
}

// JSONSuite represents a suite result
type JSONSuite struct {
	Name    string     `json:"name"`
	TotalMs *float64   `json:"totalMs"`
	Tests   []JSONTest `json:"tests"`
}

// JSONTest represents a single test timing
type JSONTest struct {
	Name    string   `json:"name"`
	SyncMs  *float64 `json:"syncMs"`
	AsyncMs *float64 `json:"asyncMs"`
	TotalMs *float64 `json:"totalMs"`
}

// JSONStats represents the multi-iteration distribution
type JSONStats struct {
	ScoreMean *float64        `json:"scoreMean"`
	ScoreLow  *float64        `json:"scoreLower"`
	ScoreHigh *float64        `json:"scoreUpper"`
	Level     float64         `json:"confidenceLevel"`
	Tests     []JSONTestStats `json:"tests"`
}

// JSONTestStats represents one test's distribution
type JSONTestStats struct {
	Suite string   `json:"suite"`
	Test  string   `json:"test"`
	P50Ms *float64 `json:"p50Ms"`
	P95Ms *float64 `json:"p95Ms"`
	MaxMs *float64 `json:"maxMs"`
}

// number returns nil for NaN and infinities, which JSON cannot encode.
func number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// JSONFormatter collects iteration summaries and writes them as one report
type JSONFormatter struct {
	writer    io.Writer
	runID     string
	version   string
	mode      string
	seed      int64
	summaries []*results.Summary
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		runID:  uuid.NewString(),
		mode:   "live",
		seed:   1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func JSONWithRunID(id string) JSONOption {
	return func(f *JSONFormatter) {
		f.runID = id
	}
}

func JSONWithVersion(v string) JSONOption {
	return func(f *JSONFormatter) {
		f.version = v
	}
}

func JSONWithMode(mode string) JSONOption {
	return func(f *JSONFormatter) {
		f.mode = mode
	}
}

// JSONWithSeed sets the bootstrap seed used for the score interval.
func JSONWithSeed(seed int64) JSONOption {
	return func(f *JSONFormatter) {
		f.seed = seed
	}
}

// RunID returns the identifier written to the report.
func (f *JSONFormatter) RunID() string {
	return f.runID
}

// Client returns hooks that collect every finalized summary.
func (f *JSONFormatter) Client() *runner.Client {
	return &runner.Client{
		DidRunSuites: f.Add,
	}
}

// Add appends the summary of one iteration.
func (f *JSONFormatter) Add(summary *results.Summary) {
	f.summaries = append(f.summaries, summary)
}

// Build assembles the report from the collected summaries.
func (f *JSONFormatter) Build() *JSONOutput {
	out := &JSONOutput{
		RunID:      f.runID,
		Version:    f.version,
		Time:       time.Now().Format(time.RFC3339),
		Mode:       f.mode,
		Iterations: len(f.summaries),
		Suites:     make([]JSONSuiteMean, 0),
		Runs:       make([]JSONSummary, 0, len(f.summaries)),
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	var order []string
	var scores []float64

	for _, s := range f.summaries {
		run := JSONSummary{
			TotalMs:   number(s.TotalMs),
			MeanMs:    number(s.MeanMs),
			GeomeanMs: number(s.GeomeanMs),
			Score:     number(s.Score),
			Suites:    make([]JSONSuite, 0, len(s.Order)),
		}
		if run.Score != nil {
			scores = append(scores, s.Score)
		}
		for _, sr := range s.SuiteResults() {
			js := JSONSuite{
				Name:    sr.Suite,
				TotalMs: number(sr.TotalMs),
				Tests:   make([]JSONTest, 0, len(sr.Order)),
			}
			for _, t := range sr.Timings() {
				js.Tests = append(js.Tests, JSONTest{
					Name:    t.Test,
					SyncMs:  number(t.SyncMs),
					AsyncMs: number(t.AsyncMs),
					TotalMs: number(t.TotalMs),
				})
			}
			run.Suites = append(run.Suites, js)

			if _, seen := counts[sr.Suite]; !seen {
				order = append(order, sr.Suite)
			}
			sums[sr.Suite] += sr.TotalMs
			counts[sr.Suite]++
		}
		out.Runs = append(out.Runs, run)
	}

	for _, name := range order {
		out.Suites = append(out.Suites, JSONSuiteMean{
			Name:   name,
			MeanMs: number(sums[name] / float64(counts[name])),
		})
	}

	if len(scores) > 0 {
		var total float64
		for _, s := range scores {
			total += s
		}
		out.Score = number(total / float64(len(scores)))
	}

	if len(f.summaries) > 1 {
		stats := results.Iterations(f.summaries, f.seed)
		js := &JSONStats{
			ScoreMean: number(stats.ScoreMean),
			ScoreLow:  number(stats.ScoreCI.Lower),
			ScoreHigh: number(stats.ScoreCI.Upper),
			Level:     stats.ScoreCI.ConfidenceLevel,
			Tests:     make([]JSONTestStats, 0, len(stats.Tests)),
		}
		for _, ts := range stats.Tests {
			js.Tests = append(js.Tests, JSONTestStats{
				Suite: ts.Suite,
				Test:  ts.Test,
				P50Ms: number(ts.P50Ms),
				P95Ms: number(ts.P95Ms),
				MaxMs: number(ts.MaxMs),
			})
		}
		out.Stats = js
	}

	return out
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush() error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.Build())
}
