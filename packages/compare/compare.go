// Package compare diffs two JSON benchmark reports.
//
// Reports are read with gjson so that files written by older versions, or
// trimmed by hand, still compare as long as the score and suite means exist.
package compare

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"
)

// DefaultThreshold is the change in percent below which a suite is unchanged.
const DefaultThreshold = 2.0

// ErrThresholdExceeded is returned by Render when a regression exceeds the fail threshold.
var ErrThresholdExceeded = errors.New("regression threshold exceeded")

// Status of a compared entry
type Status string

const (
	Improved  Status = "improved"
	Regressed Status = "regressed"
	Unchanged Status = "unchanged"
	Added     Status = "new"
	Removed   Status = "removed"
)

// Report is the part of a JSON report that is compared
type Report struct {
	Path       string
	RunID      string
	Mode       string
	Iterations int
	Score      float64
	Suites     map[string]float64
	Order      []string
}

// Parse reads a report. A missing score is NaN.
func Parse(path string, data []byte) (*Report, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s: invalid JSON", path)
	}
	doc := gjson.ParseBytes(data)
	if !doc.Get("suites").IsArray() {
		return nil, fmt.Errorf("%s: not a hitbench report (missing suites)", path)
	}

	r := &Report{
		Path:       path,
		RunID:      doc.Get("runId").String(),
		Mode:       doc.Get("mode").String(),
		Iterations: int(doc.Get("iterations").Int()),
		Score:      number(doc.Get("score")),
		Suites:     make(map[string]float64),
	}
	doc.Get("suites").ForEach(func(_, s gjson.Result) bool {
		name := s.Get("name").String()
		if name == "" {
			return true
		}
		if _, dup := r.Suites[name]; !dup {
			r.Order = append(r.Order, name)
		}
		r.Suites[name] = number(s.Get("meanMs"))
		return true
	})
	return r, nil
}

// Load reads and parses the report at path
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

func number(r gjson.Result) float64 {
	if r.Type != gjson.Number {
		return math.NaN()
	}
	return r.Float()
}

// SuiteComparison is one suite present in either report
type SuiteComparison struct {
	Suite  string
	Status Status
	BaseMs float64
	HeadMs float64
	Change float64 // percent, positive is slower
}

// Result holds the comparison of two reports
type Result struct {
	Base        *Report
	Head        *Report
	ScoreChange float64 // percent, positive is faster
	Suites      []SuiteComparison
	Improved    int
	Regressed   int
	Unchanged   int
	Added       int
	Removed     int
	// FailThreshold is the regression percent that fails the comparison; 0 disables it.
	FailThreshold float64
	WorstChange   float64
}

// Option configures Compare
type Option func(*options)

type options struct {
	threshold     float64
	failThreshold float64
}

// WithThreshold sets the noise threshold in percent.
func WithThreshold(pct float64) Option {
	return func(o *options) {
		o.threshold = pct
	}
}

// WithFailThreshold makes Render fail when a suite regresses by more than pct.
func WithFailThreshold(pct float64) Option {
	return func(o *options) {
		o.failThreshold = pct
	}
}

func percent(from, to float64) float64 {
	if from == 0 || math.IsNaN(from) || math.IsNaN(to) {
		return math.NaN()
	}
	return (to - from) / from * 100
}

// Compare compares head against base
func Compare(base, head *Report, opts ...Option) *Result {
	o := options{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result{
		Base:          base,
		Head:          head,
		ScoreChange:   percent(base.Score, head.Score),
		FailThreshold: o.failThreshold,
	}

	names := append([]string{}, base.Order...)
	for _, n := range head.Order {
		if _, ok := base.Suites[n]; !ok {
			names = append(names, n)
		}
	}

	for _, name := range names {
		b, inBase := base.Suites[name]
		h, inHead := head.Suites[name]
		c := SuiteComparison{Suite: name, BaseMs: b, HeadMs: h, Change: math.NaN()}

		switch {
		case inBase && !inHead:
			c.Status = Removed
			res.Removed++
		case !inBase && inHead:
			c.Status = Added
			res.Added++
		default:
			c.Change = percent(b, h)
			switch {
			case math.IsNaN(c.Change) || math.Abs(c.Change) <= o.threshold:
				c.Status = Unchanged
				res.Unchanged++
			case c.Change < 0:
				c.Status = Improved
				res.Improved++
			default:
				c.Status = Regressed
				res.Regressed++
			}
			if !math.IsNaN(c.Change) && c.Change > res.WorstChange {
				res.WorstChange = c.Change
			}
		}
		res.Suites = append(res.Suites, c)
	}
	return res
}

// Passed reports whether no suite regressed beyond the fail threshold
func (r *Result) Passed() bool {
	return r.FailThreshold <= 0 || r.WorstChange <= r.FailThreshold
}

// Sorted returns the suite comparisons ordered by change, worst first.
func (r *Result) Sorted() []SuiteComparison {
	out := append([]SuiteComparison{}, r.Suites...)
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := out[i].Change, out[j].Change
		if math.IsNaN(ci) {
			return false
		}
		if math.IsNaN(cj) {
			return true
		}
		return ci > cj
	})
	return out
}

func formatMs(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2fms", v)
}

func formatPct(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	if v > 0 {
		return fmt.Sprintf("+%.1f%%", v)
	}
	return fmt.Sprintf("%.1f%%", v)
}

// Render prints the comparison. It returns ErrThresholdExceeded when the
// fail threshold is set and exceeded.
func Render(w io.Writer, r *Result) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", bold("Benchmark Comparison"))
	fmt.Fprintf(w, "  %s: %s\n", cyan("Base"), r.Base.Path)
	fmt.Fprintf(w, "  %s: %s\n\n", cyan("Head"), r.Head.Path)

	scoreLine := fmt.Sprintf("  Score: %s → %s", formatScore(r.Base.Score), formatScore(r.Head.Score))
	switch {
	case math.IsNaN(r.ScoreChange):
		fmt.Fprintln(w, scoreLine)
	case r.ScoreChange >= 0:
		fmt.Fprintf(w, "%s %s\n", scoreLine, green(formatPct(r.ScoreChange)))
	default:
		fmt.Fprintf(w, "%s %s\n", scoreLine, red(formatPct(r.ScoreChange)))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n", bold("Suites"))
	for _, c := range r.Sorted() {
		var symbol string
		paint := func(a ...interface{}) string { return fmt.Sprint(a...) }
		switch c.Status {
		case Improved:
			symbol, paint = "↑", green
		case Regressed:
			symbol, paint = "↓", red
		case Added:
			symbol, paint = "+", cyan
		case Removed:
			symbol, paint = "-", yellow
		default:
			symbol = "="
		}

		switch c.Status {
		case Added:
			fmt.Fprintf(w, "  %s %s  (new, %s)\n", paint(symbol), c.Suite, formatMs(c.HeadMs))
		case Removed:
			fmt.Fprintf(w, "  %s %s  (removed)\n", paint(symbol), c.Suite)
		default:
			fmt.Fprintf(w, "  %s %s  %s → %s %s\n", paint(symbol), c.Suite,
				formatMs(c.BaseMs), formatMs(c.HeadMs), paint(formatPct(c.Change)))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Improved: %d  Regressed: %d  Unchanged: %d", r.Improved, r.Regressed, r.Unchanged)
	if r.Added > 0 || r.Removed > 0 {
		fmt.Fprintf(w, "  New: %d  Removed: %d", r.Added, r.Removed)
	}
	fmt.Fprintln(w)

	if r.FailThreshold > 0 {
		if r.Passed() {
			fmt.Fprintf(w, "%s Threshold check passed (max regression: %.1f%%)\n", green("✓"), r.FailThreshold)
		} else {
			fmt.Fprintf(w, "%s Threshold check failed (worst regression %.1f%% exceeds %.1f%%)\n", red("✗"), r.WorstChange, r.FailThreshold)
			return ErrThresholdExceeded
		}
	}
	return nil
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

type jsonSuite struct {
	Suite  string   `json:"suite"`
	Status Status   `json:"status"`
	BaseMs *float64 `json:"baseMs"`
	HeadMs *float64 `json:"headMs"`
	Change *float64 `json:"changePct"`
}

type jsonResult struct {
	Base        string      `json:"base"`
	Head        string      `json:"head"`
	BaseScore   *float64    `json:"baseScore"`
	HeadScore   *float64    `json:"headScore"`
	ScoreChange *float64    `json:"scoreChangePct"`
	Suites      []jsonSuite `json:"suites"`
	Improved    int         `json:"improved"`
	Regressed   int         `json:"regressed"`
	Unchanged   int         `json:"unchanged"`
	Added       int         `json:"new"`
	Removed     int         `json:"removed"`
	Passed      bool        `json:"passed"`
}

func ptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// RenderJSON writes the comparison as JSON, with null for undefined values.
// Like Render it returns ErrThresholdExceeded when the fail threshold is exceeded.
func RenderJSON(w io.Writer, r *Result) error {
	out := jsonResult{
		Base:        r.Base.Path,
		Head:        r.Head.Path,
		BaseScore:   ptr(r.Base.Score),
		HeadScore:   ptr(r.Head.Score),
		ScoreChange: ptr(r.ScoreChange),
		Suites:      make([]jsonSuite, 0, len(r.Suites)),
		Improved:    r.Improved,
		Regressed:   r.Regressed,
		Unchanged:   r.Unchanged,
		Added:       r.Added,
		Removed:     r.Removed,
		Passed:      r.Passed(),
	}
	for _, c := range r.Suites {
		js := jsonSuite{Suite: c.Suite, Status: c.Status, Change: ptr(c.Change)}
		if c.Status != Added {
			js.BaseMs = ptr(c.BaseMs)
		}
		if c.Status != Removed {
			js.HeadMs = ptr(c.HeadMs)
		}
		out.Suites = append(out.Suites, js)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return err
	}
	if !out.Passed {
		return ErrThresholdExceeded
	}
	return nil
}
