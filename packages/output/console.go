package output

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/abdul-hamid-achik/hitbench/packages/core/runner"
	"github.com/abdul-hamid-achik/hitbench/packages/page"
	"github.com/abdul-hamid-achik/hitbench/packages/results"
	"github.com/abdul-hamid-achik/hitbench/packages/suite"
)

// FormatMs formats a millisecond value, or "n/a" when undefined.
func FormatMs(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2fms", v)
}

// FormatScore formats a score, or "n/a" when undefined.
func FormatScore(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// Reporter prints run progress and summaries to a terminal.
type Reporter struct {
	writer     io.Writer
	verbose    bool
	noColor    bool
	noProgress bool
	tty        bool
	iteration  int
	iterations int
}

type ReporterOption func(*Reporter)

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.noColor {
		color.NoColor = true
	}
	if f, ok := r.writer.(*os.File); ok {
		r.tty = term.IsTerminal(int(f.Fd()))
	}
	return r
}

func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

func WithVerbose(v bool) ReporterOption {
	return func(r *Reporter) {
		r.verbose = v
	}
}

func WithNoColor(nc bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = nc
	}
}

// WithNoProgress suppresses the per-test lines.
func WithNoProgress(np bool) ReporterOption {
	return func(r *Reporter) {
		r.noProgress = np
	}
}

// Client returns the lifecycle hooks that drive progress output.
func (r *Reporter) Client() *runner.Client {
	c := &runner.Client{
		WillStartFirstIteration: r.willStartFirstIteration,
		DidRunSuites:            r.didRunSuites,
	}
	if !r.noProgress {
		c.WillRunTest = r.willRunTest
		c.DidRunTest = r.didRunTest
	}
	if r.verbose {
		c.DidRecordActions = r.didRecordActions
	}
	return c
}

func (r *Reporter) willStartFirstIteration(n int) {
	r.iterations = n
	r.iteration = 0
}

func (r *Reporter) willRunTest(s *suite.Suite, t *suite.Test) {
	if !r.tty {
		return
	}
	dim := color.New(color.Faint).SprintFunc()
	fmt.Fprintf(r.writer, "\r\033[K  %s", dim(s.Name+" › "+t.Name))
}

func (r *Reporter) didRunTest(s *suite.Suite, t *suite.Test, timing *results.Timing) {
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if r.tty {
		fmt.Fprint(r.writer, "\r\033[K")
	}
	fmt.Fprintf(r.writer, "  %s %s › %s  %s", green("✓"), s.Name, t.Name, cyan(FormatMs(timing.TotalMs)))
	if r.verbose {
		fmt.Fprintf(r.writer, " (sync %s, async %s)", FormatMs(timing.SyncMs), FormatMs(timing.AsyncMs))
	}
	fmt.Fprintln(r.writer)
}

func (r *Reporter) didRunSuites(summary *results.Summary) {
	r.iteration++
	if r.iterations > 1 {
		bold := color.New(color.Bold).SprintFunc()
		fmt.Fprintf(r.writer, "\n%s\n", bold(fmt.Sprintf("Iteration %d/%d", r.iteration, r.iterations)))
	}
	r.FormatSummary(summary)
}

func (r *Reporter) didRecordActions(s *suite.Suite, t *suite.Test, actions []page.Action) {
	dim := color.New(color.Faint).SprintFunc()
	name := s.Name + " › prepare"
	if t != nil {
		name = s.Name + " › " + t.Name
	}
	fmt.Fprintf(r.writer, "    %s\n", dim(fmt.Sprintf("%s: %d recorded actions", name, len(actions))))
	for _, a := range actions {
		fmt.Fprintf(r.writer, "      %s\n", dim(FormatAction(a)))
	}
}

// FormatAction renders an action as "#key name(args)".
func FormatAction(a page.Action) string {
	var args []string
	if a.Selector != "" {
		args = append(args, fmt.Sprintf("%q", a.Selector))
	}
	if a.ID != "" {
		args = append(args, fmt.Sprintf("%q", a.ID))
	}
	if a.Text != "" {
		args = append(args, fmt.Sprintf("%q", a.Text))
	}
	s := fmt.Sprintf("#%d %s(%s)", a.Key, a.Name, strings.Join(args, ", "))
	if a.All {
		s += " [all]"
	}
	return s
}

// FormatSummary prints suite totals and the run statistics.
func (r *Reporter) FormatSummary(summary *results.Summary) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintln(r.writer)
	if len(summary.Order) == 0 {
		fmt.Fprintf(r.writer, "  %s\n", yellow("no suites ran"))
	}

	width := 0
	for _, name := range summary.Order {
		if len(name) > width {
			width = len(name)
		}
	}
	for _, sr := range summary.SuiteResults() {
		fmt.Fprintf(r.writer, "  %-*s  %s\n", width, sr.Suite, cyan(FormatMs(sr.TotalMs)))
		if r.verbose {
			for _, t := range sr.Timings() {
				fmt.Fprintf(r.writer, "    %-*s  %s\n", width, t.Test, FormatMs(t.TotalMs))
			}
		}
	}

	fmt.Fprintln(r.writer)
	fmt.Fprintf(r.writer, "Total:   %s\n", FormatMs(summary.TotalMs))
	fmt.Fprintf(r.writer, "Mean:    %s\n", FormatMs(summary.MeanMs))
	fmt.Fprintf(r.writer, "Geomean: %s\n", FormatMs(summary.GeomeanMs))
	fmt.Fprintf(r.writer, "%s   %s\n", bold("Score:"), green(FormatScore(summary.Score)))
}

// FormatIterations prints the distribution of a multi-iteration run.
func (r *Reporter) FormatIterations(stats *results.IterationStats) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen, color.Bold).SprintFunc()

	fmt.Fprintf(r.writer, "\n%s\n", bold(fmt.Sprintf("%d iterations", stats.Iterations)))
	if len(stats.Scores) > 0 {
		ci := stats.ScoreCI
		fmt.Fprintf(r.writer, "Score: %s  (%.0f%% CI %s..%s)\n",
			green(FormatScore(stats.ScoreMean)), ci.ConfidenceLevel*100,
			FormatScore(ci.Lower), FormatScore(ci.Upper))
	}
	for _, ts := range stats.Tests {
		fmt.Fprintf(r.writer, "  %s › %s  p50 %s  p95 %s  max %s\n",
			ts.Suite, ts.Test, FormatMs(ts.P50Ms), FormatMs(ts.P95Ms), FormatMs(ts.MaxMs))
	}
}

// SuiteList prints the suites of a file and whether they are enabled.
func (r *Reporter) SuiteList(suites []*suite.Suite) {
	dim := color.New(color.Faint).SprintFunc()
	for _, s := range suites {
		mark := color.GreenString("●")
		if s.Disabled {
			mark = dim("○")
		}
		fmt.Fprintf(r.writer, "%s %s %s\n", mark, s.Name, dim(s.URL))
		if r.verbose || !s.Disabled {
			for _, t := range s.Tests {
				fmt.Fprintf(r.writer, "    %s\n", t.Name)
			}
		}
	}
}

func (r *Reporter) Header(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(r.writer, "%s %s\n", bold("hitbench"), version)
}

// Info prints an informational line.
func (r *Reporter) Info(format string, args ...any) {
	fmt.Fprintf(r.writer, format+"\n", args...)
}

func (r *Reporter) Error(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(r.writer, "%s %v\n", red("Error:"), err)
}
