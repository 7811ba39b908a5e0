// Package notify posts benchmark run summaries to chat webhooks.
package notify

import (
	"math"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/results"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when a run aborts
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when a run completes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first completed run after one
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name.
func ParseNotifyOn(s string) (NotifyOn, bool) {
	switch n := NotifyOn(s); n {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return n, true
	}
	return "", false
}

// SuiteMean is a suite's mean total across iterations
type SuiteMean struct {
	Name   string  `json:"name"`
	MeanMs float64 `json:"mean_ms"`
}

// RunSummary represents the summary of a benchmark run for notifications.
// Score and GeomeanMs are NaN when no iteration produced them.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	SuiteFile  string        `json:"suite_file"`
	Mode       string        `json:"mode"`
	Iterations int           `json:"iterations"`
	Score      float64       `json:"-"`
	GeomeanMs  float64       `json:"-"`
	Suites     []SuiteMean   `json:"suites,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	IsRecovery bool          `json:"is_recovery,omitempty"`
}

// NewRunSummary averages the finalized iterations of a run. runErr is the
// error that aborted the run, if any.
func NewRunSummary(runID, suiteFile, mode string, summaries []*results.Summary, duration time.Duration, runErr error) *RunSummary {
	s := &RunSummary{
		RunID:      runID,
		SuiteFile:  suiteFile,
		Mode:       mode,
		Iterations: len(summaries),
		Duration:   duration,
	}
	if runErr != nil {
		s.Error = runErr.Error()
	}

	var scores, geomeans []float64
	sums := make(map[string]float64)
	counts := make(map[string]int)
	var order []string
	for _, sum := range summaries {
		if finite(sum.Score) {
			scores = append(scores, sum.Score)
		}
		if finite(sum.GeomeanMs) {
			geomeans = append(geomeans, sum.GeomeanMs)
		}
		for _, sr := range sum.SuiteResults() {
			if _, seen := counts[sr.Suite]; !seen {
				order = append(order, sr.Suite)
			}
			sums[sr.Suite] += sr.TotalMs
			counts[sr.Suite]++
		}
	}
	s.Score = mean(scores)
	s.GeomeanMs = mean(geomeans)
	for _, name := range order {
		s.Suites = append(s.Suites, SuiteMean{Name: name, MeanMs: sums[name] / float64(counts[name])})
	}
	return s
}

// Failed reports whether the run aborted.
func (s *RunSummary) Failed() bool {
	return s.Error != ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a run
	Notify(summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run completed
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Notify sends notifications based on the configured policy
func (m *Manager) Notify(summary *RunSummary) error {
	shouldNotify := false
	currentSuccess := !summary.Failed()

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess

	if !shouldNotify {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Notify(summary); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
