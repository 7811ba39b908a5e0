package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/fixture"
	"github.com/abdul-hamid-achik/hitbench/packages/page"
	"github.com/abdul-hamid-achik/hitbench/packages/results"
	"github.com/abdul-hamid-achik/hitbench/packages/suite"
)

// DefaultResourceBase is prefixed to every suite URL.
const DefaultResourceBase = suite.DefaultResourceBase

// Runner drives suites through a fixture host and records their timings.
type Runner struct {
	suites       []*suite.Suite
	host         fixture.Host
	client       *Client
	mode         page.Mode
	keys         *page.Keys
	clock        fixture.Clock
	frames       fixture.FrameSync
	marker       fixture.Marker
	resourceBase string
	pollInterval time.Duration

	fixture    fixture.Fixture
	aggregator *results.Aggregator
}

// Option configures the runner
type Option func(*Runner)

// WithClient registers lifecycle hooks.
func WithClient(c *Client) Option {
	return func(r *Runner) {
		r.client = c
	}
}

// WithMode selects live or batch accessors for the whole run.
func WithMode(m page.Mode) Option {
	return func(r *Runner) {
		r.mode = m
	}
}

// WithKeys sets the key sequence shared by batch recorders.
func WithKeys(k *page.Keys) Option {
	return func(r *Runner) {
		r.keys = k
	}
}

// WithClock sets the timestamp source.
func WithClock(c fixture.Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithFrameSync sets the paint signal awaited after each test.
func WithFrameSync(fs fixture.FrameSync) Option {
	return func(r *Runner) {
		r.frames = fs
	}
}

// WithMarker records timeline marks around each test.
func WithMarker(m fixture.Marker) Option {
	return func(r *Runner) {
		r.marker = m
	}
}

// WithResourceBase sets the prefix applied to suite URLs.
func WithResourceBase(base string) Option {
	return func(r *Runner) {
		r.resourceBase = base
	}
}

// WithPollInterval sets the WaitForElement poll delay.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.pollInterval = d
	}
}

// NewRunner creates a runner for suites on host.
func NewRunner(suites []*suite.Suite, host fixture.Host, opts ...Option) *Runner {
	r := &Runner{
		suites:       suites,
		host:         host,
		mode:         page.Live,
		clock:        fixture.MonotonicClock(),
		resourceBase: DefaultResourceBase,
		pollInterval: page.PollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.keys == nil {
		r.keys = page.NewKeys()
	}
	if r.marker == nil {
		if m, ok := host.(fixture.Marker); ok {
			r.marker = m
		}
	}
	return r
}

// Mode returns the accessor variant used by the run.
func (r *Runner) Mode() page.Mode {
	return r.mode
}

// Suites returns the suite collection.
func (r *Runner) Suites() []*suite.Suite {
	return r.suites
}

// Step runs one test and returns the state to continue from.
//
// A nil state starts a new iteration. A terminal state finalizes the
// iteration and yields nil.
func (r *Runner) Step(ctx context.Context, state *State) (*State, error) {
	if state == nil {
		state = NewState(r.suites)
		r.aggregator = results.NewAggregator()
	}

	cur := state.CurrentSuite()
	if cur == nil {
		r.finalize()
		return nil, nil
	}

	if state.IsFirstTest() {
		if err := r.prepareSuite(ctx, cur); err != nil {
			return nil, err
		}
	}

	if err := r.runTestAndRecord(ctx, cur, state.CurrentTest()); err != nil {
		return nil, err
	}
	return state.Next(), nil
}

// RunAllSteps runs one full iteration and returns its summary.
func (r *Runner) RunAllSteps(ctx context.Context) (*results.Summary, error) {
	state, err := r.Step(ctx, nil)
	for err == nil && state != nil {
		state, err = r.Step(ctx, state)
	}
	if err != nil {
		return nil, err
	}
	return r.aggregator.Summary(), nil
}

// RunMultipleIterations runs n iterations back to back.
func (r *Runner) RunMultipleIterations(ctx context.Context, n int) ([]*results.Summary, error) {
	if n < 1 {
		n = 1
	}
	r.client.willStartFirstIteration(n)

	summaries := make([]*results.Summary, 0, n)
	for i := 0; i < n; i++ {
		summary, err := r.RunAllSteps(ctx)
		if err != nil {
			return summaries, fmt.Errorf("iteration %d: %w", i+1, err)
		}
		summaries = append(summaries, summary)
	}

	r.client.didFinishLastIteration()
	return summaries, nil
}

func (r *Runner) prepareSuite(ctx context.Context, s *suite.Suite) error {
	r.removeFixture()

	fx := r.host.NewFixture()
	r.client.willAddFixture(fx)
	r.host.Attach(fx)
	r.fixture = fx

	if err := fx.Load(ctx, r.resourceBase+s.URL); err != nil {
		return fmt.Errorf("loading suite %q: %w", s.Name, err)
	}

	accessor := r.newAccessor()
	if s.Prepare != nil {
		if err := s.Prepare(ctx, accessor); err != nil {
			return fmt.Errorf("preparing suite %q: %w", s.Name, err)
		}
	}
	if r.mode == page.Batch {
		r.client.didRecordActions(s, nil, page.Actions(accessor))
	}
	return nil
}

func (r *Runner) newAccessor() page.Accessor {
	return page.New(r.mode, r.fixture, page.Options{
		Keys:         r.keys,
		Frames:       r.frames,
		PollInterval: r.pollInterval,
	})
}

func (r *Runner) runTestAndRecord(ctx context.Context, s *suite.Suite, t *suite.Test) error {
	r.client.willRunTest(s, t)

	if err := fixture.Yield(ctx); err != nil {
		return err
	}

	syncMs, asyncMs, err := r.runTest(ctx, s, t)
	if err != nil {
		return err
	}

	timing := r.aggregator.Record(s.Name, t.Name, syncMs, asyncMs)
	r.client.didRunTest(s, t, timing)
	return nil
}

// runTest measures the synchronous body and the host work it triggered.
func (r *Runner) runTest(ctx context.Context, s *suite.Suite, t *suite.Test) (syncMs, asyncMs float64, err error) {
	prefix := s.Name + "." + t.Name

	r.mark(prefix + "-start")
	t0 := r.clock.Now()
	accessor := r.newAccessor()
	runErr := t.Run(accessor)
	t1 := r.clock.Now()
	r.mark(prefix + "-sync-end")
	if runErr != nil {
		return 0, 0, fmt.Errorf("running test %q of suite %q: %w", t.Name, s.Name, runErr)
	}
	syncMs = t1 - t0

	if r.mode == page.Batch {
		r.client.didRecordActions(s, t, page.Actions(accessor))
	}

	t2 := r.clock.Now()
	if err := fixture.Yield(ctx); err != nil {
		return 0, 0, err
	}
	r.fixture.LayoutHeight()
	t3 := r.clock.Now()
	r.mark(prefix + "-async-end")
	asyncMs = t3 - t2

	if err := fixture.AfterPaint(ctx, r.frames); err != nil {
		return 0, 0, err
	}
	return syncMs, asyncMs, nil
}

func (r *Runner) finalize() {
	r.removeFixture()
	if !r.client.wantsSummary() {
		return
	}
	r.client.DidRunSuites(r.aggregator.Finalize())
}

func (r *Runner) removeFixture() {
	if r.fixture == nil {
		return
	}
	r.host.Detach(r.fixture)
	r.fixture = nil
}

func (r *Runner) mark(name string) {
	if r.marker != nil {
		r.marker.Mark(name)
	}
}
