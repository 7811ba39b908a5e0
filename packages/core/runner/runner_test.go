package runner

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/fixture"
	"github.com/abdul-hamid-achik/hitbench/packages/fixture/memdom"
	"github.com/abdul-hamid-achik/hitbench/packages/page"
	"github.com/abdul-hamid-achik/hitbench/packages/results"
	"github.com/abdul-hamid-achik/hitbench/packages/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock only moves when a test body or layout read advances it.
type fakeClock struct {
	now float64
}

func (c *fakeClock) Now() float64 { return c.now }

func (c *fakeClock) advance(ms float64) { c.now += ms }

// fakeHost records fixture lifecycle calls.
type fakeHost struct {
	clock    *fakeClock
	layoutMs map[string]float64
	loadErr  error

	calls    []string
	attached fixture.Fixture
}

func (h *fakeHost) NewFixture() fixture.Fixture {
	h.calls = append(h.calls, "new")
	return &fakeFixture{host: h}
}

func (h *fakeHost) Attach(f fixture.Fixture) {
	h.calls = append(h.calls, "attach")
	h.attached = f
}

func (h *fakeHost) Detach(f fixture.Fixture) {
	h.calls = append(h.calls, "detach")
	if h.attached == f {
		h.attached = nil
	}
}

type fakeFixture struct {
	host *fakeHost
	url  string
}

func (f *fakeFixture) Load(ctx context.Context, url string) error {
	f.url = url
	f.host.calls = append(f.host.calls, "load "+url)
	return f.host.loadErr
}

func (f *fakeFixture) QuerySelector(string) fixture.Element      { return nil }
func (f *fakeFixture) QuerySelectorAll(string) []fixture.Element { return nil }
func (f *fakeFixture) GetElementByID(string) fixture.Element     { return nil }

func (f *fakeFixture) LayoutHeight() float64 {
	if f.host.clock != nil {
		f.host.clock.advance(f.host.layoutMs[f.url])
	}
	return 0
}

// countingFrames counts paints.
type countingFrames struct {
	n int
}

func (c *countingFrames) AfterPaint(ctx context.Context) error {
	c.n++
	return ctx.Err()
}

func costlyTest(clock *fakeClock, name string, syncMs float64) *suite.Test {
	return suite.NewTest(name, func(page.Accessor) error {
		clock.advance(syncMs)
		return nil
	})
}

func collect(t *testing.T, r *Runner) *results.Summary {
	t.Helper()
	summary, err := r.RunAllSteps(context.Background())
	require.NoError(t, err)
	return summary
}

func TestStateSkipsDisabledAndEmptySuites(t *testing.T) {
	noop := suite.NewTest("t", func(page.Accessor) error { return nil })
	suites := []*suite.Suite{
		{Name: "off", Disabled: true, Tests: []*suite.Test{noop}},
		{Name: "a", Tests: []*suite.Test{noop, noop}},
		{Name: "empty"},
		{Name: "b", Tests: []*suite.Test{noop}},
	}

	s := NewState(suites)
	require.Equal(t, "a", s.CurrentSuite().Name)
	assert.True(t, s.IsFirstTest())

	s.Next()
	assert.Equal(t, "a", s.CurrentSuite().Name)
	assert.False(t, s.IsFirstTest())

	s.Next()
	assert.Equal(t, "b", s.CurrentSuite().Name)
	assert.True(t, s.IsFirstTest())

	s.Next()
	assert.True(t, s.Done())
	assert.Nil(t, s.CurrentSuite())
	assert.Nil(t, s.CurrentTest())

	for i := 0; i < 3; i++ {
		s.Next()
	}
	assert.True(t, s.Done())
	assert.Equal(t, len(suites), s.SuiteIndex())
}

func TestStateAllDisabledIsTerminal(t *testing.T) {
	s := NewState([]*suite.Suite{{Name: "x", Disabled: true}})
	assert.True(t, s.Done())

	s = NewState(nil)
	assert.True(t, s.Done())
}

func TestSingleSuiteScore(t *testing.T) {
	clock := &fakeClock{}
	host := &fakeHost{clock: clock, layoutMs: map[string]float64{"resources/a.html": 5}}

	suites := []*suite.Suite{
		{Name: "A", URL: "a.html", Tests: []*suite.Test{costlyTest(clock, "only", 10)}},
	}

	var got *results.Summary
	r := NewRunner(suites, host,
		WithClock(clock),
		WithClient(&Client{DidRunSuites: func(s *results.Summary) { got = s }}),
	)
	summary := collect(t, r)
	require.Same(t, got, summary)

	res := summary.Suites["A"]
	require.NotNil(t, res)
	assert.InDelta(t, 10, res.Tests["only"].SyncMs, 1e-9)
	assert.InDelta(t, 5, res.Tests["only"].AsyncMs, 1e-9)
	assert.InDelta(t, 15, res.TotalMs, 1e-9)
	assert.InDelta(t, 15, summary.TotalMs, 1e-9)
	assert.InDelta(t, 15, summary.MeanMs, 1e-9)
	assert.InDelta(t, 15, summary.GeomeanMs, 1e-9)
	assert.InDelta(t, 1333.333, summary.Score, 1e-3)
}

func TestTwoSuiteGeomean(t *testing.T) {
	clock := &fakeClock{}
	host := &fakeHost{clock: clock, layoutMs: map[string]float64{
		"resources/a.html": 4,
		"resources/b.html": 10,
	}}

	suites := []*suite.Suite{
		{Name: "A", URL: "a.html", Tests: []*suite.Test{costlyTest(clock, "one", 6)}},
		{Name: "B", URL: "b.html", Tests: []*suite.Test{
			costlyTest(clock, "one", 5),
			costlyTest(clock, "two", 15),
		}},
	}

	var got *results.Summary
	r := NewRunner(suites, host,
		WithClock(clock),
		WithClient(&Client{DidRunSuites: func(s *results.Summary) { got = s }}),
	)
	collect(t, r)
	require.NotNil(t, got)

	assert.InDelta(t, 10, got.Suites["A"].TotalMs, 1e-9)
	assert.InDelta(t, 40, got.Suites["B"].TotalMs, 1e-9)
	assert.InDelta(t, 50, got.TotalMs, 1e-9)
	assert.InDelta(t, 25, got.MeanMs, 1e-9)
	assert.InDelta(t, 20, got.GeomeanMs, 1e-9)
	assert.InDelta(t, 1000, got.Score, 1e-9)
	assert.Equal(t, []string{"A", "B"}, got.Order)
}

func TestDisabledSuiteNeverPrepared(t *testing.T) {
	clock := &fakeClock{}
	host := &fakeHost{clock: clock}
	prepared := false

	suites := []*suite.Suite{
		{Name: "on", URL: "on.html", Tests: []*suite.Test{costlyTest(clock, "t", 1)}},
		{
			Name:     "off",
			URL:      "off.html",
			Disabled: true,
			Tests:    []*suite.Test{costlyTest(clock, "t", 1)},
			Prepare: func(context.Context, page.Accessor) error {
				prepared = true
				return nil
			},
		},
	}

	var got *results.Summary
	r := NewRunner(suites, host,
		WithClock(clock),
		WithClient(&Client{DidRunSuites: func(s *results.Summary) { got = s }}),
	)
	collect(t, r)

	assert.False(t, prepared)
	require.NotNil(t, got)
	assert.Contains(t, got.Suites, "on")
	assert.NotContains(t, got.Suites, "off")
	assert.NotContains(t, host.calls, "load resources/off.html")
}

func TestFixtureLifecycle(t *testing.T) {
	clock := &fakeClock{}
	host := &fakeHost{clock: clock}

	suites := []*suite.Suite{
		{Name: "A", URL: "a.html", Tests: []*suite.Test{costlyTest(clock, "1", 1), costlyTest(clock, "2", 1)}},
		{Name: "B", URL: "b.html", Tests: []*suite.Test{costlyTest(clock, "1", 1)}},
	}

	var added []fixture.Fixture
	r := NewRunner(suites, host,
		WithClock(clock),
		WithResourceBase("base/"),
		WithClient(&Client{
			WillAddFixture: func(f fixture.Fixture) {
				assert.NotSame(t, f, host.attached, "notified before attach")
				added = append(added, f)
			},
		}),
	)
	collect(t, r)

	assert.Len(t, added, 2)
	assert.Equal(t, []string{
		"new", "attach", "load base/a.html",
		"detach", "new", "attach", "load base/b.html",
		"detach",
	}, host.calls)
	assert.Nil(t, host.attached)
}

func TestSummaryUndefinedWithoutDidRunSuites(t *testing.T) {
	clock := &fakeClock{}
	host := &fakeHost{clock: clock}
	suites := []*suite.Suite{
		{Name: "A", URL: "a.html", Tests: []*suite.Test{costlyTest(clock, "t", 3)}},
	}

	summary := collect(t, NewRunner(suites, host, WithClock(clock)))
	assert.False(t, summary.Finalized)
	assert.True(t, math.IsNaN(summary.Score))
	assert.True(t, math.IsNaN(summary.TotalMs))
	assert.Nil(t, host.attached, "fixture is torn down either way")
}

func TestNoEnabledSuites(t *testing.T) {
	host := &fakeHost{}
	var got *results.Summary
	r := NewRunner([]*suite.Suite{{Name: "x", Disabled: true}}, host,
		WithClient(&Client{DidRunSuites: func(s *results.Summary) { got = s }}),
	)
	collect(t, r)

	require.NotNil(t, got)
	assert.Equal(t, 0.0, got.TotalMs)
	assert.True(t, math.IsNaN(got.MeanMs))
	assert.True(t, math.IsNaN(got.GeomeanMs))
	assert.True(t, math.IsNaN(got.Score))
	assert.Empty(t, host.calls)
}

func TestHookOrderAndPaints(t *testing.T) {
	clock := &fakeClock{}
	host := &fakeHost{clock: clock}
	frames := &countingFrames{}

	suites := []*suite.Suite{
		{Name: "A", URL: "a.html", Tests: []*suite.Test{costlyTest(clock, "1", 1), costlyTest(clock, "2", 1)}},
	}

	var events []string
	r := NewRunner(suites, host,
		WithClock(clock),
		WithFrameSync(frames),
		WithClient(&Client{
			WillRunTest: func(s *suite.Suite, tt *suite.Test) {
				events = append(events, "will "+tt.Name)
			},
			DidRunTest: func(s *suite.Suite, tt *suite.Test, timing *results.Timing) {
				events = append(events, "did "+tt.Name)
				assert.Equal(t, tt.Name, timing.Test)
			},
			DidRunSuites: func(*results.Summary) {
				events = append(events, "suites")
			},
		}),
	)
	collect(t, r)

	assert.Equal(t, []string{"will 1", "did 1", "will 2", "did 2", "suites"}, events)
	assert.Equal(t, 2, frames.n, "one paint wait per test")
}

func TestStepReturnsNilAfterTerminal(t *testing.T) {
	clock := &fakeClock{}
	host := &fakeHost{clock: clock}
	suites := []*suite.Suite{
		{Name: "A", URL: "a.html", Tests: []*suite.Test{costlyTest(clock, "t", 1)}},
	}
	r := NewRunner(suites, host, WithClock(clock))

	state, err := r.Step(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.Done())

	state, err = r.Step(context.Background(), state)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestMultipleIterations(t *testing.T) {
	clock := &fakeClock{}
	host := &fakeHost{clock: clock}
	suites := []*suite.Suite{
		{Name: "A", URL: "a.html", Tests: []*suite.Test{costlyTest(clock, "t", 2)}},
	}

	var started, finished, finalized int
	r := NewRunner(suites, host,
		WithClock(clock),
		WithClient(&Client{
			WillStartFirstIteration: func(n int) { started = n },
			DidFinishLastIteration:  func() { finished++ },
			DidRunSuites:            func(*results.Summary) { finalized++ },
		}),
	)

	summaries, err := r.RunMultipleIterations(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, summaries, 3)
	assert.Equal(t, 3, started)
	assert.Equal(t, 1, finished)
	assert.Equal(t, 3, finalized)
	for _, s := range summaries {
		assert.InDelta(t, 2, s.TotalMs, 1e-9)
	}
	assert.NotSame(t, summaries[0], summaries[1])
}

func TestTestErrorAbortsRun(t *testing.T) {
	clock := &fakeClock{}
	host := &fakeHost{clock: clock}
	boom := errors.New("boom")
	ran := false

	suites := []*suite.Suite{
		{Name: "A", URL: "a.html", Tests: []*suite.Test{
			suite.NewTest("fails", func(page.Accessor) error { return boom }),
			suite.NewTest("after", func(page.Accessor) error {
				ran = true
				return nil
			}),
		}},
	}

	_, err := NewRunner(suites, host, WithClock(clock)).RunAllSteps(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"fails"`)
	assert.False(t, ran)
}

func TestLoadAndPrepareErrorsAbortRun(t *testing.T) {
	clock := &fakeClock{}
	loadErr := errors.New("no such resource")
	host := &fakeHost{clock: clock, loadErr: loadErr}
	suites := []*suite.Suite{
		{Name: "A", URL: "a.html", Tests: []*suite.Test{costlyTest(clock, "t", 1)}},
	}

	_, err := NewRunner(suites, host, WithClock(clock)).RunAllSteps(context.Background())
	assert.ErrorIs(t, err, loadErr)

	prepErr := errors.New("prepare failed")
	host = &fakeHost{clock: clock}
	suites[0].Prepare = func(context.Context, page.Accessor) error { return prepErr }
	_, err = NewRunner(suites, host, WithClock(clock)).RunAllSteps(context.Background())
	assert.ErrorIs(t, err, prepErr)
}

func TestCancelledContext(t *testing.T) {
	clock := &fakeClock{}
	host := &fakeHost{clock: clock}
	suites := []*suite.Suite{
		{Name: "A", URL: "a.html", Tests: []*suite.Test{costlyTest(clock, "t", 1)}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(suites, host, WithClock(clock)).RunAllSteps(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchModeDeliversActions(t *testing.T) {
	host := &fakeHost{}
	suites := []*suite.Suite{
		{
			Name: "A",
			URL:  "a.html",
			Prepare: func(ctx context.Context, p page.Accessor) error {
				_, err := p.WaitForElement(ctx, "#app")
				return err
			},
			Tests: []*suite.Test{
				suite.NewTest("add", func(p page.Accessor) error {
					p.GetElementByID("input").Type("x")
					return nil
				}),
				suite.NewTest("clear", func(p page.Accessor) error {
					p.QuerySelector("#clear").Click()
					return nil
				}),
			},
		},
	}

	type delivery struct {
		test    string
		actions []page.Action
	}
	var got []delivery
	r := NewRunner(suites, host,
		WithMode(page.Batch),
		WithClient(&Client{
			DidRecordActions: func(s *suite.Suite, tt *suite.Test, actions []page.Action) {
				name := "<prepare>"
				if tt != nil {
					name = tt.Name
				}
				got = append(got, delivery{test: name, actions: actions})
			},
		}),
	)
	assert.Equal(t, page.Batch, r.Mode())
	collect(t, r)

	require.Len(t, got, 3)
	assert.Equal(t, "<prepare>", got[0].test)
	assert.Equal(t, []page.Action{{Name: page.ActionWaitForElement, Key: 0, Selector: "#app"}}, got[0].actions)

	assert.Equal(t, "add", got[1].test)
	assert.Equal(t, []page.Action{
		{Name: page.ActionGetElementByID, Key: 1, ID: "input"},
		{Name: page.ActionType, Key: 1, Text: "x"},
	}, got[1].actions)

	assert.Equal(t, "clear", got[2].test)
	assert.Equal(t, 2, got[2].actions[0].Key, "keys continue across recorders")
}

func TestMemdomSuiteWaitsForLateElement(t *testing.T) {
	doc, err := memdom.ParseDocument([]byte(`
body:
  - tag: ul
    id: list
  - tag: button
    id: add
    appearAfter: 120ms
    onClick: { append: { tag: li }, to: "#list" }
`))
	require.NoError(t, err)

	host := memdom.NewHost(memdom.WithDocument("resources/late.yaml", doc))
	frames := &countingFrames{}

	var waitedAt time.Duration
	start := time.Now()
	suites := []*suite.Suite{
		{
			Name: "Late",
			URL:  "late.yaml",
			Prepare: func(ctx context.Context, p page.Accessor) error {
				_, err := p.WaitForElement(ctx, "#add")
				waitedAt = time.Since(start)
				return err
			},
			Tests: []*suite.Test{
				suite.NewTest("click", func(p page.Accessor) error {
					p.GetElementByID("add").Click()
					return nil
				}),
			},
		},
	}

	var marks []string
	var height float64
	r := NewRunner(suites, host,
		WithFrameSync(frames),
		WithClient(&Client{
			WillAddFixture: func(f fixture.Fixture) {
				assert.Nil(t, host.Current())
			},
			DidRunTest: func(s *suite.Suite, tt *suite.Test, timing *results.Timing) {
				height = host.Current().LastHeight()
				marks = host.Marks()
				assert.GreaterOrEqual(t, timing.SyncMs, 0.0)
				assert.GreaterOrEqual(t, timing.AsyncMs, 0.0)
			},
		}),
	)
	collect(t, r)

	assert.GreaterOrEqual(t, waitedAt, 100*time.Millisecond)
	assert.Equal(t, 2, frames.n, "one paint after detection and one after the test")
	assert.Equal(t, float64(3*memdom.RowHeight), height, "ul, li and button laid out")
	assert.Equal(t, []string{"Late.click-start", "Late.click-sync-end", "Late.click-async-end"}, marks)
	assert.Nil(t, host.Current())
}

func TestMergeClients(t *testing.T) {
	var calls []string
	a := &Client{DidFinishLastIteration: func() { calls = append(calls, "a") }}
	b := &Client{
		DidFinishLastIteration: func() { calls = append(calls, "b") },
		WillStartFirstIteration: func(n int) {
			calls = append(calls, "start")
		},
	}

	m := Merge(a, nil, b)
	m.willStartFirstIteration(2)
	m.didFinishLastIteration()
	assert.Equal(t, []string{"start", "a", "b"}, calls)

	assert.Same(t, a, Merge(nil, a))
	var none *Client
	none.didFinishLastIteration()
}
