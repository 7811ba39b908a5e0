package page

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/fixture/memdom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listDoc = `
body:
  - tag: input
    id: entry
    onEnter: { append: { tag: li, class: item, text: "${value}" }, to: "#list" }
  - tag: ul
    id: list
    children:
      - { tag: li, class: item, text: a }
      - { tag: li, class: item, text: b }
  - tag: button
    id: go
`

func newFixture(t *testing.T, doc string) *memdom.Fixture {
	t.Helper()
	d, err := memdom.ParseDocument([]byte(doc))
	require.NoError(t, err)
	h := memdom.NewHost(memdom.WithDocument("doc.yaml", d))
	f := h.Open()
	require.NoError(t, f.Load(context.Background(), "doc.yaml"))
	return f
}

// paintRecorder is a FrameSync that records when each paint happened.
type paintRecorder struct {
	mu     sync.Mutex
	paints []time.Time
}

func (p *paintRecorder) AfterPaint(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paints = append(p.paints, time.Now())
	return ctx.Err()
}

func (p *paintRecorder) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.paints)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("batch")
	require.NoError(t, err)
	assert.Equal(t, Batch, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Live, m)
	assert.Equal(t, "live", m.String())

	_, err = ParseMode("dry")
	assert.Error(t, err)
}

func TestKeysStrictlyIncreasing(t *testing.T) {
	k := NewKeys()
	assert.Equal(t, 0, k.Next())
	assert.Equal(t, 1, k.Next())
	assert.Equal(t, 2, k.Next())
}

func TestLiveLookups(t *testing.T) {
	f := newFixture(t, listDoc)
	p := New(Live, f, Options{})

	assert.NotNil(t, p.QuerySelector("#entry"))
	assert.Nil(t, p.QuerySelector("#missing"))
	assert.Nil(t, p.GetElementByID("missing"))
	assert.Len(t, p.QuerySelectorAll(".item"), 2)
	assert.Empty(t, p.QuerySelectorAll(".nothing"))
	assert.Nil(t, Actions(p))
}

func TestLiveTypeCommitsAndPressesEnter(t *testing.T) {
	f := newFixture(t, listDoc)
	p := New(Live, f, Options{})

	entry := p.GetElementByID("entry")
	require.NotNil(t, entry)
	entry.Type("c")

	assert.Equal(t, 3, f.Count("#list li"))
	events := f.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "change", events[0].Type)
	assert.Equal(t, "keypress", events[1].Type)
}

func TestRecorderLogsCallsInOrder(t *testing.T) {
	keys := NewKeys()
	r := NewRecorder(keys)

	entry := r.GetElementByID("entry")
	entry.Focus()
	entry.Type("hello")
	items := r.QuerySelectorAll(".item")
	require.Len(t, items, 1)
	items[0].Click()
	btn, err := r.WaitForElement(context.Background(), "#go")
	require.NoError(t, err)
	btn.Click()

	assert.Equal(t, []Action{
		{Name: ActionGetElementByID, Key: 0, ID: "entry"},
		{Name: ActionFocus, Key: 0},
		{Name: ActionType, Key: 0, Text: "hello"},
		{Name: ActionQuerySelectorAll, Key: 1, All: true, Selector: ".item"},
		{Name: ActionClick, Key: 1, All: true},
		{Name: ActionWaitForElement, Key: 2, Selector: "#go"},
		{Name: ActionClick, Key: 2},
	}, r.Actions())
}

func TestRecordersShareKeySequence(t *testing.T) {
	keys := NewKeys()
	a := New(Batch, nil, Options{Keys: keys})
	b := New(Batch, nil, Options{Keys: keys})

	a.QuerySelector("x")
	b.QuerySelector("y")
	a.QuerySelector("z")

	assert.Equal(t, 0, Actions(a)[0].Key)
	assert.Equal(t, 1, Actions(b)[0].Key)
	assert.Equal(t, 2, Actions(a)[1].Key)
}

// replay interprets a recorded log against a live accessor.
func replay(t *testing.T, live Accessor, actions []Action) {
	t.Helper()
	handles := make(map[int][]Handle)
	for _, a := range actions {
		switch a.Name {
		case ActionQuerySelector:
			handles[a.Key] = []Handle{live.QuerySelector(a.Selector)}
		case ActionGetElementByID:
			handles[a.Key] = []Handle{live.GetElementByID(a.ID)}
		case ActionQuerySelectorAll:
			handles[a.Key] = live.QuerySelectorAll(a.Selector)
		case ActionWaitForElement:
			h, err := live.WaitForElement(context.Background(), a.Selector)
			require.NoError(t, err)
			handles[a.Key] = []Handle{h}
		case ActionClick, ActionFocus, ActionType:
			hs, ok := handles[a.Key]
			require.True(t, ok, "action references unknown key %d", a.Key)
			for _, h := range hs {
				switch a.Name {
				case ActionClick:
					h.Click()
				case ActionFocus:
					h.Focus()
				case ActionType:
					h.Type(a.Text)
				}
			}
		}
	}
}

func TestReplayMatchesLiveOrder(t *testing.T) {
	script := func(p Accessor) {
		entry := p.GetElementByID("entry")
		entry.Focus()
		entry.Type("c")
		for _, item := range p.QuerySelectorAll("#list .item") {
			item.Click()
		}
		h, _ := p.WaitForElement(context.Background(), "#go")
		h.Click()
	}

	direct := newFixture(t, listDoc)
	script(New(Live, direct, Options{}))

	rec := NewRecorder(NewKeys())
	script(rec)
	actions := rec.Actions()

	// Keys first appear in strictly increasing order.
	seen := make(map[int]bool)
	last := -1
	for _, a := range actions {
		if seen[a.Key] {
			continue
		}
		seen[a.Key] = true
		assert.Greater(t, a.Key, last)
		last = a.Key
	}

	replayed := newFixture(t, listDoc)
	replay(t, New(Live, replayed, Options{}), actions)

	assert.Equal(t, direct.Events(), replayed.Events())
	assert.Equal(t, 3, replayed.Count("#list li"))
}

func TestWaitForElementPresent(t *testing.T) {
	f := newFixture(t, listDoc)
	frames := &paintRecorder{}
	p := New(Live, f, Options{Frames: frames})

	h, err := p.WaitForElement(context.Background(), "#go")
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, 1, frames.count())
}

func TestWaitForElementPollsUntilPresent(t *testing.T) {
	f := newFixture(t, `
body:
  - tag: div
    id: late
    appearAfter: 120ms
`)
	frames := &paintRecorder{}
	p := New(Live, f, Options{Frames: frames})

	start := time.Now()
	h, err := p.WaitForElement(context.Background(), "#late")
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.NotNil(t, h)

	// Polls at 0, 50, 100 miss; the 150ms poll sees it.
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	require.Equal(t, 1, frames.count(), "resolves after exactly one paint following detection")
	assert.True(t, frames.paints[0].After(start.Add(120*time.Millisecond)))
}

func TestWaitForElementCancelled(t *testing.T) {
	f := newFixture(t, listDoc)
	p := New(Live, f, Options{PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	h, err := p.WaitForElement(ctx, "#never")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, h)
}
