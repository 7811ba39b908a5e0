package memdom

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const todoDoc = `
title: todo
body:
  - tag: section
    id: app
    children:
      - tag: input
        id: new-todo
        onEnter:
          append: { tag: li, class: todo, text: "${value}", children: [ { tag: input, class: toggle, onClick: { toggleClass: done } } ] }
          to: "#todo-list"
          clearValue: true
      - tag: ul
        id: todo-list
      - tag: button
        id: clear
        onClick: { remove: "#todo-list li" }
`

func loadTodo(t *testing.T) (*Host, *Fixture) {
	t.Helper()
	doc, err := ParseDocument([]byte(todoDoc))
	require.NoError(t, err)

	h := NewHost(WithDocument("todo.yaml", doc))
	f := h.Open()
	require.NoError(t, f.Load(context.Background(), "todo.yaml"))
	return h, f
}

func TestFixtureQueries(t *testing.T) {
	_, f := loadTodo(t)

	assert.NotNil(t, f.QuerySelector("#new-todo"))
	assert.NotNil(t, f.QuerySelector("section input"))
	assert.Nil(t, f.QuerySelector(".missing"))
	assert.Nil(t, f.GetElementByID("missing"))
	assert.NotNil(t, f.GetElementByID("todo-list"))
	assert.Empty(t, f.QuerySelectorAll("li"))
	assert.Nil(t, f.QuerySelector("#"), "invalid selectors resolve to nothing")
}

func TestFixtureEnterAppendsItem(t *testing.T) {
	_, f := loadTodo(t)

	input := f.QuerySelector("#new-todo")
	require.NotNil(t, input)
	for _, text := range []string{"one", "two"} {
		input.SetValue(text)
		input.Dispatch(fixture.Event{Type: "change"})
		input.Dispatch(fixture.Event{Type: "keypress", Key: "Enter", KeyCode: 13, Bubbles: true})
	}

	items := f.QuerySelectorAll("#todo-list li.todo")
	require.Len(t, items, 2)
	assert.Equal(t, "one", items[0].(*Element).Text())
	assert.Equal(t, "two", items[1].(*Element).Text())
	assert.Equal(t, "", f.Find("#new-todo").Value())

	for _, toggle := range f.QuerySelectorAll(".toggle") {
		toggle.Click()
	}
	assert.Equal(t, 2, f.Count("input.toggle.done"))

	f.QuerySelector("#clear").Click()
	assert.Equal(t, 0, f.Count("li"))
}

func TestFixtureFocusAndEvents(t *testing.T) {
	_, f := loadTodo(t)

	f.QuerySelector("#new-todo").Focus()
	assert.Equal(t, "new-todo", f.Focused().ID())

	events := f.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventRecord{Type: "focus", Target: "input#new-todo"}, events[0])
}

func TestFixtureLayoutHeight(t *testing.T) {
	_, f := loadTodo(t)

	// section, input, ul, button
	assert.Equal(t, float64(4*RowHeight), f.LayoutHeight())
	assert.Equal(t, float64(4*RowHeight), f.LastHeight())
}

func TestFixtureAppearAfter(t *testing.T) {
	doc, err := ParseDocument([]byte(`
body:
  - tag: div
    id: late
    appearAfter: 30ms
`))
	require.NoError(t, err)

	h := NewHost(WithDocument("late.yaml", doc))
	f := h.Open()
	require.NoError(t, f.Load(context.Background(), "late.yaml"))

	assert.Nil(t, f.GetElementByID("late"))
	assert.Eventually(t, func() bool {
		return f.GetElementByID("late") != nil
	}, time.Second, 5*time.Millisecond)
}

func TestDetachCancelsPendingInsertions(t *testing.T) {
	doc, err := ParseDocument([]byte(`
body:
  - tag: div
    id: late
    appearAfter: 20ms
`))
	require.NoError(t, err)

	h := NewHost(WithDocument("late.yaml", doc))
	f := h.Open()
	require.NoError(t, f.Load(context.Background(), "late.yaml"))
	h.Detach(f)

	time.Sleep(50 * time.Millisecond)
	assert.Nil(t, f.GetElementByID("late"))
	assert.Nil(t, h.Current())
}

func TestHostLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "index.yaml"), []byte("body:\n  - tag: p\n    id: hello\n"), 0644))

	h := NewHost(WithDir(dir))
	f := h.Open()
	require.NoError(t, f.Load(context.Background(), "app/index.yaml"))
	assert.NotNil(t, f.GetElementByID("hello"))

	err := h.Open().Load(context.Background(), "nope.yaml")
	assert.Error(t, err)
}

func TestHostLoadUnknownWithoutDir(t *testing.T) {
	h := NewHost()
	err := h.Open().Load(context.Background(), "missing.yaml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseDocumentRejectsBadNodes(t *testing.T) {
	_, err := ParseDocument([]byte("body:\n  - id: x\n"))
	assert.Error(t, err)

	_, err = ParseDocument([]byte("body:\n  - tag: p\n    appearAfter: soon\n"))
	assert.Error(t, err)
}

func TestHostMarks(t *testing.T) {
	h := NewHost()
	h.Mark("a")
	h.Mark("b")
	assert.Equal(t, []string{"a", "b"}, h.Marks())
}

func TestFrameClock(t *testing.T) {
	c := NewFrameClock(1000)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.AfterPaint(context.Background()))
	}
	assert.Equal(t, int64(3), c.Frames())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewFrameClock(1).AfterPaint(ctx))
}
