// Package memdom is an in-memory fixture host.
//
// Fixtures are small element trees described in YAML. Elements can be queried
// with simple selectors, react to clicks and key presses through declarative
// handlers, and can be scheduled to appear after a delay. It lets suites run
// without a browser and gives tests a deterministic host.
package memdom

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/fixture"
)

const (
	// DefaultWidth and DefaultHeight size every attached fixture.
	DefaultWidth  = 800
	DefaultHeight = 600

	// RowHeight is the layout height of a single element.
	RowHeight = 20
)

// ErrNotFound is returned when a fixture resource cannot be resolved.
var ErrNotFound = errors.New("fixture resource not found")

// Host keeps the attached fixture and the documents it can load.
type Host struct {
	mu      sync.Mutex
	docs    map[string]*Document
	dir     string
	current *Fixture
	marks   []string
}

var (
	_ fixture.Host   = (*Host)(nil)
	_ fixture.Marker = (*Host)(nil)
)

// HostOption configures the host
type HostOption func(*Host)

// WithDocument registers doc under url.
func WithDocument(url string, doc *Document) HostOption {
	return func(h *Host) {
		h.docs[url] = doc
	}
}

// WithDir resolves unregistered urls as YAML files relative to dir.
func WithDir(dir string) HostOption {
	return func(h *Host) {
		h.dir = dir
	}
}

// NewHost creates a new in-memory host
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		docs: make(map[string]*Document),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewFixture creates a detached fixture sized DefaultWidth x DefaultHeight.
func (h *Host) NewFixture() fixture.Fixture {
	return h.newFixture()
}

func (h *Host) newFixture() *Fixture {
	f := &Fixture{
		host:   h,
		Width:  DefaultWidth,
		Height: DefaultHeight,
	}
	f.body = &Element{owner: f, tag: "body"}
	return f
}

// Attach makes f the current fixture.
func (h *Host) Attach(f fixture.Fixture) {
	mf, ok := f.(*Fixture)
	if !ok {
		return
	}
	h.mu.Lock()
	h.current = mf
	h.mu.Unlock()
}

// Open creates and attaches a fixture in one call.
func (h *Host) Open() *Fixture {
	f := h.newFixture()
	h.Attach(f)
	return f
}

// Detach removes f and cancels its pending insertions.
func (h *Host) Detach(f fixture.Fixture) {
	mf, ok := f.(*Fixture)
	if !ok {
		return
	}
	mf.stop()

	h.mu.Lock()
	if h.current == mf {
		h.current = nil
	}
	h.mu.Unlock()
}

// Current returns the attached fixture, or nil.
func (h *Host) Current() *Fixture {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Mark records a named timeline mark.
func (h *Host) Mark(name string) {
	h.mu.Lock()
	h.marks = append(h.marks, name)
	h.mu.Unlock()
}

// Marks returns the recorded marks in order.
func (h *Host) Marks() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.marks))
	copy(out, h.marks)
	return out
}

func (h *Host) resolve(url string) (*Document, error) {
	h.mu.Lock()
	doc, ok := h.docs[url]
	dir := h.dir
	h.mu.Unlock()
	if ok {
		return doc, nil
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return LoadDocument(filepath.Join(dir, filepath.FromSlash(url)))
}

// EventRecord is one entry of a fixture's event log.
type EventRecord struct {
	Type   string
	Target string
}

// Fixture is a loaded memdom document. It implements fixture.Fixture.
type Fixture struct {
	host   *Host
	Width  int
	Height int

	mu         sync.Mutex
	url        string
	body       *Element
	focused    *Element
	events     []EventRecord
	timers     []*time.Timer
	lastHeight float64
	stopped    bool
}

var _ fixture.Fixture = (*Fixture)(nil)

// Load builds the document at url. Nodes with appearAfter are inserted later.
func (f *Fixture) Load(ctx context.Context, url string) error {
	doc, err := f.host.resolve(url)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
	for _, n := range doc.Body {
		f.mount(n, f.body)
	}
	return nil
}

// URL returns the loaded resource.
func (f *Fixture) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (f *Fixture) mount(n *Node, parent *Element) {
	if n == nil {
		return
	}
	el := f.build(n, "")
	delay := n.appearDelay()
	if delay <= 0 {
		parent.appendChild(el)
		return
	}
	if f.stopped {
		return
	}
	t := time.AfterFunc(delay, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.stopped {
			parent.appendChild(el)
		}
	})
	f.timers = append(f.timers, t)
}

// build instantiates n and its children; ${value} in text is replaced with value.
func (f *Fixture) build(n *Node, value string) *Element {
	el := &Element{
		owner:    f,
		tag:      n.Tag,
		id:       n.ID,
		classes:  n.classes(),
		text:     strings.ReplaceAll(n.Text, "${value}", value),
		value:    n.Value,
		onClick:  n.OnClick,
		onEnter:  n.OnEnter,
		onChange: n.OnChange,
	}
	for _, c := range n.Children {
		if c != nil {
			el.appendChild(f.build(c, value))
		}
	}
	return el
}

func (f *Fixture) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	for _, t := range f.timers {
		t.Stop()
	}
	f.timers = nil
}

func (f *Fixture) record(typ string, target *Element) {
	f.events = append(f.events, EventRecord{Type: typ, Target: target.describe()})
}

func (f *Fixture) runHandler(current, origin *Element, h *Handler) {
	if h == nil {
		return
	}
	if h.Append != nil {
		dests := []*Element{current}
		if h.To != "" && h.To != "self" {
			dests = f.queryAll(h.To)
		}
		for _, d := range dests {
			d.appendChild(f.build(h.Append, origin.value))
		}
	}
	if h.ToggleClass != "" {
		current.toggleClass(h.ToggleClass)
	}
	switch h.Remove {
	case "":
	case "self":
		current.detach()
	default:
		for _, el := range f.queryAll(h.Remove) {
			el.detach()
		}
	}
	if h.ClearValue {
		origin.value = ""
	}
}

func (f *Fixture) queryAll(selector string) []*Element {
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil
	}
	var out []*Element
	f.body.walk(func(e *Element) bool {
		if sel.Matches(e) {
			out = append(out, e)
		}
		return true
	})
	return out
}

// QuerySelector returns the first match of selector, or nil.
func (f *Fixture) QuerySelector(selector string) fixture.Element {
	if el := f.Find(selector); el != nil {
		return el
	}
	return nil
}

// Find is QuerySelector returning the concrete element.
func (f *Fixture) Find(selector string) *Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	if matches := f.queryAll(selector); len(matches) > 0 {
		return matches[0]
	}
	return nil
}

// QuerySelectorAll returns every match of selector in document order.
func (f *Fixture) QuerySelectorAll(selector string) []fixture.Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	matches := f.queryAll(selector)
	out := make([]fixture.Element, len(matches))
	for i, m := range matches {
		out[i] = m
	}
	return out
}

// GetElementByID returns the element with id, or nil.
func (f *Fixture) GetElementByID(id string) fixture.Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *Element
	f.body.walk(func(e *Element) bool {
		if e.id == id {
			found = e
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return found
}

// Count returns the number of elements matching selector.
func (f *Fixture) Count(selector string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queryAll(selector))
}

// LayoutHeight lays out the document and returns the body height.
func (f *Fixture) LayoutHeight() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := 0
	f.body.walk(func(*Element) bool {
		rows++
		return true
	})
	f.lastHeight = float64(rows * RowHeight)
	return f.lastHeight
}

// LastHeight returns the value computed by the most recent LayoutHeight.
func (f *Fixture) LastHeight() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastHeight
}

// Focused returns the focused element, or nil.
func (f *Fixture) Focused() *Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused
}

// Events returns a copy of the event log.
func (f *Fixture) Events() []EventRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]EventRecord, len(f.events))
	copy(out, f.events)
	return out
}
