package memdom

import (
	"strings"

	"github.com/abdul-hamid-achik/hitbench/packages/fixture"
)

// Element is a node of a loaded memdom fixture. It implements fixture.Element.
type Element struct {
	owner    *Fixture
	parent   *Element
	children []*Element

	tag     string
	id      string
	classes []string
	text    string
	value   string

	onClick  *Handler
	onEnter  *Handler
	onChange *Handler
}

var _ fixture.Element = (*Element)(nil)

// Tag returns the element tag name.
func (e *Element) Tag() string { return e.tag }

// ID returns the element id.
func (e *Element) ID() string { return e.id }

// Text returns the element text content.
func (e *Element) Text() string {
	e.owner.mu.Lock()
	defer e.owner.mu.Unlock()
	return e.text
}

// Value returns the current form value.
func (e *Element) Value() string {
	e.owner.mu.Lock()
	defer e.owner.mu.Unlock()
	return e.value
}

// HasClass reports whether the element carries class.
func (e *Element) HasClass(class string) bool {
	e.owner.mu.Lock()
	defer e.owner.mu.Unlock()
	return e.hasClass(class)
}

// Click fires a click on the element.
func (e *Element) Click() {
	f := e.owner
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("click", e)
	f.runHandler(e, e, e.onClick)
}

// Focus moves focus to the element.
func (e *Element) Focus() {
	f := e.owner
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record("focus", e)
	f.focused = e
}

// SetValue sets the form value without firing any event.
func (e *Element) SetValue(value string) {
	e.owner.mu.Lock()
	defer e.owner.mu.Unlock()
	e.value = value
}

// Dispatch delivers ev to the element and, when it bubbles, to its ancestors.
func (e *Element) Dispatch(ev fixture.Event) {
	f := e.owner
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record(ev.Type, e)
	for cur := e; cur != nil; cur = cur.parent {
		f.runHandler(cur, e, cur.handlerFor(ev))
		if !ev.Bubbles {
			break
		}
	}
}

func (e *Element) handlerFor(ev fixture.Event) *Handler {
	switch ev.Type {
	case "click":
		return e.onClick
	case "change":
		return e.onChange
	case "keypress", "keydown":
		if ev.Key == "Enter" || ev.KeyCode == 13 {
			return e.onEnter
		}
	}
	return nil
}

func (e *Element) hasClass(class string) bool {
	for _, c := range e.classes {
		if c == class {
			return true
		}
	}
	return false
}

func (e *Element) toggleClass(class string) {
	for i, c := range e.classes {
		if c == class {
			e.classes = append(e.classes[:i], e.classes[i+1:]...)
			return
		}
	}
	e.classes = append(e.classes, class)
}

func (e *Element) appendChild(child *Element) {
	child.parent = e
	e.children = append(e.children, child)
}

func (e *Element) detach() {
	p := e.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == e {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	e.parent = nil
}

// walk visits e's descendants in document order.
func (e *Element) walk(fn func(*Element) bool) bool {
	for _, c := range e.children {
		if !fn(c) || !c.walk(fn) {
			return false
		}
	}
	return true
}

func (e *Element) describe() string {
	var b strings.Builder
	b.WriteString(e.tag)
	if e.id != "" {
		b.WriteString("#" + e.id)
	}
	for _, c := range e.classes {
		b.WriteString("." + c)
	}
	return b.String()
}
