package memdom

import (
	"fmt"
	"strings"
)

// compound is one whitespace-separated part of a selector, e.g. "li.todo#first".
type compound struct {
	tag     string
	id      string
	classes []string
}

// Selector is a parsed descendant selector made of simple compounds.
type Selector struct {
	parts []compound
}

// ParseSelector parses selectors of the form "tag#id.class ancestor descendant".
// Only tag, id, class and the descendant combinator are supported.
func ParseSelector(s string) (*Selector, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty selector")
	}

	sel := &Selector{parts: make([]compound, 0, len(fields))}
	for _, f := range fields {
		c, err := parseCompound(f)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", s, err)
		}
		sel.parts = append(sel.parts, c)
	}
	return sel, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	for i < len(s) && s[i] != '#' && s[i] != '.' {
		i++
	}
	c.tag = s[:i]
	if c.tag == "*" {
		c.tag = ""
	}

	for i < len(s) {
		kind := s[i]
		j := i + 1
		for j < len(s) && s[j] != '#' && s[j] != '.' {
			j++
		}
		name := s[i+1 : j]
		if name == "" {
			return c, fmt.Errorf("missing name after %q", kind)
		}
		if kind == '#' {
			c.id = name
		} else {
			c.classes = append(c.classes, name)
		}
		i = j
	}
	return c, nil
}

func (c compound) matches(e *Element) bool {
	if c.tag != "" && c.tag != e.tag {
		return false
	}
	if c.id != "" && c.id != e.id {
		return false
	}
	for _, cls := range c.classes {
		if !e.hasClass(cls) {
			return false
		}
	}
	return true
}

// Matches reports whether e matches the selector.
func (s *Selector) Matches(e *Element) bool {
	last := len(s.parts) - 1
	if !s.parts[last].matches(e) {
		return false
	}

	i := last - 1
	for anc := e.parent; anc != nil && i >= 0; anc = anc.parent {
		if s.parts[i].matches(anc) {
			i--
		}
	}
	return i < 0
}
