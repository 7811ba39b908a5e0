package memdom

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Node is the declarative form of an element in a fixture document.
type Node struct {
	Tag         string   `yaml:"tag"`
	ID          string   `yaml:"id,omitempty"`
	Class       string   `yaml:"class,omitempty"`
	Text        string   `yaml:"text,omitempty"`
	Value       string   `yaml:"value,omitempty"`
	AppearAfter string   `yaml:"appearAfter,omitempty"` // e.g. "120ms"
	OnClick     *Handler `yaml:"onClick,omitempty"`
	OnEnter     *Handler `yaml:"onEnter,omitempty"`
	OnChange    *Handler `yaml:"onChange,omitempty"`
	Children    []*Node  `yaml:"children,omitempty"`
}

// Handler mutates the document in response to an event.
//
// ${value} in appended text is replaced with the target element's value.
type Handler struct {
	Append      *Node  `yaml:"append,omitempty"`
	To          string `yaml:"to,omitempty"` // selector, defaults to the target element
	Remove      string `yaml:"remove,omitempty"`
	ToggleClass string `yaml:"toggleClass,omitempty"`
	ClearValue  bool   `yaml:"clearValue,omitempty"`
}

// Document is the root of a fixture file.
type Document struct {
	Title string  `yaml:"title,omitempty"`
	Body  []*Node `yaml:"body"`
}

// ParseDocument decodes a YAML fixture document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing fixture document: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadDocument reads and decodes a YAML fixture document from path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture document: %w", err)
	}
	return ParseDocument(data)
}

func (d *Document) validate() error {
	var walk func(nodes []*Node) error
	walk = func(nodes []*Node) error {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			if n.Tag == "" {
				return fmt.Errorf("fixture node %q has no tag", n.ID)
			}
			if n.AppearAfter != "" {
				if _, err := time.ParseDuration(n.AppearAfter); err != nil {
					return fmt.Errorf("fixture node %q: invalid appearAfter: %w", n.Tag, err)
				}
			}
			for _, h := range []*Handler{n.OnClick, n.OnEnter, n.OnChange} {
				if h == nil {
					continue
				}
				for _, sel := range []string{h.To, h.Remove} {
					if sel == "" || sel == "self" {
						continue
					}
					if _, err := ParseSelector(sel); err != nil {
						return err
					}
				}
				if h.Append != nil {
					if err := walk([]*Node{h.Append}); err != nil {
						return err
					}
				}
			}
			if err := walk(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(d.Body)
}

func (n *Node) appearDelay() time.Duration {
	if n.AppearAfter == "" {
		return 0
	}
	d, _ := time.ParseDuration(n.AppearAfter)
	return d
}

func (n *Node) classes() []string {
	return strings.Fields(n.Class)
}
