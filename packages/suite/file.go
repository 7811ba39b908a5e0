package suite

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// DefaultResourceBase prefixes suite urls when a file does not set one.
const DefaultResourceBase = "resources/"

//go:embed schema.json
var schemaJSON []byte

var (
	// ErrNoSuites is returned for a suite file without any suites
	ErrNoSuites = errors.New("no suites defined")
	// ErrElementNotFound is returned by a compiled step whose target is absent
	ErrElementNotFound = errors.New("element not found")
)

// SchemaError lists every schema violation of a suite file.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "suite file does not match schema: " + strings.Join(e.Problems, "; ")
}

// File is the decoded form of a YAML suite file.
type File struct {
	Path         string      `yaml:"-"`
	ResourceBase string      `yaml:"resourceBase,omitempty"`
	Suites       []SuiteSpec `yaml:"suites"`
}

// SuiteSpec describes one suite.
type SuiteSpec struct {
	Name     string     `yaml:"name"`
	URL      string     `yaml:"url"`
	Disabled bool       `yaml:"disabled,omitempty"`
	Prepare  []Step     `yaml:"prepare,omitempty"`
	Tests    []TestSpec `yaml:"tests"`
}

// TestSpec describes one test. Steps run Repeat times, ${i} expands to the iteration.
type TestSpec struct {
	Name   string `yaml:"name"`
	Repeat int    `yaml:"repeat,omitempty"`
	Steps  []Step `yaml:"steps"`
}

// Step is a single interaction. Exactly one field is set.
type Step struct {
	Click    string      `yaml:"click,omitempty"`
	ClickAll string      `yaml:"clickAll,omitempty"`
	ClickID  string      `yaml:"clickId,omitempty"`
	Focus    string      `yaml:"focus,omitempty"`
	FocusID  string      `yaml:"focusId,omitempty"`
	WaitFor  string      `yaml:"waitFor,omitempty"`
	Type     *TypeTarget `yaml:"type,omitempty"`
}

// TypeTarget is the argument of a type step.
type TypeTarget struct {
	Selector string `yaml:"selector,omitempty"`
	ID       string `yaml:"id,omitempty"`
	Text     string `yaml:"text"`
}

// Kind returns the step name for display.
func (s Step) Kind() string {
	switch {
	case s.Click != "":
		return "click " + s.Click
	case s.ClickAll != "":
		return "clickAll " + s.ClickAll
	case s.ClickID != "":
		return "clickId " + s.ClickID
	case s.Focus != "":
		return "focus " + s.Focus
	case s.FocusID != "":
		return "focusId " + s.FocusID
	case s.WaitFor != "":
		return "waitFor " + s.WaitFor
	case s.Type != nil:
		if s.Type.ID != "" {
			return "type #" + s.Type.ID
		}
		return "type " + s.Type.Selector
	default:
		return "empty"
	}
}

// Validate checks raw YAML suite file content against the embedded schema.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing suite file: %w", err)
	}
	if doc == nil {
		return ErrNoSuites
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting suite file to JSON: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(docJSON),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &SchemaError{Problems: problems}
}

// Parse validates and decodes a YAML suite file.
func Parse(data []byte) (*File, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding suite file: %w", err)
	}
	if len(f.Suites) == 0 {
		return nil, ErrNoSuites
	}
	if f.ResourceBase == "" {
		f.ResourceBase = DefaultResourceBase
	}
	return &f, nil
}

// LoadFile reads, validates and decodes the suite file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}
