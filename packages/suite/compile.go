package suite

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitbench/packages/page"
)

// Compile turns the file's specs into runnable suites.
func (f *File) Compile() ([]*Suite, error) {
	suites := make([]*Suite, 0, len(f.Suites))
	seen := make(map[string]bool, len(f.Suites))

	for _, spec := range f.Suites {
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate suite name %q", spec.Name)
		}
		seen[spec.Name] = true

		s, err := spec.compile()
		if err != nil {
			return nil, fmt.Errorf("suite %q: %w", spec.Name, err)
		}
		suites = append(suites, s)
	}
	return suites, nil
}

func (spec SuiteSpec) compile() (*Suite, error) {
	s := &Suite{
		Name:     spec.Name,
		URL:      spec.URL,
		Disabled: spec.Disabled,
		Tests:    make([]*Test, 0, len(spec.Tests)),
	}

	prepare := spec.Prepare
	s.Prepare = func(ctx context.Context, p page.Accessor) error {
		for _, step := range prepare {
			if err := runStep(ctx, p, step, 0); err != nil {
				return fmt.Errorf("prepare %s: %w", step.Kind(), err)
			}
		}
		return nil
	}

	names := make(map[string]bool, len(spec.Tests))
	for _, ts := range spec.Tests {
		if names[ts.Name] {
			return nil, fmt.Errorf("duplicate test name %q", ts.Name)
		}
		names[ts.Name] = true

		for _, step := range ts.Steps {
			if step.WaitFor != "" {
				return nil, fmt.Errorf("test %q: waitFor is only allowed in prepare", ts.Name)
			}
		}
		s.Tests = append(s.Tests, ts.compile())
	}
	return s, nil
}

func (ts TestSpec) compile() *Test {
	repeat := ts.Repeat
	if repeat < 1 {
		repeat = 1
	}
	steps := ts.Steps
	return NewTest(ts.Name, func(p page.Accessor) error {
		for i := 0; i < repeat; i++ {
			for _, step := range steps {
				if err := runStep(context.Background(), p, step, i); err != nil {
					return fmt.Errorf("%s: %w", step.Kind(), err)
				}
			}
		}
		return nil
	})
}

func expand(s string, i int) string {
	return strings.ReplaceAll(s, "${i}", strconv.Itoa(i))
}

func find(p page.Accessor, selector string) (page.Handle, error) {
	h := p.QuerySelector(selector)
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return h, nil
}

func findByID(p page.Accessor, id string) (page.Handle, error) {
	h := p.GetElementByID(id)
	if h == nil {
		return nil, fmt.Errorf("%w: #%s", ErrElementNotFound, id)
	}
	return h, nil
}

func runStep(ctx context.Context, p page.Accessor, step Step, i int) error {
	switch {
	case step.Click != "":
		h, err := find(p, expand(step.Click, i))
		if err != nil {
			return err
		}
		h.Click()

	case step.ClickAll != "":
		for _, h := range p.QuerySelectorAll(expand(step.ClickAll, i)) {
			h.Click()
		}

	case step.ClickID != "":
		h, err := findByID(p, expand(step.ClickID, i))
		if err != nil {
			return err
		}
		h.Click()

	case step.Focus != "":
		h, err := find(p, expand(step.Focus, i))
		if err != nil {
			return err
		}
		h.Focus()

	case step.FocusID != "":
		h, err := findByID(p, expand(step.FocusID, i))
		if err != nil {
			return err
		}
		h.Focus()

	case step.WaitFor != "":
		if _, err := p.WaitForElement(ctx, expand(step.WaitFor, i)); err != nil {
			return err
		}

	case step.Type != nil:
		var (
			h   page.Handle
			err error
		)
		if step.Type.ID != "" {
			h, err = findByID(p, expand(step.Type.ID, i))
		} else {
			h, err = find(p, expand(step.Type.Selector, i))
		}
		if err != nil {
			return err
		}
		h.Type(expand(step.Type.Text, i))
	}
	return nil
}
