// Package fixture defines the host environment a benchmark runs against.
//
// A Host attaches and detaches fixtures. A Fixture loads a resource and exposes
// an element surface that can be queried by selector or id. The runner only
// talks to these interfaces; packages/fixture/memdom provides an in-memory host.
package fixture

import (
	"context"
	"time"
)

// Event is a notification dispatched to an element.
type Event struct {
	Type    string
	Key     string
	KeyCode int
	Bubbles bool
}

// Element is one addressable node inside a loaded fixture.
type Element interface {
	Click()
	Focus()
	SetValue(value string)
	Dispatch(ev Event)
}

// Fixture is an isolated document a suite's tests run against.
type Fixture interface {
	// Load loads the resource at url and returns once the fixture signals it is loaded.
	Load(ctx context.Context, url string) error
	// QuerySelector returns the first element matching selector, or nil.
	QuerySelector(selector string) Element
	// QuerySelectorAll returns every element matching selector in document order.
	QuerySelectorAll(selector string) []Element
	// GetElementByID returns the element with the given id, or nil.
	GetElementByID(id string) Element
	// LayoutHeight forces layout and returns the document body height.
	LayoutHeight() float64
}

// Host owns the single visible fixture container.
type Host interface {
	// NewFixture creates a fixture container that is not yet attached.
	NewFixture() Fixture
	Attach(f Fixture)
	Detach(f Fixture)
}

// Marker records named points on the host timeline.
type Marker interface {
	Mark(name string)
}

// FrameSync schedules work after the next paint.
type FrameSync interface {
	AfterPaint(ctx context.Context) error
}

// AfterPaint waits on fs, or returns immediately when fs is nil.
func AfterPaint(ctx context.Context, fs FrameSync) error {
	if fs == nil {
		return ctx.Err()
	}
	return fs.AfterPaint(ctx)
}

// Clock returns a timestamp in milliseconds.
type Clock interface {
	Now() float64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() float64

// Now implements Clock.
func (f ClockFunc) Now() float64 { return f() }

// MonotonicClock returns a high resolution clock relative to its creation.
func MonotonicClock() Clock {
	start := time.Now()
	return ClockFunc(func() float64 {
		return float64(time.Since(start)) / float64(time.Millisecond)
	})
}

// WallClock returns a millisecond-resolution wall clock.
func WallClock() Clock {
	return ClockFunc(func() float64 {
		return float64(time.Now().UnixMilli())
	})
}

// Yield gives pending host work a chance to run before returning.
func Yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(0)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
