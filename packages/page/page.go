// Package page provides the element interaction surface test bodies are written against.
//
// Two interchangeable variants implement Accessor and Handle:
//   - Live: queries the current fixture and performs interactions immediately
//   - Recorded: appends an Action for every call to a shared log instead
//
// The variant is chosen once per process with Mode; test code never sees which
// one is in effect.
package page

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/fixture"
)

// PollInterval is the delay between existence checks in WaitForElement.
const PollInterval = 50 * time.Millisecond

// Handle is one addressable element.
type Handle interface {
	Click()
	Focus()
	// Type commits text to the element, fires change and then an Enter key press.
	Type(text string)
}

// Accessor resolves selectors and ids to handles within the active fixture.
type Accessor interface {
	QuerySelector(selector string) Handle
	QuerySelectorAll(selector string) []Handle
	GetElementByID(id string) Handle
	// WaitForElement resolves once selector exists and the next paint has happened.
	WaitForElement(ctx context.Context, selector string) (Handle, error)
}

// Mode selects the accessor variant.
type Mode int

const (
	// Live acts on the fixture immediately
	Live Mode = iota
	// Batch records actions instead of performing them
	Batch
)

func (m Mode) String() string {
	switch m {
	case Live:
		return "live"
	case Batch:
		return "batch"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "live" or "batch".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "live":
		return Live, nil
	case "batch", "record", "recorded":
		return Batch, nil
	default:
		return Live, fmt.Errorf("unknown page mode: %s", s)
	}
}

// Keys hands out handle keys. Keys are strictly increasing and never reused.
type Keys struct {
	next atomic.Int64
}

// NewKeys creates a key sequence starting at 0.
func NewKeys() *Keys {
	return &Keys{}
}

// Next returns the next unused key.
func (k *Keys) Next() int {
	return int(k.next.Add(1) - 1)
}

// Options carries the collaborators an accessor needs.
type Options struct {
	Keys         *Keys
	Frames       fixture.FrameSync
	PollInterval time.Duration
}

// New builds the accessor for mode over fx. Recorded accessors never touch fx.
func New(mode Mode, fx fixture.Fixture, opts Options) Accessor {
	if mode == Batch {
		keys := opts.Keys
		if keys == nil {
			keys = NewKeys()
		}
		return NewRecorder(keys)
	}
	return NewLive(fx, opts.Frames, opts.PollInterval)
}

// Actions returns the log of a recorded accessor, or nil for a live one.
func Actions(a Accessor) []Action {
	if r, ok := a.(*Recorder); ok {
		return r.Actions()
	}
	return nil
}
