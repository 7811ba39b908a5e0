package page

import (
	"context"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/fixture"
)

// LiveHandle acts on a real fixture element.
type LiveHandle struct {
	el fixture.Element
}

// Element returns the underlying fixture element.
func (h *LiveHandle) Element() fixture.Element { return h.el }

func (h *LiveHandle) Click() { h.el.Click() }

func (h *LiveHandle) Focus() { h.el.Focus() }

func (h *LiveHandle) Type(text string) {
	h.el.SetValue(text)
	h.el.Dispatch(fixture.Event{Type: "change"})
	h.el.Dispatch(fixture.Event{
		Type:    "keypress",
		Key:     "Enter",
		KeyCode: 13,
		Bubbles: true,
	})
}

// LivePage queries a loaded fixture directly.
type LivePage struct {
	fx       fixture.Fixture
	frames   fixture.FrameSync
	interval time.Duration
}

// NewLive creates a live accessor. A nil frames paints immediately; a zero
// interval uses PollInterval.
func NewLive(fx fixture.Fixture, frames fixture.FrameSync, interval time.Duration) *LivePage {
	if interval <= 0 {
		interval = PollInterval
	}
	return &LivePage{fx: fx, frames: frames, interval: interval}
}

func wrap(el fixture.Element) Handle {
	if el == nil {
		return nil
	}
	return &LiveHandle{el: el}
}

func (p *LivePage) QuerySelector(selector string) Handle {
	return wrap(p.fx.QuerySelector(selector))
}

func (p *LivePage) QuerySelectorAll(selector string) []Handle {
	els := p.fx.QuerySelectorAll(selector)
	out := make([]Handle, 0, len(els))
	for _, el := range els {
		out = append(out, &LiveHandle{el: el})
	}
	return out
}

func (p *LivePage) GetElementByID(id string) Handle {
	return wrap(p.fx.GetElementByID(id))
}

// WaitForElement polls until selector matches, then waits for the next paint.
func (p *LivePage) WaitForElement(ctx context.Context, selector string) (Handle, error) {
	for {
		if h := p.QuerySelector(selector); h != nil {
			if err := fixture.AfterPaint(ctx, p.frames); err != nil {
				return nil, err
			}
			return h, nil
		}

		t := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
