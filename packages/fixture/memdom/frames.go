package memdom

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitbench/packages/fixture"
)

// DefaultFPS is the paint rate used when none is configured.
const DefaultFPS = 60

// FrameClock simulates paint boundaries at a fixed frame rate.
type FrameClock struct {
	limiter *rate.Limiter
	frames  atomic.Int64
}

var _ fixture.FrameSync = (*FrameClock)(nil)

// NewFrameClock creates a frame clock painting fps times per second.
func NewFrameClock(fps int) *FrameClock {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &FrameClock{
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
	}
}

// AfterPaint blocks until the next frame slot is available.
func (c *FrameClock) AfterPaint(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	c.frames.Add(1)
	return nil
}

// Frames returns the number of paints delivered so far.
func (c *FrameClock) Frames() int64 {
	return c.frames.Load()
}
