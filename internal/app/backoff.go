package app

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultRetryDelay is how long a worker pauses after a fault.
const DefaultRetryDelay = 10 * time.Second

// backoff paces a worker's retries. The delay doubles after every wait until
// it reaches ceiling; the workers pass floor == ceiling, which makes it the
// fixed pause between attempts.
type backoff struct {
	clock   clock.Clock
	floor   time.Duration
	ceiling time.Duration
	delay   time.Duration
}

func newBackoff(clk clock.Clock, floor, ceiling time.Duration) *backoff {
	return &backoff{
		clock:   clk,
		floor:   floor,
		ceiling: max(floor, ceiling),
		delay:   floor,
	}
}

// Wait sleeps for the current delay on b's clock. It reports false when ctx
// ended the sleep early.
func (b *backoff) Wait(ctx context.Context) bool {
	t := b.clock.Timer(b.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
	}
	b.delay = min(2*b.delay, b.ceiling)
	return true
}

// Reset is called once a connection is up again.
func (b *backoff) Reset() { b.delay = b.floor }

func (b *backoff) Current() time.Duration { return b.delay }
