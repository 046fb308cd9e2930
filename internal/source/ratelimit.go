package source

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RateLimiter enforces a minimum interval between requests from one client
// instance. The interval is 60s divided by the configured requests-per-minute.
// State is per instance: two clients hitting the same upstream host do not
// share a limiter.
type RateLimiter struct {
	clock    clockwork.Clock
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewRateLimiter creates a limiter allowing rpm requests per minute using the
// real clock. Non-positive rpm disables waiting entirely.
func NewRateLimiter(rpm int) *RateLimiter {
	return NewRateLimiterWithClock(rpm, clockwork.NewRealClock())
}

// NewRateLimiterWithClock is NewRateLimiter with an injected time source so
// tests can freeze time.
func NewRateLimiterWithClock(rpm int, clock clockwork.Clock) *RateLimiter {
	var interval time.Duration
	if rpm > 0 {
		interval = time.Duration(float64(time.Minute) / float64(rpm))
	}
	return &RateLimiter{clock: clock, interval: interval}
}

// Wait blocks until the minimum interval since the previous call has elapsed,
// then records the current time as the latest request. The first call on a
// fresh limiter returns immediately. A cancelled context cuts the sleep short
// and returns ctx.Err(); the timestamp still advances because the attempt
// counted as a request.
func (l *RateLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	var wait time.Duration
	if !l.last.IsZero() {
		if elapsed := l.clock.Since(l.last); elapsed < l.interval {
			wait = l.interval - elapsed
		}
	}
	l.mu.Unlock()

	var err error
	if wait > 0 {
		timer := l.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			err = ctx.Err()
		case <-timer.Chan():
		}
	}

	l.mu.Lock()
	l.last = l.clock.Now()
	l.mu.Unlock()
	return err
}
