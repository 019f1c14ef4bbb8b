package dataverse

import (
	"context"
	"math"
	"sync"
	"time"
)

// throttle is a token bucket that paces outgoing requests below the
// service protection limits of the environment. Requests wait for a token
// instead of being rejected.
type throttle struct {
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// newThrottle returns nil when rate is not positive. burst defaults to the
// rate rounded up.
func newThrottle(rate float64, burst int) *throttle {
	if rate <= 0 {
		return nil
	}
	capacity := float64(burst)
	if burst <= 0 {
		capacity = math.Max(1, math.Ceil(rate))
	}
	return &throttle{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: rate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (t *throttle) Wait(ctx context.Context) error {
	for {
		delay := t.reserve()
		if delay == 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token and returns 0, or returns how long until one is
// available.
func (t *throttle) reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refillLocked()
	if t.tokens >= 1 {
		t.tokens--
		return 0
	}
	missing := 1 - t.tokens
	return time.Duration(missing / t.refillRate * float64(time.Second))
}

func (t *throttle) refillLocked() {
	now := t.now()
	elapsed := now.Sub(t.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	t.tokens = math.Min(t.capacity, t.tokens+elapsed*t.refillRate)
	t.lastRefill = now
}
