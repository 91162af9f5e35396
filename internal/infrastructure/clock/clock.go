// Package clock implements the simulated monotonic clock (spec.md §4.1).
package clock

import (
	"context"
	"sync/atomic"
	"time"
)

// Clock is a thread-safe simulated-seconds counter. "No ordering guarantees
// relative to other operations — consumers read a snapshot" (spec.md §4.1),
// hence a bare atomic counter rather than a mutex-guarded one.
type Clock struct {
	now atomic.Int64
}

// New returns a Clock starting at zero.
func New() *Clock { return &Clock{} }

// Advance moves the clock forward by delta simulated seconds and returns the
// new value.
func (c *Clock) Advance(delta int64) int64 {
	return c.now.Add(delta)
}

// Now returns the current simulated time.
func (c *Clock) Now() int64 {
	return c.now.Load()
}

// Set pins the clock to an absolute value (used by seed tests).
func (c *Clock) Set(t int64) {
	c.now.Store(t)
}

// pollInterval bounds how often Sleep rechecks the clock between the
// engine's own Advance(1) ticks; it only needs to be finer than the
// configured tick cadence, not finer than real time.
const pollInterval = 10 * time.Millisecond

// Sleep blocks until the clock has advanced by at least seconds simulated
// units from its value when called, or ctx is canceled. It polls rather
// than waiting on a channel since the clock is a bare atomic counter with
// "no ordering guarantees" (spec.md §4.1) — no condition variable to wait
// on without adding the very coordination the clock is designed to avoid.
func (c *Clock) Sleep(ctx context.Context, seconds float64) bool {
	if seconds <= 0 {
		return ctx.Err() == nil
	}
	deadline := c.Now() + int64(seconds+0.999999)
	for c.Now() < deadline {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
	return true
}
