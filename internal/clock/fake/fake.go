// Package fake provides a virtual-time clock for deterministic tests. Time
// only moves when Advance is called; sleepers park until their deadline is
// reached or their context is cancelled.
package fake

import (
	"context"
	"sync"
	"time"
)

// Clock implements clock.Clock over a manually advanced timeline.
type Clock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     time.Time
	waiters []*waiter
}

type waiter struct {
	at time.Time
	ch chan struct{}
}

// New creates a Clock starting at the given instant.
func New(start time.Time) *Clock {
	c := &Clock{now: start}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Now returns the current virtual time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep parks the caller until Advance moves the timeline past the deadline
// or ctx is cancelled. A non-positive d only observes the context.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	c.mu.Lock()
	w := &waiter{at: c.now.Add(d), ch: make(chan struct{})}
	c.waiters = append(c.waiters, w)
	c.cond.Broadcast()
	c.mu.Unlock()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		c.remove(w)
		return ctx.Err()
	}
}

// Advance moves virtual time forward by d and releases every sleeper whose
// deadline has elapsed.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			close(w.ch)
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining
	c.cond.Broadcast()
}

// Sleepers reports how many callers are currently parked in Sleep.
func (c *Clock) Sleepers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// BlockUntil waits until at least n sleepers are parked. Tests call it
// before Advance so a tick cannot be missed.
func (c *Clock) BlockUntil(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.waiters) < n {
		c.cond.Wait()
	}
}

func (c *Clock) remove(target *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == target {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			break
		}
	}
	c.cond.Broadcast()
}
