// Package waitcond provides a mutex-guarded state with broadcast wake-up
// and predicate waits bounded by a timeout or context.
package waitcond

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned when the predicate is still false at the deadline.
	ErrTimeout = errors.New("wait timed out")
	// ErrClosed is returned to every waiter once the condition is closed.
	ErrClosed = errors.New("wait condition closed")
)

// Cond guards caller state with a mutex. Every Update broadcasts to all
// waiters, which re-evaluate their own predicate under the lock.
type Cond struct {
	mu     sync.Mutex
	wake   chan struct{}
	closed bool
}

// New creates a Cond.
func New() *Cond {
	return &Cond{wake: make(chan struct{})}
}

// Update runs fn under the lock and then wakes all waiters.
func (c *Cond) Update(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn != nil {
		fn()
	}
	c.broadcastLocked()
}

// View runs fn under the lock without waking anyone.
func (c *Cond) View(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// Close wakes all waiters and makes current and future waits fail with
// ErrClosed unless their predicate already holds.
func (c *Cond) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.broadcastLocked()
}

// Closed reports whether Close was called.
func (c *Cond) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// WaitTimeout blocks until pred returns true, the timeout elapses or the
// Cond is closed. pred runs under the lock and may mutate the guarded state.
// The deadline is fixed on entry, so wakeups that leave pred false do not
// extend it.
func (c *Cond) WaitTimeout(timeout time.Duration, pred func() bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := c.Wait(ctx, pred)
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// Wait blocks until pred returns true, ctx is done or the Cond is closed.
// On ctx expiry it returns ctx.Err().
func (c *Cond) Wait(ctx context.Context, pred func() bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if pred() {
			return nil
		}
		if c.closed {
			return ErrClosed
		}

		wake := c.wake
		c.mu.Unlock()
		select {
		case <-wake:
			c.mu.Lock()
		case <-ctx.Done():
			c.mu.Lock()
			// last look: the state may have changed while we were timing out
			if pred() {
				return nil
			}
			return ctx.Err()
		}
	}
}

func (c *Cond) broadcastLocked() {
	close(c.wake)
	c.wake = make(chan struct{})
}
