// Package debounce provides a cancellable, restartable timer handle that
// collapses bursts of triggers into one call after a quiet period.
package debounce

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer runs fn once delay has elapsed since the most recent Reset.
//
// A Timer owns at most one pending callback. Reset replaces it, Cancel drops
// it, Stop drops it permanently. A callback that was already scheduled by the
// clock but superseded before it ran is discarded, so no stale call ever
// reaches fn.
type Timer struct {
	clock clock.Clock
	fn    func()

	mu      sync.Mutex
	delay   time.Duration
	pending *clock.Timer
	gen     uint64
	stopped bool
}

// New creates an idle Timer. A nil clk uses the wall clock.
func New(clk clock.Clock, delay time.Duration, fn func()) *Timer {
	if clk == nil {
		clk = clock.New()
	}
	return &Timer{
		clock: clk,
		fn:    fn,
		delay: delay,
	}
}

// Reset (re)starts the quiet period. Any pending call is cancelled first.
// Returns false if the timer was stopped.
func (t *Timer) Reset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return false
	}
	if t.pending != nil {
		t.pending.Stop()
	}
	t.gen++
	gen := t.gen
	t.pending = t.clock.AfterFunc(t.delay, func() { t.fire(gen) })
	return true
}

// Cancel drops the pending call, if any. Returns true if one was pending.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelLocked()
}

func (t *Timer) cancelLocked() bool {
	t.gen++
	if t.pending == nil {
		return false
	}
	t.pending.Stop()
	t.pending = nil
	return true
}

// Stop cancels the pending call and disables the timer for good.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.stopped = true
}

// Pending reports whether a call is scheduled.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

// SetDelay changes the quiet period used by subsequent Resets.
func (t *Timer) SetDelay(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delay = d
}

// Delay returns the configured quiet period.
func (t *Timer) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if t.stopped || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	fn := t.fn
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}
