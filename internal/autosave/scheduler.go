// Package autosave schedules debounced automatic saves for one document.
package autosave

import (
	"sync"
	"time"

	"github.com/Iron-Ham/docsession/internal/debounce"
	"github.com/benbjohnson/clock"
)

// Scheduler requests a save once interval has elapsed since the last edit,
// while enabled. There is never more than one pending autosave.
type Scheduler struct {
	timer *debounce.Timer

	mu      sync.Mutex
	enabled bool
}

// New creates a Scheduler that calls save when the quiet period elapses.
func New(clk clock.Clock, interval time.Duration, enabled bool, save func()) *Scheduler {
	return &Scheduler{
		timer:   debounce.New(clk, interval, save),
		enabled: enabled,
	}
}

// NotifyEdit restarts the quiet period. Returns false when autosave is off.
func (s *Scheduler) NotifyEdit() bool {
	s.mu.Lock()
	enabled := s.enabled
	s.mu.Unlock()

	if !enabled {
		return false
	}
	return s.timer.Reset()
}

// SetEnabled toggles autosave. Turning it off cancels any pending save.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()

	if !enabled {
		s.timer.Cancel()
	}
}

// Enabled reports whether autosave is on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetInterval changes the quiet period for subsequent edits.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.timer.SetDelay(d)
}

// Interval returns the quiet period.
func (s *Scheduler) Interval() time.Duration {
	return s.timer.Delay()
}

// Cancel drops a pending autosave, e.g. when an explicit save supersedes it.
func (s *Scheduler) Cancel() bool {
	return s.timer.Cancel()
}

// Pending reports whether an autosave is scheduled.
func (s *Scheduler) Pending() bool {
	return s.timer.Pending()
}

// Stop cancels any pending autosave and disables the scheduler for good.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
	s.timer.Stop()
}
