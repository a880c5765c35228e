package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// waitFor polls cond until it holds or the deadline passes. Mock clock
// callbacks run on their own goroutines.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTimer_CollapsesBurst(t *testing.T) {
	clk := clock.NewMock()
	var calls atomic.Int32
	tm := New(clk, 100*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		tm.Reset()
		clk.Add(50 * time.Millisecond)
	}
	if got := calls.Load(); got != 0 {
		t.Fatalf("calls during burst = %d, want 0", got)
	}

	clk.Add(100 * time.Millisecond)
	waitFor(t, func() bool { return calls.Load() == 1 })

	clk.Add(time.Second)
	time.Sleep(10 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want exactly 1", got)
	}
	if tm.Pending() {
		t.Error("timer should be idle after firing")
	}
}

func TestTimer_Cancel(t *testing.T) {
	clk := clock.NewMock()
	var calls atomic.Int32
	tm := New(clk, 100*time.Millisecond, func() { calls.Add(1) })

	tm.Reset()
	if !tm.Pending() {
		t.Fatal("Reset should leave a pending call")
	}
	if !tm.Cancel() {
		t.Error("Cancel should report the pending call")
	}
	if tm.Cancel() {
		t.Error("second Cancel should report nothing pending")
	}

	clk.Add(time.Second)
	time.Sleep(10 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("cancelled timer fired %d times", got)
	}
}

func TestTimer_Stop(t *testing.T) {
	clk := clock.NewMock()
	var calls atomic.Int32
	tm := New(clk, 100*time.Millisecond, func() { calls.Add(1) })

	tm.Reset()
	tm.Stop()
	if tm.Reset() {
		t.Error("Reset after Stop should return false")
	}

	clk.Add(time.Second)
	time.Sleep(10 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("stopped timer fired %d times", got)
	}
}

func TestTimer_SetDelay(t *testing.T) {
	clk := clock.NewMock()
	var calls atomic.Int32
	tm := New(clk, 100*time.Millisecond, func() { calls.Add(1) })

	tm.SetDelay(500 * time.Millisecond)
	if tm.Delay() != 500*time.Millisecond {
		t.Fatalf("Delay() = %v", tm.Delay())
	}

	tm.Reset()
	clk.Add(200 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("fired before the new delay elapsed")
	}

	clk.Add(300 * time.Millisecond)
	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestTimer_StaleCallbackDiscarded(t *testing.T) {
	clk := clock.NewMock()
	var calls atomic.Int32
	tm := New(clk, 100*time.Millisecond, func() { calls.Add(1) })

	tm.Reset()
	gen := tm.gen
	tm.Reset()

	// Simulate the clock delivering the superseded callback late.
	tm.fire(gen)
	if calls.Load() != 0 {
		t.Error("superseded callback must not run")
	}
	if !tm.Pending() {
		t.Error("the live call should still be pending")
	}
}
