package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/docsession/internal/event"
)

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) handle(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) find(eventType, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.EventType() != eventType {
			continue
		}
		switch ev := e.(type) {
		case event.FileRemovedEvent:
			if ev.Path == path {
				return true
			}
		case event.FileChangedEvent:
			if ev.Path == path {
				return true
			}
		}
	}
	return false
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func newTestWatcher(t *testing.T) (*Watcher, *recorder) {
	t.Helper()
	bus := event.NewBus()
	rec := &recorder{}
	bus.SubscribeAll(rec.handle)

	w, err := NewWatcher(bus, WithSettleDelay(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	t.Cleanup(w.Stop)
	w.Start()
	return w, rec
}

func TestWatcher_AddRemove(t *testing.T) {
	dir := t.TempDir()
	w, _ := newTestWatcher(t)

	a := filepath.Join(dir, "a.md")
	b := filepath.Join(dir, "b.md")
	if err := w.Add(a); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := w.Add(b); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	_ = w.Add(a)

	if w.dirs[dir] != 2 {
		t.Errorf("dir refcount = %d, want 2", w.dirs[dir])
	}

	w.Remove(a)
	if w.Watching(a) || !w.Watching(b) {
		t.Error("Remove should only drop the named file")
	}
	w.Remove(b)
	w.Remove(b)
	if _, ok := w.dirs[dir]; ok {
		t.Error("directory should be released with its last file")
	}
}

func TestWatcher_DetectsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, rec := newTestWatcher(t)
	if err := w.Add(path); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	if !waitUntil(t, 2*time.Second, func() bool { return rec.find(event.TypeFileRemoved, path) }) {
		t.Error("expected file.removed event")
	}
}

func TestWatcher_DetectsExternalChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, rec := newTestWatcher(t)
	if err := w.Add(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("changed elsewhere"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitUntil(t, 2*time.Second, func() bool { return rec.find(event.TypeFileChanged, path) }) {
		t.Error("expected file.changed event")
	}
}

func TestWatcher_ExpectSuppressesOwnWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, rec := newTestWatcher(t)
	if err := w.Add(path); err != nil {
		t.Fatal(err)
	}

	w.Expect(path)
	if err := os.WriteFile(path, []byte("own write"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)
	if rec.find(event.TypeFileChanged, path) {
		t.Error("expected own write to be suppressed")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, _ := newTestWatcher(t)
	w.Stop()
	w.Stop()
}
