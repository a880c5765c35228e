package docsession

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Iron-Ham/docsession/internal/config"
	"github.com/Iron-Ham/docsession/internal/engine"
	"github.com/Iron-Ham/docsession/internal/event"
	"github.com/Iron-Ham/docsession/internal/testutil"
)

type harness struct {
	m        *Manager
	gw       *testutil.Gateway
	prompter *testutil.Prompter
	notifier *testutil.Notifier
	sink     *testutil.Sink
	clk      *clock.Mock
	events   *recorder
}

func newHarness(t *testing.T, files map[string]string, mutate ...func(*Config)) *harness {
	t.Helper()

	h := &harness{
		gw:       testutil.NewGateway(files),
		prompter: testutil.NewPrompter(),
		notifier: testutil.NewNotifier(),
		sink:     testutil.NewSink(),
		clk:      clock.NewMock(),
		events:   &recorder{},
	}
	cfg := Config{
		Gateway:   h.gw,
		Prompter:  h.prompter,
		Settings:  config.Default(),
		Notifier:  h.notifier,
		Telemetry: h.sink,
		Clock:     h.clk,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	t.Cleanup(m.Shutdown)
	h.m = m
	m.Bus().SubscribeAll(h.events.record)
	return h
}

func (h *harness) open(t *testing.T, path string) *Session {
	t.Helper()
	s, err := h.m.Open(context.Background(), OpenOptions{Path: path, Activate: true})
	if err != nil {
		t.Fatalf("Open(%q) error: %v", path, err)
	}
	return s
}

func (h *harness) openUntitled(t *testing.T, content string) *Session {
	t.Helper()
	s, err := h.m.Open(context.Background(), OpenOptions{Content: &content, Activate: true})
	if err != nil {
		t.Fatalf("Open(untitled) error: %v", err)
	}
	return s
}

func edit(t *testing.T, s *Session, text string) {
	t.Helper()
	te, ok := s.Engine().(*engine.TextEngine)
	if !ok {
		t.Fatalf("engine is %T, want *engine.TextEngine", s.Engine())
	}
	te.SetText(text)
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	return testutil.WaitFor(t, time.Second, cond)
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) record(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

func (r *recorder) count(eventType string) int {
	n := 0
	for _, typ := range r.types() {
		if typ == eventType {
			n++
		}
	}
	return n
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
