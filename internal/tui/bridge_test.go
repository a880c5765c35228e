package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/docsession/internal/notify"
)

func TestPrompter_NotAttached(t *testing.T) {
	p := NewPrompter()
	if _, _, err := p.PromptSavePath(context.Background(), "Save File", "a.md"); !errors.Is(err, ErrNotAttached) {
		t.Errorf("err = %v, want ErrNotAttached", err)
	}
}

func TestPrompter_Answer(t *testing.T) {
	p := NewPrompter()
	var got promptRequestMsg
	p.attach(func(msg tea.Msg) {
		got = msg.(promptRequestMsg)
		got.reply <- promptResult{path: "/docs/new.md", ok: true}
	})

	path, ok, err := p.PromptSavePath(context.Background(), "Save File", "Untitled.md")
	if err != nil || !ok || path != "/docs/new.md" {
		t.Fatalf("PromptSavePath() = %q, %v, %v", path, ok, err)
	}
	if got.title != "Save File" || got.defaultName != "Untitled.md" {
		t.Errorf("request = %+v", got)
	}
}

func TestPrompter_ContextCancelled(t *testing.T) {
	p := NewPrompter()
	p.attach(func(tea.Msg) {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok, err := p.PromptSavePath(ctx, "Save File", "a.md")
	if ok || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("PromptSavePath() = %v, %v; want deadline exceeded", ok, err)
	}
}

func TestNotifier_PostsToasts(t *testing.T) {
	n := NewNotifier()

	// Detached notifications are dropped without blocking.
	n.Success("dropped")

	msgs := make(chan tea.Msg, 4)
	n.attach(func(msg tea.Msg) { msgs <- msg })

	id := n.Loading("Export HTML...")
	n.Dismiss(id)
	n.Error("boom")

	seen := map[string]bool{}
	for range 3 {
		select {
		case msg := <-msgs:
			switch msg := msg.(type) {
			case toastMsg:
				if msg.level == notify.LevelLoading && msg.id == id {
					seen["loading"] = true
				}
				if msg.level == notify.LevelError && msg.text == "boom" {
					seen["error"] = true
				}
			case dismissMsg:
				if msg.id == id {
					seen["dismiss"] = true
				}
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for notifications")
		}
	}
	for _, k := range []string{"loading", "dismiss", "error"} {
		if !seen[k] {
			t.Errorf("missing %s notification", k)
		}
	}
}
