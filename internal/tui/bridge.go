package tui

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/notify"
)

// ErrNotAttached is returned by a Prompter used before the program starts.
var ErrNotAttached = errors.New("terminal ui not attached")

// sender delivers a message to a running program.
type sender func(tea.Msg)

// attachment holds the sender shared by the Prompter and Notifier. The
// program is built after the session manager, so it is attached late.
type attachment struct {
	mu   sync.RWMutex
	send sender
}

func (a *attachment) attach(s sender) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.send = s
}

func (a *attachment) sender() sender {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.send
}

// Prompter shows the save dialog inside the terminal UI. It blocks the
// calling goroutine until the user answers, so it must never be called from
// the program's Update loop.
type Prompter struct {
	attachment
}

// NewPrompter creates a detached Prompter.
func NewPrompter() *Prompter {
	return &Prompter{}
}

// Attach routes prompts to program.
func (p *Prompter) Attach(program *tea.Program) {
	p.attach(program.Send)
}

// PromptSavePath implements store.Prompter.
func (p *Prompter) PromptSavePath(ctx context.Context, title, defaultName string) (string, bool, error) {
	send := p.sender()
	if send == nil {
		return "", false, ErrNotAttached
	}

	reply := make(chan promptResult, 1)
	go send(promptRequestMsg{title: title, defaultName: defaultName, reply: reply})

	select {
	case r := <-reply:
		return r.path, r.ok, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// Notifier shows notifications as toasts. Messages are delivered
// asynchronously, so it never blocks the caller.
type Notifier struct {
	attachment
	seq atomic.Int64
}

// NewNotifier creates a detached Notifier. Notifications sent before Attach
// are dropped.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Attach routes notifications to program.
func (n *Notifier) Attach(program *tea.Program) {
	n.attach(program.Send)
}

func (n *Notifier) post(msg tea.Msg) {
	if send := n.sender(); send != nil {
		go send(msg)
	}
}

// Loading implements notify.Notifier.
func (n *Notifier) Loading(message string) string {
	id := fmt.Sprintf("toast-%d", n.seq.Add(1))
	n.post(toastMsg{id: id, level: notify.LevelLoading, text: message})
	return id
}

// Dismiss implements notify.Notifier.
func (n *Notifier) Dismiss(id string) {
	n.post(dismissMsg{id: id})
}

// Success implements notify.Notifier.
func (n *Notifier) Success(message string) {
	id := fmt.Sprintf("toast-%d", n.seq.Add(1))
	n.post(toastMsg{id: id, level: notify.LevelSuccess, text: message})
}

// Error implements notify.Notifier.
func (n *Notifier) Error(message string) {
	id := fmt.Sprintf("toast-%d", n.seq.Add(1))
	n.post(toastMsg{id: id, level: notify.LevelError, text: message})
}
