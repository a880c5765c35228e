package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/notify"
)

// Gateway is an in-memory persistence gateway that records writes. Failures
// can be injected per path.
type Gateway struct {
	mu     sync.Mutex
	files  map[string][]byte
	fail   map[string]error
	writes []string
	// BeforeWrite, when set, runs before each write outside the lock.
	BeforeWrite func(path string)
	// BeforeRead, when set, runs before each read outside the lock.
	BeforeRead func(path string)
}

// NewGateway creates a gateway holding files.
func NewGateway(files map[string]string) *Gateway {
	g := &Gateway{
		files: make(map[string][]byte),
		fail:  make(map[string]error),
	}
	for p, c := range files {
		g.files[p] = []byte(c)
	}
	return g
}

// Fail makes every write to path return err. A nil err clears the failure.
func (g *Gateway) Fail(path string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.fail, path)
		return
	}
	g.fail[path] = err
}

// Exists reports whether path holds a file.
func (g *Gateway) Exists(ctx context.Context, path string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.files[path]
	return ok, nil
}

// Read returns the content at path.
func (g *Gateway) Read(ctx context.Context, path string) (string, error) {
	if g.BeforeRead != nil {
		g.BeforeRead(path)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.files[path]
	if !ok {
		return "", errors.NewIOError("read", path, errors.ErrFileNotExist)
	}
	return string(data), nil
}

// Write stores content at path.
func (g *Gateway) Write(ctx context.Context, path, content string) error {
	return g.put(ctx, "write", path, []byte(content))
}

// WriteBinary stores data at path.
func (g *Gateway) WriteBinary(ctx context.Context, path string, data []byte) error {
	return g.put(ctx, "write", path, data)
}

func (g *Gateway) put(ctx context.Context, op, path string, data []byte) error {
	if g.BeforeWrite != nil {
		g.BeforeWrite(path)
	}
	if err := ctx.Err(); err != nil {
		return errors.NewIOError(op, path, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes = append(g.writes, path)
	if err, ok := g.fail[path]; ok {
		return errors.NewIOError(op, path, err)
	}
	g.files[path] = append([]byte(nil), data...)
	return nil
}

// Content returns the stored content of path and whether it exists.
func (g *Gateway) Content(path string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.files[path]
	return string(data), ok
}

// Writes returns the paths of every attempted write, in order.
func (g *Gateway) Writes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.writes...)
}

// WriteCount returns the number of attempted writes.
func (g *Gateway) WriteCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.writes)
}

// PromptCall records one save dialog request.
type PromptCall struct {
	Title       string
	DefaultName string
}

// PromptAnswer is a scripted dialog reply. An empty Path cancels.
type PromptAnswer struct {
	Path string
	Err  error
}

// Prompter replies to save dialogs from a script. Once the script runs out
// it cancels.
type Prompter struct {
	mu      sync.Mutex
	answers []PromptAnswer
	calls   []PromptCall
	// Block, when set, is received from before answering.
	Block chan struct{}
}

// NewPrompter creates a prompter answering with paths in order.
func NewPrompter(paths ...string) *Prompter {
	p := &Prompter{}
	for _, path := range paths {
		p.answers = append(p.answers, PromptAnswer{Path: path})
	}
	return p
}

// Queue appends answers to the script.
func (p *Prompter) Queue(answers ...PromptAnswer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers = append(p.answers, answers...)
}

// PromptSavePath implements store.Prompter.
func (p *Prompter) PromptSavePath(ctx context.Context, title, defaultName string) (string, bool, error) {
	p.mu.Lock()
	p.calls = append(p.calls, PromptCall{Title: title, DefaultName: defaultName})
	var answer PromptAnswer
	if len(p.answers) > 0 {
		answer = p.answers[0]
		p.answers = p.answers[1:]
	}
	block := p.Block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	if answer.Err != nil {
		return "", false, answer.Err
	}
	return answer.Path, answer.Path != "", nil
}

// Calls returns every prompt request, in order.
func (p *Prompter) Calls() []PromptCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PromptCall(nil), p.calls...)
}

// Notification is one recorded user-visible notification.
type Notification struct {
	Level   notify.Level
	Message string
	ID      string
}

// Notifier records notifications.
type Notifier struct {
	mu        sync.Mutex
	seq       int
	shown     []Notification
	dismissed []string
}

// NewNotifier creates an empty recording notifier.
func NewNotifier() *Notifier { return &Notifier{} }

// Loading implements notify.Notifier.
func (n *Notifier) Loading(message string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	id := fmt.Sprintf("toast-%d", n.seq)
	n.shown = append(n.shown, Notification{Level: notify.LevelLoading, Message: message, ID: id})
	return id
}

// Dismiss implements notify.Notifier.
func (n *Notifier) Dismiss(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dismissed = append(n.dismissed, id)
}

// Success implements notify.Notifier.
func (n *Notifier) Success(message string) {
	n.record(notify.LevelSuccess, message)
}

// Error implements notify.Notifier.
func (n *Notifier) Error(message string) {
	n.record(notify.LevelError, message)
}

func (n *Notifier) record(level notify.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, Notification{Level: level, Message: message})
}

// Shown returns every notification, in order.
func (n *Notifier) Shown() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.shown...)
}

// Messages returns the messages shown at level.
func (n *Notifier) Messages(level notify.Level) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.shown {
		if s.Level == level {
			out = append(out, s.Message)
		}
	}
	return out
}

// Dismissed returns the dismissed handles, in order.
func (n *Notifier) Dismissed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.dismissed...)
}

// Sink records captured errors.
type Sink struct {
	mu   sync.Mutex
	errs []error
}

// NewSink creates an empty recording sink.
func NewSink() *Sink { return &Sink{} }

// Capture implements telemetry.Sink.
func (s *Sink) Capture(err error, _ ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// Errors returns every captured error.
func (s *Sink) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}
