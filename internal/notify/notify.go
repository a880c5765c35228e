// Package notify delivers short user-facing notifications (progress, success,
// failure) for document operations.
package notify

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Iron-Ham/docsession/internal/logging"
)

// Level classifies a notification.
type Level int

const (
	LevelLoading Level = iota
	LevelSuccess
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelLoading:
		return "loading"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notifier shows notifications to the user. Implementations must be safe for
// concurrent use and must not block.
type Notifier interface {
	// Loading shows a progress indicator and returns its handle.
	Loading(message string) string
	// Dismiss removes the progress indicator with the given handle.
	Dismiss(id string)
	// Success shows a success notification.
	Success(message string)
	// Error shows a non-fatal error notification.
	Error(message string)
}

// LogNotifier writes notifications to a logger. It is the notifier used when
// no interactive surface is attached.
type LogNotifier struct {
	logger  *logging.Logger
	pending sync.Map // id -> message
	shown   atomic.Int64
}

// NewLogNotifier creates a LogNotifier. A nil logger discards output.
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &LogNotifier{logger: logger.WithComponent("notify")}
}

// Loading implements Notifier.
func (n *LogNotifier) Loading(message string) string {
	id := uuid.NewString()
	n.pending.Store(id, message)
	n.shown.Add(1)
	n.logger.Info(message, "level", LevelLoading.String(), "notification_id", id)
	return id
}

// Dismiss implements Notifier.
func (n *LogNotifier) Dismiss(id string) {
	if msg, ok := n.pending.LoadAndDelete(id); ok {
		n.logger.Debug("notification dismissed", "notification_id", id, "message", msg)
	}
}

// Success implements Notifier.
func (n *LogNotifier) Success(message string) {
	n.shown.Add(1)
	n.logger.Info(message, "level", LevelSuccess.String())
}

// Error implements Notifier.
func (n *LogNotifier) Error(message string) {
	n.shown.Add(1)
	n.logger.Error(message, "level", LevelError.String())
}

// Pending returns the number of progress indicators not yet dismissed.
func (n *LogNotifier) Pending() int {
	count := 0
	n.pending.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Shown returns the total number of notifications shown.
func (n *LogNotifier) Shown() int64 {
	return n.shown.Load()
}

// Multi fans notifications out to several notifiers. Loading handles are
// mapped so Dismiss reaches every target.
type Multi struct {
	targets []Notifier
	mu      sync.Mutex
	handles map[string][]string
}

// NewMulti creates a fan-out notifier.
func NewMulti(targets ...Notifier) *Multi {
	return &Multi{targets: targets, handles: make(map[string][]string)}
}

// Loading implements Notifier.
func (m *Multi) Loading(message string) string {
	ids := make([]string, len(m.targets))
	for i, t := range m.targets {
		ids[i] = t.Loading(message)
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.handles[id] = ids
	m.mu.Unlock()
	return id
}

// Dismiss implements Notifier.
func (m *Multi) Dismiss(id string) {
	m.mu.Lock()
	ids, ok := m.handles[id]
	delete(m.handles, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	for i, t := range m.targets {
		t.Dismiss(ids[i])
	}
}

// Success implements Notifier.
func (m *Multi) Success(message string) {
	for _, t := range m.targets {
		t.Success(message)
	}
}

// Error implements Notifier.
func (m *Multi) Error(message string) {
	for _, t := range m.targets {
		t.Error(message)
	}
}
