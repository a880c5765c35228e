// Package telemetry receives unexpected errors for crash reporting. Capture
// is fire-and-forget: it never blocks and never fails.
package telemetry

import (
	"sync"

	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/logging"
)

// Sink receives error values.
type Sink interface {
	Capture(err error, attrs ...any)
}

// Nop discards everything.
type Nop struct{}

// Capture implements Sink.
func (Nop) Capture(error, ...any) {}

// LogSink records captured errors in the structured log, with severity taken
// from the error taxonomy, and keeps the most recent ones in memory.
type LogSink struct {
	logger *logging.Logger
	keep   int

	mu     sync.Mutex
	recent []error
	total  int
}

// DefaultKeep is the number of recent errors a LogSink retains.
const DefaultKeep = 20

// NewLogSink creates a LogSink retaining up to keep recent errors.
func NewLogSink(logger *logging.Logger, keep int) *LogSink {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &LogSink{logger: logger.WithComponent("telemetry"), keep: keep}
}

// Capture implements Sink. Nil errors are ignored.
func (s *LogSink) Capture(err error, attrs ...any) {
	if err == nil {
		return
	}

	s.mu.Lock()
	s.total++
	s.recent = append(s.recent, err)
	if len(s.recent) > s.keep {
		s.recent = s.recent[len(s.recent)-s.keep:]
	}
	s.mu.Unlock()

	args := append([]any{"error", err.Error(), "severity", errors.GetSeverity(err).String()}, attrs...)
	switch errors.GetSeverity(err) {
	case errors.SeverityDebug, errors.SeverityInfo:
		s.logger.Info("captured error", args...)
	case errors.SeverityWarning:
		s.logger.Warn("captured error", args...)
	default:
		s.logger.Error("captured error", args...)
	}
}

// Recent returns the retained errors, oldest first.
func (s *LogSink) Recent() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.recent))
	copy(out, s.recent)
	return out
}

// Total returns the number of errors captured since creation.
func (s *LogSink) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
