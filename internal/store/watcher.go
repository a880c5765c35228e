package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/docsession/internal/event"
	"github.com/Iron-Ham/docsession/internal/logging"
)

// Default watcher timings.
const (
	DefaultSettleDelay  = 50 * time.Millisecond
	DefaultExpectWindow = 2 * time.Second
)

// Watcher watches open document files for removal or modification by other
// programs and publishes event.FileRemovedEvent / event.FileChangedEvent.
// Changes caused by this process's own writes are suppressed via Expect.
type Watcher struct {
	watcher *fsnotify.Watcher
	bus     *event.Bus
	logger  *logging.Logger
	clock   clock.Clock

	settle time.Duration
	window time.Duration

	mu       sync.Mutex
	files    map[string]struct{}  // watched file paths
	dirs     map[string]int       // watched directory -> number of files in it
	expected map[string]time.Time // path -> suppress changes until

	stopCh   chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithClock sets the clock used for settling and expectations.
func WithClock(clk clock.Clock) WatcherOption {
	return func(w *Watcher) { w.clock = clk }
}

// WithSettleDelay sets how long events are collected before they are
// classified. Editors often emit several events for one save.
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.settle = d }
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a Watcher publishing to bus. Call Start to begin
// processing and Stop to release it.
func NewWatcher(bus *event.Bus, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		bus:      bus,
		logger:   logging.NopLogger(),
		clock:    clock.New(),
		settle:   DefaultSettleDelay,
		window:   DefaultExpectWindow,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]int),
		expected: make(map[string]time.Time),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithComponent("watcher")
	return w, nil
}

// Add starts watching the file at path. fsnotify watches directories, so the
// containing directory is added once and shared.
func (w *Watcher) Add(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[path]; ok {
		return nil
	}
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[path] = struct{}{}
	return nil
}

// Remove stops watching the file at path.
func (w *Watcher) Remove(path string) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[path]; !ok {
		return
	}
	delete(w.files, path)
	delete(w.expected, path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.watcher.Remove(dir)
	}
}

// Watching reports whether path is watched.
func (w *Watcher) Watching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[filepath.Clean(path)]
	return ok
}

// Expect suppresses change notifications for path for a short window. The
// gateway calls it after each write it performs.
func (w *Watcher) Expect(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expected[filepath.Clean(path)] = w.clock.Now().Add(w.window)
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

// watchLoop collects events and classifies them once they settle.
func (w *Watcher) watchLoop() {
	settleTimer := w.clock.Timer(w.settle)
	settleTimer.Stop()

	pending := make(map[string]struct{})

	for {
		select {
		case <-w.stopCh:
			settleTimer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Clean(ev.Name)
			if !w.Watching(name) {
				continue
			}
			pending[name] = struct{}{}
			settleTimer.Reset(w.settle)

		case <-settleTimer.C:
			batch := pending
			pending = make(map[string]struct{})
			for name := range batch {
				w.classify(name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err.Error())
		}
	}
}

// classify publishes the settled state of a watched file.
func (w *Watcher) classify(path string) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			w.logger.Info("watched file removed", "path", path)
			w.bus.Publish(event.NewFileRemovedEvent(path))
		}
		return
	}

	w.mu.Lock()
	until, expected := w.expected[path]
	if expected && !w.clock.Now().Before(until) {
		delete(w.expected, path)
		expected = false
	}
	w.mu.Unlock()

	if expected {
		return
	}
	w.logger.Info("watched file changed externally", "path", path)
	w.bus.Publish(event.NewFileChangedEvent(path))
}
