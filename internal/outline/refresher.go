package outline

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Iron-Ham/docsession/internal/command"
	"github.com/Iron-Ham/docsession/internal/debounce"
	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/logging"
)

// DefaultDebounce is the quiet period before a scheduled refresh runs.
const DefaultDebounce = 1000 * time.Millisecond

// Refresher triggers the outline refresh command. Scheduled refreshes are
// debounced; RefreshNow runs immediately and drops any pending one.
type Refresher struct {
	commands *command.Registry
	timer    *debounce.Timer
	logger   *logging.Logger
	enabled  atomic.Bool
	runs     atomic.Int64
}

// NewRefresher creates a Refresher executing command.OutlineRefresh on
// commands. A nil clk uses the wall clock.
func NewRefresher(commands *command.Registry, clk clock.Clock, delay time.Duration, logger *logging.Logger) *Refresher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	r := &Refresher{
		commands: commands,
		logger:   logger.WithComponent("outline"),
	}
	r.enabled.Store(true)
	r.timer = debounce.New(clk, delay, r.run)
	return r
}

// SetEnabled turns refreshes on or off. Turning off drops a pending refresh.
func (r *Refresher) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
	if !enabled {
		r.timer.Cancel()
	}
}

// Schedule requests a refresh after the quiet period.
func (r *Refresher) Schedule() {
	if !r.enabled.Load() {
		return
	}
	r.timer.Reset()
}

// RefreshNow runs the refresh immediately.
func (r *Refresher) RefreshNow() {
	if !r.enabled.Load() {
		return
	}
	r.timer.Cancel()
	r.run()
}

// Pending reports whether a scheduled refresh has not run yet.
func (r *Refresher) Pending() bool {
	return r.timer.Pending()
}

// Runs returns how many refreshes were executed.
func (r *Refresher) Runs() int64 {
	return r.runs.Load()
}

// Stop drops any pending refresh and disables the refresher.
func (r *Refresher) Stop() {
	r.enabled.Store(false)
	r.timer.Stop()
}

func (r *Refresher) run() {
	r.runs.Add(1)
	if err := r.commands.Execute(command.OutlineRefresh); err != nil {
		if errors.Is(err, errors.ErrCommandNotFound) {
			r.logger.Debug("no outline handler registered")
			return
		}
		r.logger.Warn("outline refresh failed", "error", err.Error())
	}
}
