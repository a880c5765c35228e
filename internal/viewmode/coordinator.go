// Package viewmode switches a document between its editing representations.
//
// A switch is always gated on a save: the Coordinator asks its Saver to
// persist pending edits and only swaps the engine's delegate once the save
// reports success through its callback. A failed, cancelled or panicking save
// leaves the previous representation in place.
package viewmode

import (
	"context"
	"fmt"
	"sync"

	"github.com/Iron-Ham/docsession/internal/engine"
	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/logging"
)

// Saver persists pending edits ahead of a switch. onSuccess must be invoked
// once the edits are durable or there was nothing to save.
type Saver interface {
	SaveBeforeSwitch(ctx context.Context, onSuccess func()) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, onSuccess func()) error

// SaveBeforeSwitch implements Saver.
func (f SaverFunc) SaveBeforeSwitch(ctx context.Context, onSuccess func()) error {
	return f(ctx, onSuccess)
}

// Host receives the side effects of a completed switch.
type Host interface {
	// Folder is the document's containing folder, used by the structured
	// delegate to resolve relative resource links.
	Folder() string
	// DelegateChanged records the engine's new content-producing delegate.
	DelegateChanged(d engine.Delegate)
	// PreviewReady receives the content shown by the read-only preview.
	PreviewReady(content string)
	// SourceViewReady receives the source surface handle once it is ready.
	SourceViewReady(view any)
}

// OutlineRefresher refreshes the document outline.
type OutlineRefresher interface {
	Schedule()
	RefreshNow()
}

// Coordinator owns the view mode of one document.
type Coordinator struct {
	engine  engine.Engine
	factory engine.DelegateFactory
	saver   Saver
	host    Host
	outline OutlineRefresher
	logger  *logging.Logger

	// toggleMu serializes whole toggles, save included.
	toggleMu sync.Mutex
	mu       sync.RWMutex
	mode     engine.Mode
}

// Config holds a Coordinator's collaborators. Outline and Logger are optional.
type Config struct {
	Engine  engine.Engine
	Factory engine.DelegateFactory
	Saver   Saver
	Host    Host
	Outline OutlineRefresher
	Logger  *logging.Logger
}

// New creates a Coordinator. The recorded mode starts as the engine's
// current representation.
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Coordinator{
		engine:  cfg.Engine,
		factory: cfg.Factory,
		saver:   cfg.Saver,
		host:    cfg.Host,
		outline: cfg.Outline,
		logger:  logger.WithComponent("viewmode"),
		mode:    cfg.Engine.Type(),
	}
}

// Mode returns the recorded view mode.
func (c *Coordinator) Mode() engine.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Toggle switches the document to target. It returns false with a nil error
// when the engine already displays target. When the gating save fails, is
// cancelled, or panics, no switch happens and the error wraps the cause
// (errors.ErrSaveIncomplete when the save ended without success).
func (c *Coordinator) Toggle(ctx context.Context, target engine.Mode) (bool, error) {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()

	if c.engine.Type() == target {
		return false, nil
	}

	saved := false
	if err := c.save(ctx, func() { saved = true }); err != nil {
		c.logger.Warn("view mode switch aborted", "target", target.String(), "error", err.Error())
		return false, errors.NewDocumentError("toggle view mode", err)
	}
	if !saved {
		c.logger.Debug("view mode switch skipped, save did not complete", "target", target.String())
		return false, errors.NewDocumentError("toggle view mode", errors.ErrSaveIncomplete)
	}

	c.apply(target)
	return true, nil
}

// save runs the gating save, converting a panic into an error.
func (c *Coordinator) save(ctx context.Context, onSuccess func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("save panicked: %v", r)
		}
	}()
	return c.saver.SaveBeforeSwitch(ctx, onSuccess)
}

func (c *Coordinator) apply(target engine.Mode) {
	switch target {
	case engine.ModeSourceText:
		d := c.factory.SourceText(func(view any) {
			c.host.SourceViewReady(view)
			if c.outline != nil {
				c.outline.RefreshNow()
			}
		})
		c.host.DelegateChanged(d)
		c.engine.SetDelegate(d)
	case engine.ModePreview:
		c.host.PreviewReady(c.engine.Content())
		c.scheduleOutline()
	default:
		d := c.factory.Structured(c.host.Folder())
		c.host.DelegateChanged(d)
		c.engine.SetDelegate(d)
		c.scheduleOutline()
	}

	c.mu.Lock()
	from := c.mode
	c.mode = target
	c.mu.Unlock()

	c.engine.ToggleType(target)
	c.logger.Info("view mode changed", "from", from.String(), "to", target.String())
}

func (c *Coordinator) scheduleOutline() {
	if c.outline != nil {
		c.outline.Schedule()
	}
}
