// Package export converts a document to a standalone HTML page or a JPEG
// image and writes it to a user-chosen path.
//
// Each export follows the same flow: prompt for a destination, show a
// progress notification, render, write, then dismiss the progress and report
// success or failure. A cancelled prompt ends the export silently. Export
// failures are returned to the caller and reported once; they never touch
// the document's save state.
package export

import (
	"context"
	"strings"

	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/logging"
	"github.com/Iron-Ham/docsession/internal/notify"
	"github.com/Iron-Ham/docsession/internal/store"
)

// Export kinds.
const (
	KindImage = "image"
	KindHTML  = "html"
)

// Dialog titles.
const (
	TitleExportImage = "Export Image"
	TitleExportHTML  = "Export HTML"
)

// Source is the document being exported.
type Source struct {
	DocumentID string
	Name       string // file name, e.g. "note.md"
	Folder     string // containing folder, for relative links
	Content    string
}

// baseName returns the name up to its first dot, the stem used for default
// export file names.
func (s Source) baseName() string {
	name := s.Name
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		name = "document"
	}
	return name
}

// Exporter runs image and HTML exports.
type Exporter struct {
	gateway  store.Gateway
	prompter store.Prompter
	notifier notify.Notifier
	logger   *logging.Logger

	html       *HTMLRenderer
	rasterizer Rasterizer
	quality    int
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHTMLRenderer replaces the HTML renderer.
func WithHTMLRenderer(r *HTMLRenderer) Option {
	return func(e *Exporter) { e.html = r }
}

// WithRasterizer replaces the image rasterizer. A nil rasterizer makes image
// export fail with errors.ErrExportUnavailable.
func WithRasterizer(r Rasterizer) Option {
	return func(e *Exporter) { e.rasterizer = r }
}

// WithImageQuality sets the JPEG quality, 1-100.
func WithImageQuality(q int) Option {
	return func(e *Exporter) { e.quality = q }
}

// New creates an Exporter with an HTML renderer and text rasterizer using
// default settings.
func New(gateway store.Gateway, prompter store.Prompter, notifier notify.Notifier, opts ...Option) *Exporter {
	e := &Exporter{
		gateway:    gateway,
		prompter:   prompter,
		notifier:   notifier,
		logger:     logging.NopLogger(),
		html:       NewHTMLRenderer(),
		rasterizer: NewTextRasterizer(),
		quality:    DefaultImageQuality,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("export")
	return e
}

// ExportImage asks for a destination and writes src as a JPEG. Returns the
// written path, or "" if the user cancelled.
func (e *Exporter) ExportImage(ctx context.Context, src Source) (string, error) {
	return e.run(ctx, src, KindImage, TitleExportImage, src.baseName()+".jpg", func(path string) error {
		data, err := e.RenderImage(ctx, src)
		if err != nil {
			return err
		}
		return e.gateway.WriteBinary(ctx, path, data)
	})
}

// ExportHTML asks for a destination and writes src as a standalone HTML page.
// Returns the written path, or "" if the user cancelled.
func (e *Exporter) ExportHTML(ctx context.Context, src Source) (string, error) {
	return e.run(ctx, src, KindHTML, TitleExportHTML, src.baseName()+".html", func(path string) error {
		page, err := e.html.Render(src)
		if err != nil {
			return err
		}
		return e.gateway.Write(ctx, path, string(page))
	})
}

// RenderHTML renders src as a standalone HTML page without writing it.
func (e *Exporter) RenderHTML(src Source) ([]byte, error) {
	return e.html.Render(src)
}

// RenderImage rasterizes src and encodes it as JPEG without writing it.
func (e *Exporter) RenderImage(ctx context.Context, src Source) ([]byte, error) {
	if e.rasterizer == nil {
		return nil, errors.ErrExportUnavailable
	}
	img, err := e.rasterizer.Rasterize(ctx, src)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img, e.quality)
}

func (e *Exporter) run(ctx context.Context, src Source, kind, title, defaultName string, produce func(path string) error) (string, error) {
	log := e.logger.WithDocument(src.DocumentID).With("kind", kind)

	path, ok, err := e.prompter.PromptSavePath(ctx, title, defaultName)
	if err != nil {
		exportErr := errors.NewExportError(kind, "", err)
		e.notifier.Error(exportErr.Error())
		return "", exportErr
	}
	if !ok || path == "" {
		log.Debug("export cancelled")
		return "", nil
	}

	handle := e.notifier.Loading(title + "...")
	if err := produce(path); err != nil {
		e.notifier.Dismiss(handle)
		exportErr := errors.NewExportError(kind, path, err)
		e.notifier.Error(exportErr.Error())
		log.Warn("export failed", "path", path, "error", err.Error())
		return "", exportErr
	}

	e.notifier.Dismiss(handle)
	e.notifier.Success("Exported to " + path)
	log.Info("exported", "path", path)
	return path, nil
}
