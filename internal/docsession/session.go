// Package docsession is the per-document session controller.
//
// A Session owns one open document: its dirty state, its autosave timer, its
// view-mode coordinator and its bus subscriptions. Every save trigger (the
// editor:save command, a broadcast save request, the autosave timer, a
// view-mode switch, save-all) converges on Session.Save. The Manager is the
// explicit registry of sessions, keyed by document ID.
package docsession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Iron-Ham/docsession/internal/autosave"
	"github.com/Iron-Ham/docsession/internal/command"
	"github.com/Iron-Ham/docsession/internal/counter"
	"github.com/Iron-Ham/docsession/internal/dirty"
	"github.com/Iron-Ham/docsession/internal/document"
	"github.com/Iron-Ham/docsession/internal/engine"
	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/event"
	"github.com/Iron-Ham/docsession/internal/export"
	"github.com/Iron-Ham/docsession/internal/logging"
	"github.com/Iron-Ham/docsession/internal/viewmode"
)

// SaveDialogTitle is the title of the dialog asking where to save a new file.
const SaveDialogTitle = "Save File"

// saveFailedMessage replaces failure messages that are not fit for display.
const saveFailedMessage = "Could not save the document"

// SaveOptions controls one save.
type SaveOptions struct {
	// Active forces the save even when the session is not focused.
	Active bool
	// OnSuccess runs once the edits are on disk, or immediately when there
	// was nothing to save. It does not run on cancellation or failure.
	OnSuccess func()
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID                string
	Path              string
	Name              string
	Mode              engine.Mode
	Active            bool
	HasUnsavedChanges bool
	UndoDepth         int
	Missing           bool
	Counts            counter.Counts
	Autosave          bool
	AutosaveInterval  time.Duration
}

// Session is the live state of one open document.
type Session struct {
	id     string
	deps   *deps
	engine engine.Engine
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	autosave *autosave.Scheduler
	modes    *viewmode.Coordinator

	// writeMu is held from resolving the content to be written until the
	// dirty flag reflects the write.
	writeMu sync.Mutex

	mu         sync.Mutex
	active     bool
	closed     bool
	savingAs   bool
	editSeq    uint64
	doc        engine.Doc
	hasDoc     bool
	delegate   engine.Delegate
	preview    string
	sourceView any
}

func newSession(parent context.Context, d *deps, file document.File, eng engine.Engine) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:     file.ID,
		deps:   d,
		engine: eng,
		logger: d.logger.WithDocument(file.ID),
		ctx:    ctx,
		cancel: cancel,
	}

	s.delegate = d.factory.Structured(file.Folder())
	eng.SetDelegate(s.delegate)

	s.autosave = autosave.New(d.clock, d.autosaveInterval, d.autosaveEnabled, func() {
		if err := s.Save(s.ctx, SaveOptions{Active: true}); err != nil {
			s.logger.Debug("autosave did not complete", "error", err.Error())
		}
	})

	s.modes = viewmode.New(viewmode.Config{
		Engine:  eng,
		Factory: d.factory,
		Saver:   viewmode.SaverFunc(s.saveBeforeSwitch),
		Host:    sessionHost{s},
		Outline: d.outline,
		Logger:  s.logger,
	})
	return s
}

// ID returns the document ID.
func (s *Session) ID() string { return s.id }

// Engine returns the content engine driven by this session.
func (s *Session) Engine() engine.Engine { return s.engine }

// File returns a copy of the document's file object.
func (s *Session) File() document.File {
	f, _ := s.deps.files.Get(s.id)
	return f
}

// Mode returns the current view mode.
func (s *Session) Mode() engine.Mode { return s.modes.Mode() }

// Active reports whether the session is the focused one.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Missing reports whether the document's path is absent from disk.
func (s *Session) Missing() bool { return s.File().Missing }

// HasUnsavedChanges reports the dirty flag.
func (s *Session) HasUnsavedChanges() bool { return s.deps.dirty.IsDirty(s.id) }

// DisplayPath returns the full path, or "... / name" when full is false.
// Pathless documents have no display path.
func (s *Session) DisplayPath(full bool) string {
	f := s.File()
	if !f.HasPath() {
		return ""
	}
	if full {
		return f.Path
	}
	return "... / " + f.Name
}

// Preview returns the content captured by the last switch into preview.
func (s *Session) Preview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// SourceView returns the source surface handle, once ready.
func (s *Session) SourceView() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceView
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() Snapshot {
	f := s.File()
	st, _ := s.deps.dirty.Get(s.id)
	counts, _ := s.deps.counters.Get(s.id)
	return Snapshot{
		ID:                s.id,
		Path:              f.Path,
		Name:              f.Name,
		Mode:              s.Mode(),
		Active:            s.Active(),
		HasUnsavedChanges: st.HasUnsavedChanges,
		UndoDepth:         st.UndoDepth,
		Missing:           f.Missing,
		Counts:            counts,
		Autosave:          s.autosave.Enabled(),
		AutosaveInterval:  s.autosave.Interval(),
	}
}

// Content serializes the live document, falling back to the cached file
// content. ok is false when neither exists.
func (s *Session) Content() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveContentLocked()
}

func (s *Session) resolveContentLocked() (string, bool) {
	if s.hasDoc && s.delegate != nil {
		return s.delegate.DocToString(s.doc), true
	}
	f, _ := s.deps.files.Get(s.id)
	if f.Content != nil {
		return *f.Content, true
	}
	return "", false
}

// HandleChange processes one change notification from the engine. Counters
// are recorded for every session; everything else only for the active one.
// Formatting-only changes never mark the document dirty.
func (s *Session) HandleChange(ev engine.ChangeEvent) {
	s.deps.counters.Add(s.id, counter.Counts{
		Characters: ev.CharacterCount,
		Words:      ev.WordCount,
	})

	s.mu.Lock()
	if s.closed || !s.active {
		s.mu.Unlock()
		return
	}
	s.doc = ev.Doc
	s.hasDoc = true
	if !ev.Semantic() {
		s.mu.Unlock()
		return
	}
	s.editSeq++
	s.deps.dirty.Set(s.id, dirty.MarkDirty(ev.UndoDepth))
	s.mu.Unlock()

	s.deps.bus.Publish(event.NewDocumentDirtyEvent(s.id, ev.UndoDepth))
	if s.deps.outline != nil {
		s.deps.outline.Schedule()
	}
	s.autosave.NotifyEdit()
}

// HandleEngineError forwards an engine failure to the telemetry sink.
func (s *Session) HandleEngineError(err error) {
	if err == nil {
		return
	}
	s.logger.Error("engine error", "error", err.Error())
	s.deps.telemetry.Capture(err, "document_id", s.id)
}

// Save persists the document's pending edits.
//
// A non-forced save on a background session does nothing. A save with no
// pending edits only runs OnSuccess. A pathless document asks for a path
// first; a cancelled dialog leaves it dirty and returns nil. I/O failures are
// reported to the user, leave the document dirty, and are returned.
func (s *Session) Save(ctx context.Context, opts SaveOptions) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.ErrSessionClosed
	}
	if !s.active && !opts.Active {
		s.mu.Unlock()
		return nil
	}

	if !s.deps.dirty.IsDirty(s.id) {
		s.mu.Unlock()
		runCallback(opts.OnSuccess)
		return nil
	}
	if _, ok := s.resolveContentLocked(); !ok {
		s.mu.Unlock()
		s.logger.Warn("save aborted", "error", errors.ErrInconsistentState.Error())
		return nil
	}
	s.mu.Unlock()

	s.autosave.Cancel()

	f := s.File()
	if !f.HasPath() {
		return s.saveAs(ctx, f, opts.OnSuccess)
	}
	return s.write(ctx, f.Path, false, opts.OnSuccess)
}

func (s *Session) saveAs(ctx context.Context, f document.File, onSuccess func()) error {
	s.mu.Lock()
	if s.savingAs {
		s.mu.Unlock()
		s.logger.Debug("save dialog already open")
		return nil
	}
	s.savingAs = true
	s.mu.Unlock()

	path, ok, err := s.deps.prompter.PromptSavePath(ctx, SaveDialogTitle, s.defaultSaveName(f))

	s.mu.Lock()
	s.savingAs = false
	s.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil || s.ctx.Err() != nil {
			s.logger.Debug("save dialog abandoned", "error", err.Error())
			return nil
		}
		ioErr := errors.NewIOError("prompt", "", err).WithDocumentID(s.id)
		s.notifyFailure(ioErr)
		s.logger.Warn("save dialog failed", "error", err.Error())
		return ioErr
	}
	if !ok {
		s.logger.Debug("save dialog cancelled")
		return nil
	}

	updated, err := s.deps.files.SetPath(s.id, path)
	if err != nil {
		docErr := errors.NewDocumentError("save as", err).
			WithDocumentID(s.id).
			WithPath(path).
			WithSeverity(errors.SeverityWarning)
		s.notifyFailure(docErr)
		s.logger.Warn("save as rejected", "path", path, "error", err.Error())
		return docErr
	}
	s.logger.Info("document path assigned", "path", updated.Path)

	if s.deps.tree != nil {
		s.deps.tree.Insert(updated.Path)
	}
	if s.deps.watcher != nil {
		if err := s.deps.watcher.Add(updated.Path); err != nil {
			s.logger.Debug("watch failed", "path", updated.Path, "error", err.Error())
		}
	}

	return s.write(ctx, updated.Path, true, onSuccess)
}

func (s *Session) defaultSaveName(f document.File) string {
	if f.Name != "" && f.Name != s.deps.files.UntitledName() {
		return f.Name
	}
	return s.deps.files.UntitledName() + s.deps.defaultExtension
}

// write persists the newest content to path. Overlapping writes run one at a
// time, and each resolves the content only once it holds writeMu, so a
// superseded write can never land after a newer one.
func (s *Session) write(ctx context.Context, path string, savedAs bool, onSuccess func()) error {
	s.writeMu.Lock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return errors.ErrSessionClosed
	}
	if !s.deps.dirty.IsDirty(s.id) {
		s.mu.Unlock()
		s.writeMu.Unlock()
		s.logger.Debug("edits already written by an overlapping save")
		runCallback(onSuccess)
		return nil
	}
	content, ok := s.resolveContentLocked()
	seq := s.editSeq
	s.mu.Unlock()
	if !ok {
		s.writeMu.Unlock()
		s.logger.Warn("save aborted", "error", errors.ErrInconsistentState.Error())
		return nil
	}

	err := s.deps.gateway.Write(ctx, path, content)
	superseded := false
	if err == nil {
		s.deps.files.SetContent(s.id, content)
		s.deps.files.SetMissing(s.id, false)

		s.mu.Lock()
		superseded = s.editSeq != seq
		if !superseded {
			s.deps.dirty.Set(s.id, dirty.MarkClean())
		}
		s.mu.Unlock()
	}
	s.writeMu.Unlock()

	if err != nil {
		s.notifyFailure(err)
		s.deps.bus.Publish(event.NewSaveFailedEvent(s.id, path, err))
		s.logger.Warn("save failed", "path", path, "error", err.Error())
		return err
	}
	if superseded {
		s.logger.Debug("edits arrived during save, keeping dirty flag")
	}

	s.logger.Info("document saved", "path", path, "bytes", len(content), "saved_as", savedAs)
	s.deps.bus.Publish(event.NewDocumentSavedEvent(s.id, path, len(content), savedAs))
	runCallback(onSuccess)
	return nil
}

// notifyFailure shows err to the user. Errors not fit for display are
// replaced by a generic message.
func (s *Session) notifyFailure(err error) {
	if errors.IsUserFacing(err) {
		s.deps.notifier.Error(err.Error())
		return
	}
	s.deps.notifier.Error(saveFailedMessage)
}

func (s *Session) saveBeforeSwitch(ctx context.Context, onSuccess func()) error {
	return s.Save(ctx, SaveOptions{Active: true, OnSuccess: onSuccess})
}

// ToggleMode switches the view mode after saving. Only the active session
// switches. Returns whether a switch happened.
func (s *Session) ToggleMode(ctx context.Context, target engine.Mode) (bool, error) {
	if !s.Active() {
		return false, nil
	}
	from := s.Mode()
	switched, err := s.modes.Toggle(ctx, target)
	if err != nil {
		var docErr *errors.DocumentError
		if errors.As(err, &docErr) {
			docErr.WithDocumentID(s.id)
		}
		return false, err
	}
	if switched {
		s.deps.bus.Publish(event.NewViewModeChangedEvent(s.id, from, target))
	}
	return switched, nil
}

// ExportImage exports the document as a JPEG. Only the active session
// exports. Returns the written path, or "" when nothing was written.
func (s *Session) ExportImage(ctx context.Context) (string, error) {
	return s.runExport(ctx, export.KindImage, s.deps.exporter.ExportImage)
}

// ExportHTML exports the document as a standalone HTML page. Only the active
// session exports.
func (s *Session) ExportHTML(ctx context.Context) (string, error) {
	return s.runExport(ctx, export.KindHTML, s.deps.exporter.ExportHTML)
}

func (s *Session) runExport(ctx context.Context, kind string, run func(context.Context, export.Source) (string, error)) (string, error) {
	if !s.Active() {
		return "", nil
	}
	if s.deps.exporter == nil {
		return "", errors.NewExportError(kind, "", errors.ErrExportUnavailable)
	}

	f := s.File()
	content, _ := s.Content()
	path, err := run(ctx, export.Source{
		DocumentID: s.id,
		Name:       f.Name,
		Folder:     f.Folder(),
		Content:    content,
	})
	if err != nil {
		s.deps.bus.Publish(event.NewExportFailedEvent(s.id, kind, err))
		return "", err
	}
	if path != "" {
		s.deps.bus.Publish(event.NewExportCompletedEvent(s.id, kind, path))
	}
	return path, nil
}

// SetActive focuses or unfocuses the session. Focusing binds the editor:save
// command to this session and schedules an outline refresh. Unfocusing drops
// the binding and cancels a pending autosave.
func (s *Session) SetActive(active bool) {
	s.mu.Lock()
	if s.closed || s.active == active {
		s.mu.Unlock()
		return
	}
	s.active = active
	s.mu.Unlock()

	if active {
		s.deps.commands.Add(command.Command{
			ID:    command.EditorSave,
			Owner: s.id,
			Handler: func() error {
				return s.Save(s.ctx, SaveOptions{})
			},
		})
		if s.deps.outline != nil {
			s.deps.outline.Schedule()
		}
		return
	}

	s.deps.commands.RemoveOwned(s.id)
	s.autosave.Cancel()
}

// SetAutosave updates the autosave policy. Disabling cancels a pending save.
// A non-positive interval keeps the current one.
func (s *Session) SetAutosave(enabled bool, interval time.Duration) {
	if interval > 0 {
		s.autosave.SetInterval(interval)
	}
	s.autosave.SetEnabled(enabled)
}

// AutosavePending reports whether an autosave is scheduled.
func (s *Session) AutosavePending() bool { return s.autosave.Pending() }

// Reload replaces the document content with what is on disk. Dirty sessions
// are left alone and false is returned.
func (s *Session) Reload(ctx context.Context) (bool, error) {
	f := s.File()
	if !f.HasPath() {
		return false, nil
	}
	s.mu.Lock()
	seq := s.editSeq
	s.mu.Unlock()
	if s.HasUnsavedChanges() {
		return false, nil
	}

	content, err := s.deps.gateway.Read(ctx, f.Path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.closed || s.editSeq != seq || s.deps.dirty.IsDirty(s.id) {
		s.mu.Unlock()
		s.logger.Debug("edits arrived during reload, keeping local content")
		return false, nil
	}
	s.deps.files.SetContent(s.id, content)
	s.deps.files.SetMissing(s.id, false)
	s.hasDoc = false
	s.doc = nil
	s.mu.Unlock()
	if l, ok := s.engine.(contentLoader); ok {
		l.Load(content)
	}
	s.logger.Info("document reloaded", "path", f.Path)
	return true, nil
}

// Close destroys the session. Timers, command bindings, bus subscriptions,
// counters and dirty state are released. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.active = false
	s.mu.Unlock()

	s.cancel()
	s.autosave.Stop()
	s.deps.bus.ReleaseOwner(s.id)
	s.deps.commands.RemoveOwned(s.id)
	s.deps.counters.Delete(s.id)
	s.deps.dirty.Delete(s.id)

	f := s.File()
	if s.deps.watcher != nil && f.HasPath() {
		s.deps.watcher.Remove(f.Path)
	}
	s.deps.files.Remove(s.id)
	s.logger.Info("session closed")
}

// subscribe wires the broadcast requests this session reacts to. The
// subscriptions are owned by the session ID and released by Close.
func (s *Session) subscribe() {
	bus := s.deps.bus
	event.OnOwned(bus, s.id, event.TypeSaveRequested, func(e event.SaveRequestedEvent) {
		if err := s.Save(s.ctx, SaveOptions{OnSuccess: e.OnSuccess}); err != nil {
			s.logger.Debug("requested save did not complete", "error", err.Error())
		}
	})
	event.OnOwned(bus, s.id, event.TypeModeToggleRequested, func(e event.ModeToggleRequestedEvent) {
		if _, err := s.ToggleMode(s.ctx, e.Mode); err != nil {
			s.logger.Debug("view mode switch did not complete", "error", err.Error())
		}
	})
	event.OnOwned(bus, s.id, event.TypeExportImageRequested, func(event.ExportImageRequestedEvent) {
		_, _ = s.ExportImage(s.ctx)
	})
	event.OnOwned(bus, s.id, event.TypeExportHTMLRequested, func(event.ExportHTMLRequestedEvent) {
		_, _ = s.ExportHTML(s.ctx)
	})
}

func (s *Session) String() string {
	return fmt.Sprintf("Session(%s)", s.id)
}

func runCallback(fn func()) {
	if fn != nil {
		fn()
	}
}

// contentLoader is implemented by engines that accept wholesale content
// replacement without recording an edit.
type contentLoader interface {
	Load(content string)
}

// changeSource is implemented by engines that report edits.
type changeSource interface {
	OnChange(fn func(engine.ChangeEvent))
}

// sessionHost adapts a Session to viewmode.Host.
type sessionHost struct{ s *Session }

func (h sessionHost) Folder() string { return h.s.File().Folder() }

func (h sessionHost) DelegateChanged(d engine.Delegate) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.delegate = d
}

func (h sessionHost) PreviewReady(content string) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.preview = content
}

func (h sessionHost) SourceViewReady(view any) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.sourceView = view
}
