package event

import (
	"time"

	"github.com/Iron-Ham/docsession/internal/engine"
)

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "editor.save_requested", "document.saved")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Event type names.
const (
	TypeSaveRequested        = "editor.save_requested"
	TypeSaveAllRequested     = "editor.save_all_requested"
	TypeModeToggleRequested  = "editor.toggle_requested"
	TypeExportImageRequested = "export.image_requested"
	TypeExportHTMLRequested  = "export.html_requested"

	TypeDocumentDirty   = "document.dirty"
	TypeDocumentSaved   = "document.saved"
	TypeSaveFailed      = "document.save_failed"
	TypeViewModeChanged = "document.mode_changed"

	TypeExportCompleted = "export.completed"
	TypeExportFailed    = "export.failed"

	TypeOutlineRefreshed = "outline.refreshed"

	TypeFileChanged = "file.changed"
	TypeFileRemoved = "file.removed"

	TypeSessionOpened  = "session.opened"
	TypeSessionFocused = "session.focused"
	TypeSessionClosed  = "session.closed"
)

// -----------------------------------------------------------------------------
// Inbound requests
// -----------------------------------------------------------------------------

// SaveRequestedEvent asks the focused session to save. Background sessions
// ignore it.
type SaveRequestedEvent struct {
	baseEvent
	OnSuccess func() // optional; runs once the save settles successfully
}

// NewSaveRequestedEvent creates a SaveRequestedEvent.
func NewSaveRequestedEvent(onSuccess func()) SaveRequestedEvent {
	return SaveRequestedEvent{
		baseEvent: newBaseEvent(TypeSaveRequested),
		OnSuccess: onSuccess,
	}
}

// SaveAllRequestedEvent asks every open session to persist its edits.
type SaveAllRequestedEvent struct {
	baseEvent
}

// NewSaveAllRequestedEvent creates a SaveAllRequestedEvent.
func NewSaveAllRequestedEvent() SaveAllRequestedEvent {
	return SaveAllRequestedEvent{baseEvent: newBaseEvent(TypeSaveAllRequested)}
}

// ModeToggleRequestedEvent asks the focused session to switch representation.
type ModeToggleRequestedEvent struct {
	baseEvent
	Mode engine.Mode
}

// NewModeToggleRequestedEvent creates a ModeToggleRequestedEvent.
func NewModeToggleRequestedEvent(mode engine.Mode) ModeToggleRequestedEvent {
	return ModeToggleRequestedEvent{
		baseEvent: newBaseEvent(TypeModeToggleRequested),
		Mode:      mode,
	}
}

// ExportImageRequestedEvent asks the focused session to export an image.
type ExportImageRequestedEvent struct {
	baseEvent
}

// NewExportImageRequestedEvent creates an ExportImageRequestedEvent.
func NewExportImageRequestedEvent() ExportImageRequestedEvent {
	return ExportImageRequestedEvent{baseEvent: newBaseEvent(TypeExportImageRequested)}
}

// ExportHTMLRequestedEvent asks the focused session to export HTML.
type ExportHTMLRequestedEvent struct {
	baseEvent
}

// NewExportHTMLRequestedEvent creates an ExportHTMLRequestedEvent.
func NewExportHTMLRequestedEvent() ExportHTMLRequestedEvent {
	return ExportHTMLRequestedEvent{baseEvent: newBaseEvent(TypeExportHTMLRequested)}
}

// -----------------------------------------------------------------------------
// Document state
// -----------------------------------------------------------------------------

// DocumentDirtyEvent is emitted when an edit marks a document as unsaved.
type DocumentDirtyEvent struct {
	baseEvent
	DocumentID string
	UndoDepth  int
}

// NewDocumentDirtyEvent creates a DocumentDirtyEvent.
func NewDocumentDirtyEvent(documentID string, undoDepth int) DocumentDirtyEvent {
	return DocumentDirtyEvent{
		baseEvent:  newBaseEvent(TypeDocumentDirty),
		DocumentID: documentID,
		UndoDepth:  undoDepth,
	}
}

// DocumentSavedEvent is emitted after a successful write.
type DocumentSavedEvent struct {
	baseEvent
	DocumentID string
	Path       string
	Bytes      int
	SavedAs    bool // the path was chosen through the save dialog
}

// NewDocumentSavedEvent creates a DocumentSavedEvent.
func NewDocumentSavedEvent(documentID, path string, bytes int, savedAs bool) DocumentSavedEvent {
	return DocumentSavedEvent{
		baseEvent:  newBaseEvent(TypeDocumentSaved),
		DocumentID: documentID,
		Path:       path,
		Bytes:      bytes,
		SavedAs:    savedAs,
	}
}

// SaveFailedEvent is emitted when a write fails.
type SaveFailedEvent struct {
	baseEvent
	DocumentID string
	Path       string
	Err        error
}

// NewSaveFailedEvent creates a SaveFailedEvent.
func NewSaveFailedEvent(documentID, path string, err error) SaveFailedEvent {
	return SaveFailedEvent{
		baseEvent:  newBaseEvent(TypeSaveFailed),
		DocumentID: documentID,
		Path:       path,
		Err:        err,
	}
}

// ViewModeChangedEvent is emitted after a representation switch commits.
type ViewModeChangedEvent struct {
	baseEvent
	DocumentID string
	From       engine.Mode
	To         engine.Mode
}

// NewViewModeChangedEvent creates a ViewModeChangedEvent.
func NewViewModeChangedEvent(documentID string, from, to engine.Mode) ViewModeChangedEvent {
	return ViewModeChangedEvent{
		baseEvent:  newBaseEvent(TypeViewModeChanged),
		DocumentID: documentID,
		From:       from,
		To:         to,
	}
}

// -----------------------------------------------------------------------------
// Export
// -----------------------------------------------------------------------------

// ExportCompletedEvent is emitted after an export file is written.
type ExportCompletedEvent struct {
	baseEvent
	DocumentID string
	Kind       string // "image" or "html"
	Path       string
}

// NewExportCompletedEvent creates an ExportCompletedEvent.
func NewExportCompletedEvent(documentID, kind, path string) ExportCompletedEvent {
	return ExportCompletedEvent{
		baseEvent:  newBaseEvent(TypeExportCompleted),
		DocumentID: documentID,
		Kind:       kind,
		Path:       path,
	}
}

// ExportFailedEvent is emitted when an export fails.
type ExportFailedEvent struct {
	baseEvent
	DocumentID string
	Kind       string
	Err        error
}

// NewExportFailedEvent creates an ExportFailedEvent.
func NewExportFailedEvent(documentID, kind string, err error) ExportFailedEvent {
	return ExportFailedEvent{
		baseEvent:  newBaseEvent(TypeExportFailed),
		DocumentID: documentID,
		Kind:       kind,
		Err:        err,
	}
}

// -----------------------------------------------------------------------------
// Outline
// -----------------------------------------------------------------------------

// OutlineRefreshedEvent is emitted when the document outline was rebuilt.
type OutlineRefreshedEvent struct {
	baseEvent
	DocumentID string
}

// NewOutlineRefreshedEvent creates an OutlineRefreshedEvent.
func NewOutlineRefreshedEvent(documentID string) OutlineRefreshedEvent {
	return OutlineRefreshedEvent{
		baseEvent:  newBaseEvent(TypeOutlineRefreshed),
		DocumentID: documentID,
	}
}

// -----------------------------------------------------------------------------
// Files on disk
// -----------------------------------------------------------------------------

// FileChangedEvent is emitted when a watched file is modified outside the
// editor.
type FileChangedEvent struct {
	baseEvent
	Path string
}

// NewFileChangedEvent creates a FileChangedEvent.
func NewFileChangedEvent(path string) FileChangedEvent {
	return FileChangedEvent{baseEvent: newBaseEvent(TypeFileChanged), Path: path}
}

// FileRemovedEvent is emitted when a watched file is removed or renamed away.
type FileRemovedEvent struct {
	baseEvent
	Path string
}

// NewFileRemovedEvent creates a FileRemovedEvent.
func NewFileRemovedEvent(path string) FileRemovedEvent {
	return FileRemovedEvent{baseEvent: newBaseEvent(TypeFileRemoved), Path: path}
}

// -----------------------------------------------------------------------------
// Session lifecycle
// -----------------------------------------------------------------------------

// SessionOpenedEvent is emitted when a document session is created.
type SessionOpenedEvent struct {
	baseEvent
	DocumentID string
	Path       string // empty for untitled documents
}

// NewSessionOpenedEvent creates a SessionOpenedEvent.
func NewSessionOpenedEvent(documentID, path string) SessionOpenedEvent {
	return SessionOpenedEvent{
		baseEvent:  newBaseEvent(TypeSessionOpened),
		DocumentID: documentID,
		Path:       path,
	}
}

// SessionFocusedEvent is emitted when a session becomes the active one.
type SessionFocusedEvent struct {
	baseEvent
	DocumentID string
}

// NewSessionFocusedEvent creates a SessionFocusedEvent.
func NewSessionFocusedEvent(documentID string) SessionFocusedEvent {
	return SessionFocusedEvent{baseEvent: newBaseEvent(TypeSessionFocused), DocumentID: documentID}
}

// SessionClosedEvent is emitted when a document session is destroyed.
type SessionClosedEvent struct {
	baseEvent
	DocumentID string
}

// NewSessionClosedEvent creates a SessionClosedEvent.
func NewSessionClosedEvent(documentID string) SessionClosedEvent {
	return SessionClosedEvent{baseEvent: newBaseEvent(TypeSessionClosed), DocumentID: documentID}
}
