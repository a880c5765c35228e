// Package errors is the error vocabulary of docsession: sentinels for the
// session and file states callers branch on, typed errors that carry the
// document and path involved, and helpers that classify an error for the
// notification layer.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - DocumentError: errors tied to one open document session
//   - IOError: failures talking to the file store (exists, read, write)
//   - ExportError: failures of an image or HTML export
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
//	err := errors.NewIOError("write", "/docs/note.md", cause).WithDocumentID(id)
//
//	if errors.Is(err, errors.ErrInconsistentState) { ... }
//
//	var ioErr *errors.IOError
//	if errors.As(err, &ioErr) { ... }
//
//	if errors.IsUserFacing(err) { notifier.Error(err.Error()) }
//
// # Error Classification
//
// Errors carry a severity, a retryable flag and a user-facing flag. Nothing in
// docsession retries automatically; the retryable flag only tells the caller
// whether re-issuing the triggering action can help.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard library helpers, re-exported so callers need a single import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session-related sentinel errors
var (
	// ErrSessionNotFound indicates that no session is open for a document ID.
	ErrSessionNotFound = New("session not found")
	// ErrSessionClosed indicates that the session was destroyed.
	ErrSessionClosed = New("session is closed")
	// ErrInconsistentState indicates a save with neither editor nor cached content.
	ErrInconsistentState = New("no content to persist")
	// ErrSaveIncomplete indicates a save that settled without persisting
	// (dialog cancelled, another dialog already open).
	ErrSaveIncomplete = New("save did not complete")
)

// Store-related sentinel errors
var (
	// ErrFileNotExist indicates that a document path does not exist on disk.
	ErrFileNotExist = New("file does not exist")
	// ErrEmptyPath indicates an operation that needs a path was given none.
	ErrEmptyPath = New("empty path")
	// ErrPathInUse indicates that another open document already owns a path.
	ErrPathInUse = New("path is open in another document")
)

// Export and command sentinel errors
var (
	// ErrExportUnavailable indicates that no converter is configured for an export kind.
	ErrExportUnavailable = New("export unavailable")
	// ErrCommandNotFound indicates that no command is registered under an ID.
	ErrCommandNotFound = New("command not found")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// DomainError is the base interface for all docsession errors.
type DomainError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if re-issuing the operation may succeed.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// DocumentError represents errors scoped to one open document.
//
// Example:
//
//	err := errors.NewDocumentError("toggle view mode", errors.ErrSaveIncomplete)
//	err = err.WithDocumentID("abc123")
//	fmt.Println(err) // "document error [document=abc123]: toggle view mode: save did not complete"
type DocumentError struct {
	baseError
	DocumentID string
	Path       string
}

// NewDocumentError creates a new DocumentError.
func NewDocumentError(message string, cause error) *DocumentError {
	return &DocumentError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithDocumentID adds a document ID to the error context.
func (e *DocumentError) WithDocumentID(id string) *DocumentError {
	e.DocumentID = id
	return e
}

// WithPath adds a file path to the error context.
func (e *DocumentError) WithPath(path string) *DocumentError {
	e.Path = path
	return e
}

// WithSeverity sets the error severity.
func (e *DocumentError) WithSeverity(s Severity) *DocumentError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *DocumentError) Error() string {
	var parts []string
	if e.DocumentID != "" {
		parts = append(parts, fmt.Sprintf("document=%s", e.DocumentID))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}

	prefix := "document error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("document error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *DocumentError) Is(target error) bool {
	if _, ok := target.(*DocumentError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// IOError represents a failed file store operation. The store performs no
// retries; a user may re-issue the triggering action.
//
// Example:
//
//	err := errors.NewIOError("write", "/docs/note.md", fs.ErrPermission)
//	fmt.Println(err) // "write /docs/note.md: permission denied"
type IOError struct {
	baseError
	Op         string
	Path       string
	DocumentID string
}

// NewIOError creates a new IOError.
func NewIOError(op, path string, cause error) *IOError {
	return &IOError{
		baseError: baseError{
			message:    op,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
		Op:   op,
		Path: path,
	}
}

// WithDocumentID adds a document ID to the error context.
func (e *IOError) WithDocumentID(id string) *IOError {
	e.DocumentID = id
	return e
}

// Error returns the formatted error message.
func (e *IOError) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Path)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *IOError) Is(target error) bool {
	if _, ok := target.(*IOError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ExportError represents a failed image or HTML export. Export failures are
// isolated from the save machinery.
type ExportError struct {
	baseError
	Kind string // "image" or "html"
	Path string
}

// NewExportError creates a new ExportError.
func NewExportError(kind, path string, cause error) *ExportError {
	return &ExportError{
		baseError: baseError{
			message:    fmt.Sprintf("export %s", kind),
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Kind: kind,
		Path: path,
	}
}

// Error returns the formatted error message.
func (e *ExportError) Error() string {
	prefix := fmt.Sprintf("export %s", e.Kind)
	if e.Path != "" {
		prefix = fmt.Sprintf("export %s to %s", e.Kind, e.Path)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return prefix
}

// Is checks if this error matches the target.
func (e *ExportError) Is(target error) bool {
	if _, ok := target.(*ExportError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("command", "editor:save")
//	fmt.Println(err) // "command 'editor:save' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			cause:      ErrInvalidInput,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField sets the field that failed validation.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue sets the invalid value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation error")
	if e.Field != "" {
		sb.WriteString(fmt.Sprintf(" [%s]", e.Field))
	}
	sb.WriteString(": ")
	sb.WriteString(e.message)
	if e.Value != nil {
		sb.WriteString(fmt.Sprintf(" (got: %v)", e.Value))
	}
	return sb.String()
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

func domainError(err error) (DomainError, bool) {
	var d DomainError
	if err == nil || !As(err, &d) {
		return nil, false
	}
	return d, true
}

// IsRetryable returns true if re-issuing the failed action may succeed.
func IsRetryable(err error) bool {
	d, ok := domainError(err)
	return ok && d.IsRetryable()
}

// IsUserFacing returns true if the error message is safe to show in a
// notification. Other errors are logged and replaced by a generic message.
func IsUserFacing(err error) bool {
	d, ok := domainError(err)
	return ok && d.IsUserFacing()
}

// GetSeverity returns the severity level of the error: SeverityDebug for nil
// and SeverityError for errors that don't implement DomainError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	if d, ok := domainError(err); ok {
		return d.Severity()
	}
	return SeverityError
}
