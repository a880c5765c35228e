// Package engine defines the boundary between a document session and the
// rich-content engine that renders and edits it.
//
// The engine itself is opaque: a session only needs change notifications, a
// way to serialize the engine's document state, and a way to swap the
// representation (delegate) the engine edits through. TextEngine is a plain
// markdown buffer implementing that boundary for the terminal front-end and
// tests.
package engine

import (
	"fmt"
	"strings"
)

// Mode is one of the mutually exclusive representations of a document.
type Mode int

const (
	// ModeStructured is rich structured editing.
	ModeStructured Mode = iota
	// ModeSourceText is plain source text editing.
	ModeSourceText
	// ModePreview is a read-only rendered preview.
	ModePreview
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeStructured:
		return "structured"
	case ModeSourceText:
		return "sourceText"
	case ModePreview:
		return "preview"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name back into a Mode. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structured", "wysiwyg":
		return ModeStructured, nil
	case "sourcetext", "source", "sourcecode":
		return ModeSourceText, nil
	case "preview":
		return ModePreview, nil
	default:
		return ModeStructured, fmt.Errorf("unknown view mode %q", s)
	}
}

// Modes returns every mode in display order.
func Modes() []Mode {
	return []Mode{ModeStructured, ModeSourceText, ModePreview}
}

// Next returns the mode after m, wrapping around.
func (m Mode) Next() Mode {
	return (m + 1) % Mode(len(Modes()))
}

// Doc is the engine's opaque document state. Only a Delegate knows how to
// turn it into text.
type Doc any

// Delegate is the content-producing side of one representation.
type Delegate interface {
	// Mode reports which representation this delegate serves.
	Mode() Mode
	// DocToString serializes doc into the document markup.
	DocToString(doc Doc) string
}

// DelegateFactory builds delegates for representation switches.
type DelegateFactory interface {
	// Structured builds a rich editing delegate that resolves relative
	// resource links against folder.
	Structured(folder string) Delegate
	// SourceText builds a source delegate. onViewReady runs once the
	// text-editing surface is ready, with an engine-specific view handle.
	SourceText(onViewReady func(view any)) Delegate
}

// ChangeEvent describes one change notification from the engine.
type ChangeEvent struct {
	Doc            Doc
	DocChanged     bool // the document tree changed
	FormattingOnly bool // mark-only change that does not alter the document
	UndoDepth      int
	CharacterCount int
	WordCount      int
}

// Semantic reports whether the change should mark the document dirty.
func (e ChangeEvent) Semantic() bool {
	return e.DocChanged && !e.FormattingOnly
}

// Engine is the surface a session drives.
type Engine interface {
	// Type returns the representation currently displayed.
	Type() Mode
	// ToggleType switches the displayed representation.
	ToggleType(mode Mode)
	// SetDelegate replaces the content-producing delegate.
	SetDelegate(d Delegate)
	// Content serializes the engine's current document.
	Content() string
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// CountCharacters counts runes, excluding line breaks.
func CountCharacters(s string) int {
	n := 0
	for _, r := range s {
		if r != '\n' && r != '\r' {
			n++
		}
	}
	return n
}
