package engine

import (
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// TextDoc is the document state produced by TextEngine.
type TextDoc string

// StructuredDelegate serializes documents for rich editing. Output is
// normalized to LF line endings with exactly one trailing newline.
type StructuredDelegate struct {
	folder string
}

// NewStructuredDelegate creates a structured delegate resolving links
// against folder.
func NewStructuredDelegate(folder string) *StructuredDelegate {
	return &StructuredDelegate{folder: folder}
}

// Mode implements Delegate.
func (d *StructuredDelegate) Mode() Mode { return ModeStructured }

// Folder returns the folder relative links resolve against.
func (d *StructuredDelegate) Folder() string { return d.folder }

// DocToString implements Delegate.
func (d *StructuredDelegate) DocToString(doc Doc) string {
	text := docText(doc)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return ""
	}
	return text + "\n"
}

// ResolveLink resolves a relative resource link against the document folder
// and returns it with forward slashes. Absolute links, URLs, data URIs,
// fragments and links without a known folder are returned as-is.
func (d *StructuredDelegate) ResolveLink(href string) string {
	if d.folder == "" || href == "" || strings.Contains(href, "://") || strings.HasPrefix(href, "data:") ||
		strings.HasPrefix(href, "#") || path.IsAbs(href) || filepath.IsAbs(href) {
		return href
	}
	return filepath.ToSlash(filepath.Join(d.folder, filepath.FromSlash(href)))
}

// SourceDelegate serializes documents verbatim.
type SourceDelegate struct {
	onViewReady func(view any)
	once        sync.Once
}

// Mode implements Delegate.
func (d *SourceDelegate) Mode() Mode { return ModeSourceText }

// DocToString implements Delegate.
func (d *SourceDelegate) DocToString(doc Doc) string { return docText(doc) }

// ViewReady is called by the engine once the text surface is attached.
// The ready callback fires at most once.
func (d *SourceDelegate) ViewReady(view any) {
	if d.onViewReady == nil {
		return
	}
	d.once.Do(func() { d.onViewReady(view) })
}

// TextDelegates is the DelegateFactory for TextEngine.
type TextDelegates struct{}

// Structured implements DelegateFactory.
func (TextDelegates) Structured(folder string) Delegate {
	return NewStructuredDelegate(folder)
}

// SourceText implements DelegateFactory.
func (TextDelegates) SourceText(onViewReady func(view any)) Delegate {
	return &SourceDelegate{onViewReady: onViewReady}
}

func docText(doc Doc) string {
	switch v := doc.(type) {
	case TextDoc:
		return string(v)
	case string:
		return v
	case nil:
		return ""
	default:
		return ""
	}
}

// viewReadier is implemented by delegates that want the surface handle.
type viewReadier interface {
	ViewReady(view any)
}

// TextEngine is an in-process Engine over a plain text buffer with an undo
// history. It is safe for concurrent use; change callbacks run outside the
// engine lock.
type TextEngine struct {
	mu       sync.Mutex
	mode     Mode
	delegate Delegate
	text     string
	undo     []string
	onChange func(ChangeEvent)
}

// NewTextEngine creates an engine in structured mode holding text.
func NewTextEngine(text string, d Delegate) *TextEngine {
	if d == nil {
		d = &StructuredDelegate{}
	}
	return &TextEngine{
		mode:     d.Mode(),
		delegate: d,
		text:     text,
	}
}

// OnChange registers the change listener, replacing any previous one.
func (e *TextEngine) OnChange(fn func(ChangeEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// Type implements Engine.
func (e *TextEngine) Type() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// ToggleType implements Engine.
func (e *TextEngine) ToggleType(mode Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

// SetDelegate implements Engine. Source delegates are told the surface is
// ready once attached.
func (e *TextEngine) SetDelegate(d Delegate) {
	e.mu.Lock()
	e.delegate = d
	e.mu.Unlock()

	if r, ok := d.(viewReadier); ok {
		r.ViewReady(e)
	}
}

// Delegate returns the current delegate.
func (e *TextEngine) Delegate() Delegate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.delegate
}

// Content implements Engine.
func (e *TextEngine) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.delegate == nil {
		return e.text
	}
	return e.delegate.DocToString(TextDoc(e.text))
}

// Text returns the raw buffer.
func (e *TextEngine) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// Load replaces the buffer without emitting a change or touching history.
func (e *TextEngine) Load(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
	e.undo = nil
}

// SetText applies a user edit. Identical text still emits a notification
// with DocChanged=false.
func (e *TextEngine) SetText(text string) {
	e.mu.Lock()
	changed := text != e.text
	if changed {
		e.undo = append(e.undo, e.text)
		e.text = text
	}
	ev := e.eventLocked(changed, false)
	fn := e.onChange
	e.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
}

// ApplyMarks emits a formatting-only change that leaves the document intact.
func (e *TextEngine) ApplyMarks() {
	e.mu.Lock()
	ev := e.eventLocked(true, true)
	fn := e.onChange
	e.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
}

// Undo reverts the last edit. Returns false when history is empty.
func (e *TextEngine) Undo() bool {
	e.mu.Lock()
	if len(e.undo) == 0 {
		e.mu.Unlock()
		return false
	}
	e.text = e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	ev := e.eventLocked(true, false)
	fn := e.onChange
	e.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
	return true
}

// UndoDepth returns the number of undoable edits.
func (e *TextEngine) UndoDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo)
}

func (e *TextEngine) eventLocked(changed, formattingOnly bool) ChangeEvent {
	return ChangeEvent{
		Doc:            TextDoc(e.text),
		DocChanged:     changed,
		FormattingOnly: formattingOnly,
		UndoDepth:      len(e.undo),
		CharacterCount: CountCharacters(e.text),
		WordCount:      CountWords(e.text),
	}
}
