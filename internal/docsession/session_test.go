package docsession

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/docsession/internal/command"
	"github.com/Iron-Ham/docsession/internal/dirty"
	"github.com/Iron-Ham/docsession/internal/engine"
	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/event"
	"github.com/Iron-Ham/docsession/internal/notify"
	"github.com/Iron-Ham/docsession/internal/testutil"
)

func TestSession_SaveIsIdempotent(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "alpha\n"})
	s := h.open(t, "/docs/a.md")
	edit(t, s, "alpha beta")

	calls := 0
	onSuccess := func() { calls++ }
	ctx := context.Background()

	if err := s.Save(ctx, SaveOptions{OnSuccess: onSuccess}); err != nil {
		t.Fatalf("first Save() error: %v", err)
	}
	if err := s.Save(ctx, SaveOptions{OnSuccess: onSuccess}); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}

	if got := h.gw.WriteCount(); got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}
	if calls != 2 {
		t.Errorf("onSuccess calls = %d, want 2", calls)
	}
	if s.HasUnsavedChanges() {
		t.Error("document should be clean after save")
	}
	if got, _ := h.gw.Content("/docs/a.md"); got != "alpha beta\n" {
		t.Errorf("written content = %q", got)
	}
}

func TestSession_SaveWithoutEditsRunsCallback(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "alpha\n"})
	s := h.open(t, "/docs/a.md")

	called := false
	if err := s.Save(context.Background(), SaveOptions{OnSuccess: func() { called = true }}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("onSuccess should run when there is nothing to save")
	}
	if h.gw.WriteCount() != 0 {
		t.Error("nothing should be written")
	}
}

func TestSession_AutosaveCollapsesBurst(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": ""})
	s := h.open(t, "/docs/a.md")

	for i, text := range []string{"a", "ab", "abc", "abcd", "abcde"} {
		edit(t, s, text)
		if i < 4 {
			h.clk.Add(500 * time.Millisecond)
		}
	}
	if h.gw.WriteCount() != 0 {
		t.Fatalf("autosave fired during the burst, writes = %d", h.gw.WriteCount())
	}
	if !s.AutosavePending() {
		t.Fatal("autosave should be pending after the last edit")
	}

	h.clk.Add(999 * time.Millisecond)
	if h.gw.WriteCount() != 0 {
		t.Fatal("autosave fired before the interval elapsed")
	}
	h.clk.Add(time.Millisecond)

	if !waitFor(t, func() bool { return h.gw.WriteCount() == 1 }) {
		t.Fatalf("writes = %d, want 1", h.gw.WriteCount())
	}
	if got, _ := h.gw.Content("/docs/a.md"); got != "abcde\n" {
		t.Errorf("autosaved content = %q", got)
	}

	h.clk.Add(5 * time.Second)
	time.Sleep(5 * time.Millisecond)
	if h.gw.WriteCount() != 1 {
		t.Errorf("writes = %d after quiet period, want exactly 1", h.gw.WriteCount())
	}
}

func TestSession_ExplicitSaveSupersedesAutosave(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": ""})
	s := h.open(t, "/docs/a.md")

	edit(t, s, "draft")
	if err := s.Save(context.Background(), SaveOptions{}); err != nil {
		t.Fatal(err)
	}
	if s.AutosavePending() {
		t.Error("explicit save should cancel the pending autosave")
	}
	h.clk.Add(2 * time.Second)
	time.Sleep(5 * time.Millisecond)
	if h.gw.WriteCount() != 1 {
		t.Errorf("writes = %d, want 1", h.gw.WriteCount())
	}
}

func TestSession_SetAutosaveOffCancels(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": ""})
	s := h.open(t, "/docs/a.md")

	edit(t, s, "x")
	s.SetAutosave(false, 0)
	h.clk.Add(2 * time.Second)
	time.Sleep(5 * time.Millisecond)

	if h.gw.WriteCount() != 0 {
		t.Error("disabled autosave must not write")
	}
	if !s.HasUnsavedChanges() {
		t.Error("dirty flag should remain")
	}

	s.SetAutosave(true, 200*time.Millisecond)
	edit(t, s, "xy")
	h.clk.Add(200 * time.Millisecond)
	if !waitFor(t, func() bool { return h.gw.WriteCount() == 1 }) {
		t.Error("re-enabled autosave should use the new interval")
	}
}

func TestSession_ToggleSavesBeforeSwitch(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "# A\n"})
	s := h.open(t, "/docs/a.md")
	edit(t, s, "# A\n\nmore")

	h.m.RequestModeToggle(engine.ModeSourceText)

	if s.Mode() != engine.ModeSourceText {
		t.Fatalf("Mode() = %v, want sourceText", s.Mode())
	}
	if h.gw.WriteCount() != 1 {
		t.Errorf("writes = %d, want 1", h.gw.WriteCount())
	}
	types := h.events.types()
	saved, changed := indexOf(types, event.TypeDocumentSaved), indexOf(types, event.TypeViewModeChanged)
	if saved < 0 || changed < 0 || saved > changed {
		t.Errorf("save must precede the mode change, events = %v", types)
	}
	if s.SourceView() == nil {
		t.Error("source view handle should be recorded")
	}
}

func TestSession_ToggleWriteFailureKeepsModeAndDirty(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "# A\n"})
	s := h.open(t, "/docs/a.md")
	edit(t, s, "changed")
	h.gw.Fail("/docs/a.md", stderrors.New("permission denied"))

	switched, err := s.ToggleMode(context.Background(), engine.ModePreview)
	if switched || err == nil {
		t.Fatalf("ToggleMode() = %v, %v; want failure", switched, err)
	}
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("error %v should wrap the IOError", err)
	}
	if s.Mode() != engine.ModeStructured {
		t.Errorf("Mode() = %v, want structured", s.Mode())
	}
	if !s.HasUnsavedChanges() {
		t.Error("failed save must keep the dirty flag")
	}
	if msgs := h.notifier.Messages(notify.LevelError); len(msgs) != 1 || !strings.Contains(msgs[0], "permission denied") {
		t.Errorf("error notifications = %v", msgs)
	}
	if h.events.count(event.TypeSaveFailed) != 1 {
		t.Error("expected one save_failed event")
	}
}

func TestSession_ToggleToPreviewCapturesContent(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "# A\n"})
	s := h.open(t, "/docs/a.md")

	switched, err := s.ToggleMode(context.Background(), engine.ModePreview)
	if err != nil || !switched {
		t.Fatalf("ToggleMode() = %v, %v", switched, err)
	}
	if s.Preview() != "# A\n" {
		t.Errorf("Preview() = %q", s.Preview())
	}
	if switched, _ := s.ToggleMode(context.Background(), engine.ModePreview); switched {
		t.Error("toggling into the current mode should be a no-op")
	}
}

func TestSession_SaveAsExampleScenario(t *testing.T) {
	h := newHarness(t, nil)
	s := h.openUntitled(t, "")
	h.prompter.Queue(promptPath("/docs/note.md"))

	edit(t, s, "hello")
	if !s.HasUnsavedChanges() {
		t.Fatal("edit should mark the document dirty")
	}

	if err := s.Save(context.Background(), SaveOptions{}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	writes := h.gw.Writes()
	if len(writes) != 1 || writes[0] != "/docs/note.md" {
		t.Fatalf("writes = %v, want [/docs/note.md]", writes)
	}
	if got, _ := h.gw.Content("/docs/note.md"); got != "hello\n" {
		t.Errorf("content = %q", got)
	}
	f := s.File()
	if f.Path != "/docs/note.md" || f.Name != "note.md" {
		t.Errorf("file = %+v", f)
	}
	if s.HasUnsavedChanges() {
		t.Error("document should be clean")
	}

	calls := h.prompter.Calls()
	if len(calls) != 1 || calls[0].Title != SaveDialogTitle || calls[0].DefaultName != "Untitled.md" {
		t.Errorf("prompt calls = %+v", calls)
	}

	// Second save goes straight to disk.
	edit(t, s, "hello again")
	if err := s.Save(context.Background(), SaveOptions{}); err != nil {
		t.Fatal(err)
	}
	if len(h.prompter.Calls()) != 1 {
		t.Error("a document with a path must not prompt again")
	}
	if h.gw.WriteCount() != 2 {
		t.Errorf("writes = %d, want 2", h.gw.WriteCount())
	}
	if s.DisplayPath(false) != "... / note.md" || s.DisplayPath(true) != "/docs/note.md" {
		t.Errorf("DisplayPath = %q / %q", s.DisplayPath(false), s.DisplayPath(true))
	}
}

func TestSession_SaveAsGuardsDuplicateDialogs(t *testing.T) {
	h := newHarness(t, nil)
	s := h.openUntitled(t, "")
	h.prompter.Block = make(chan struct{})
	h.prompter.Queue(promptPath("/docs/one.md"), promptPath("/docs/two.md"))
	edit(t, s, "text")

	done := make(chan error, 1)
	go func() { done <- s.Save(context.Background(), SaveOptions{}) }()

	if !waitFor(t, func() bool { return len(h.prompter.Calls()) == 1 }) {
		t.Fatal("first save never opened the dialog")
	}

	// A second trigger while the dialog is open does nothing.
	if err := s.Save(context.Background(), SaveOptions{}); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}
	if len(h.prompter.Calls()) != 1 {
		t.Fatalf("dialog opened %d times, want 1", len(h.prompter.Calls()))
	}

	close(h.prompter.Block)
	if err := <-done; err != nil {
		t.Fatalf("first Save() error: %v", err)
	}
	if writes := h.gw.Writes(); len(writes) != 1 || writes[0] != "/docs/one.md" {
		t.Errorf("writes = %v", writes)
	}
}

func TestSession_SaveAsCancelKeepsDirty(t *testing.T) {
	h := newHarness(t, nil)
	s := h.openUntitled(t, "")
	edit(t, s, "unsaved")

	called := false
	if err := s.Save(context.Background(), SaveOptions{OnSuccess: func() { called = true }}); err != nil {
		t.Fatalf("cancelled save should not error: %v", err)
	}
	if called {
		t.Error("onSuccess must not run on cancel")
	}
	if !s.HasUnsavedChanges() || s.File().HasPath() {
		t.Error("cancelled save must leave the document dirty and pathless")
	}
	if len(h.notifier.Shown()) != 0 {
		t.Errorf("cancel should not notify, got %v", h.notifier.Shown())
	}

	// A cancelled save also blocks a view switch.
	if switched, err := s.ToggleMode(context.Background(), engine.ModeSourceText); switched || !errors.Is(err, errors.ErrSaveIncomplete) {
		t.Errorf("ToggleMode() = %v, %v; want ErrSaveIncomplete", switched, err)
	}
}

func TestSession_SaveAsPathOwnedElsewhere(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "a\n"})
	h.open(t, "/docs/a.md")
	s := h.openUntitled(t, "")
	h.prompter.Queue(promptPath("/docs/a.md"))
	edit(t, s, "b")

	err := s.Save(context.Background(), SaveOptions{})
	if !errors.Is(err, errors.ErrPathInUse) {
		t.Fatalf("Save() error = %v, want ErrPathInUse", err)
	}
	if errors.GetSeverity(err) != errors.SeverityWarning {
		t.Errorf("severity = %v, want warning", errors.GetSeverity(err))
	}
	if s.File().HasPath() || !s.HasUnsavedChanges() {
		t.Error("rejected path must not be assigned")
	}
	if h.gw.WriteCount() != 0 {
		t.Error("nothing should be written")
	}
}

func TestSession_RoundTrip(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "one\n"})
	s := h.open(t, "/docs/a.md")
	edit(t, s, "two\r\nthree")
	if err := s.Save(context.Background(), SaveOptions{}); err != nil {
		t.Fatal(err)
	}
	written, _ := s.Content()

	if err := h.m.Close(s.ID()); err != nil {
		t.Fatal(err)
	}
	reopened := h.open(t, "/docs/a.md")
	got, ok := reopened.Content()
	if !ok || got != written {
		t.Errorf("reopened content = %q, want %q", got, written)
	}
}

func TestSession_BackgroundSaveIsNoOp(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "", "/docs/b.md": ""})
	a := h.open(t, "/docs/a.md")
	edit(t, a, "edited in a")
	b := h.open(t, "/docs/b.md")

	if a.Active() || !b.Active() {
		t.Fatal("b should be focused")
	}
	if a.AutosavePending() {
		t.Error("unfocusing should cancel the pending autosave")
	}

	called := false
	if err := a.Save(context.Background(), SaveOptions{OnSuccess: func() { called = true }}); err != nil {
		t.Fatal(err)
	}
	h.m.RequestSave(nil)

	if h.gw.WriteCount() != 0 {
		t.Errorf("background session wrote %v", h.gw.Writes())
	}
	if called {
		t.Error("background no-op must not run onSuccess")
	}
	if !a.HasUnsavedChanges() {
		t.Error("background session should stay dirty")
	}

	// Background edits are never autosaved; only a forced save persists them.
	h.clk.Add(5 * time.Second)
	time.Sleep(5 * time.Millisecond)
	if h.gw.WriteCount() != 0 {
		t.Error("background session must not autosave")
	}
	if err := a.Save(context.Background(), SaveOptions{Active: true}); err != nil {
		t.Fatal(err)
	}
	if h.gw.WriteCount() != 1 || a.HasUnsavedChanges() {
		t.Error("forced save should persist the background session")
	}
}

func TestSession_FormattingOnlyChangeDoesNotDirty(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "word\n"})
	s := h.open(t, "/docs/a.md")

	s.Engine().(*engine.TextEngine).ApplyMarks()
	if s.HasUnsavedChanges() {
		t.Error("formatting-only change marked the document dirty")
	}
	if s.AutosavePending() {
		t.Error("formatting-only change scheduled an autosave")
	}
	if c, ok := h.m.Counters().Get(s.ID()); !ok || c.Words != 1 {
		t.Errorf("counters = %+v, %v", c, ok)
	}
}

func TestSession_InactiveChangeRecordsCountersOnly(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "", "/docs/b.md": ""})
	a := h.open(t, "/docs/a.md")
	h.open(t, "/docs/b.md")

	edit(t, a, "three little words")
	if a.HasUnsavedChanges() {
		t.Error("inactive session should not become dirty")
	}
	if c, _ := h.m.Counters().Get(a.ID()); c.Words != 3 {
		t.Errorf("counters = %+v, want 3 words", c)
	}
}

func TestSession_InconsistentStateAborts(t *testing.T) {
	h := newHarness(t, nil)
	s := h.open(t, "/docs/gone.md")
	if !s.Missing() {
		t.Fatal("session for a missing file should be in the missing state")
	}

	h.m.Dirty().Set(s.ID(), dirty.MarkDirty(1))
	called := false
	if err := s.Save(context.Background(), SaveOptions{OnSuccess: func() { called = true }}); err != nil {
		t.Fatalf("inconsistent state should not surface an error: %v", err)
	}
	if called || h.gw.WriteCount() != 0 || len(h.notifier.Shown()) != 0 {
		t.Error("inconsistent state must abort without side effects")
	}
}

func TestSession_EditDuringWriteKeepsDirty(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": ""})
	s := h.open(t, "/docs/a.md")
	edit(t, s, "first")

	once := false
	h.gw.BeforeWrite = func(string) {
		if !once {
			once = true
			edit(t, s, "second")
		}
	}
	if err := s.Save(context.Background(), SaveOptions{}); err != nil {
		t.Fatal(err)
	}
	if !s.HasUnsavedChanges() {
		t.Error("an edit made during the write must keep the document dirty")
	}
	if got, _ := h.gw.Content("/docs/a.md"); got != "first\n" {
		t.Errorf("written = %q, want the content resolved at save time", got)
	}
}

func TestSession_OverlappingSavesKeepNewestContent(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": ""})
	s := h.open(t, "/docs/a.md")
	edit(t, s, "first")

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.gw.BeforeWrite = func(string) {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	first := make(chan error, 1)
	go func() { first <- s.Save(context.Background(), SaveOptions{}) }()
	<-entered

	edit(t, s, "second")
	second := make(chan error, 1)
	go func() { second <- s.Save(context.Background(), SaveOptions{}) }()

	select {
	case err := <-second:
		t.Fatalf("second save finished while the first write was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first Save() error: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second Save() error: %v", err)
	}

	if got, _ := h.gw.Content("/docs/a.md"); got != "second\n" {
		t.Errorf("disk = %q, want the newest content", got)
	}
	if s.HasUnsavedChanges() {
		t.Error("document should be clean once the newest content is written")
	}
	if f := s.File(); f.Content == nil || *f.Content != "second\n" {
		t.Errorf("cached content = %v, want the newest content", f.Content)
	}
}

func TestSession_CloseDuringSaveDialogIsSilent(t *testing.T) {
	h := newHarness(t, nil)
	s := h.openUntitled(t, "")
	h.prompter.Block = make(chan struct{})
	edit(t, s, "draft")

	done := make(chan error, 1)
	go func() { done <- h.m.Commands().Execute(command.EditorSave) }()
	if !waitFor(t, func() bool { return len(h.prompter.Calls()) == 1 }) {
		t.Fatal("save never opened the dialog")
	}

	if err := h.m.Close(s.ID()); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Errorf("abandoned save returned %v, want nil", err)
	}
	if msgs := h.notifier.Messages(notify.LevelError); len(msgs) != 0 {
		t.Errorf("closing during the dialog should not notify, got %v", msgs)
	}
	if h.gw.WriteCount() != 0 {
		t.Error("nothing should be written")
	}
}

func TestSession_InternalFailureShowsGenericMessage(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": ""}, func(c *Config) {
		c.Gateway = plainFailure{c.Gateway.(*testutil.Gateway)}
	})
	s := h.open(t, "/docs/a.md")
	edit(t, s, "text")

	if err := s.Save(context.Background(), SaveOptions{}); err == nil {
		t.Fatal("expected error")
	}
	msgs := h.notifier.Messages(notify.LevelError)
	if len(msgs) != 1 || msgs[0] != saveFailedMessage {
		t.Errorf("notifications = %v, want %q", msgs, saveFailedMessage)
	}
	if !s.HasUnsavedChanges() {
		t.Error("failed save must keep the document dirty")
	}
}

func TestSession_ReloadKeepsEditMadeDuringRead(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "disk\n"})
	s := h.open(t, "/docs/a.md")

	h.gw.BeforeRead = func(string) { edit(t, s, "local") }
	reloaded, err := s.Reload(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if reloaded {
		t.Error("Reload should report that it kept the local edit")
	}
	if te := s.Engine().(*engine.TextEngine); te.Text() != "local" {
		t.Errorf("engine text = %q, want the local edit", te.Text())
	}
	if !s.HasUnsavedChanges() {
		t.Error("local edit should keep the document dirty")
	}
}

func TestSession_EditorSaveCommandFollowsFocus(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "", "/docs/b.md": ""})
	a := h.open(t, "/docs/a.md")
	if owner, _ := h.m.Commands().Owner(command.EditorSave); owner != a.ID() {
		t.Errorf("editor:save owner = %q, want %q", owner, a.ID())
	}
	edit(t, a, "a")

	b := h.open(t, "/docs/b.md")
	if owner, _ := h.m.Commands().Owner(command.EditorSave); owner != b.ID() {
		t.Errorf("editor:save owner = %q, want %q", owner, b.ID())
	}
	edit(t, b, "b")

	if err := h.m.Commands().Execute(command.EditorSave); err != nil {
		t.Fatal(err)
	}
	if writes := h.gw.Writes(); len(writes) != 1 || writes[0] != "/docs/b.md" {
		t.Errorf("writes = %v, want only b", writes)
	}
}

func TestSession_EngineErrorsGoToTelemetry(t *testing.T) {
	h := newHarness(t, nil)
	s := h.openUntitled(t, "")
	boom := stderrors.New("schema violation")

	s.HandleEngineError(boom)
	s.HandleEngineError(nil)

	if errs := h.sink.Errors(); len(errs) != 1 || errs[0] != boom {
		t.Errorf("captured = %v", errs)
	}
}

func TestSession_ExportHTML(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "# Title\n"})
	s := h.open(t, "/docs/a.md")
	edit(t, s, "# Title\n\nunsaved")
	h.prompter.Queue(promptPath("/out/a.html"))

	h.m.RequestExportHTML()

	page, ok := h.gw.Content("/out/a.html")
	if !ok || !strings.Contains(page, "unsaved") {
		t.Fatalf("exported page = %q, %v", page, ok)
	}
	if calls := h.prompter.Calls(); calls[0].DefaultName != "a.html" {
		t.Errorf("default name = %q", calls[0].DefaultName)
	}
	if h.events.count(event.TypeExportCompleted) != 1 {
		t.Error("expected export.completed")
	}
	if !s.HasUnsavedChanges() {
		t.Error("export must not touch the dirty state")
	}
}

func TestSession_ExportFailureIsolated(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "x\n"})
	s := h.open(t, "/docs/a.md")
	edit(t, s, "y")
	h.gw.Fail("/out/a.jpg", stderrors.New("disk full"))
	h.prompter.Queue(promptPath("/out/a.jpg"))

	if _, err := s.ExportImage(context.Background()); err == nil {
		t.Fatal("expected export error")
	}
	if h.events.count(event.TypeExportFailed) != 1 {
		t.Error("expected export.failed")
	}
	if !s.HasUnsavedChanges() || !s.AutosavePending() {
		t.Error("export failure must not touch save state")
	}
}

func TestSession_InactiveDoesNotExport(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": "", "/docs/b.md": ""})
	a := h.open(t, "/docs/a.md")
	h.open(t, "/docs/b.md")

	path, err := a.ExportHTML(context.Background())
	if path != "" || err != nil {
		t.Errorf("ExportHTML() = %q, %v; want no-op", path, err)
	}
	if len(h.prompter.Calls()) != 0 {
		t.Error("inactive session must not prompt")
	}
}

func TestSession_CloseReleasesResources(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": ""})
	baseline := h.m.Bus().SubscriptionCount()
	s := h.open(t, "/docs/a.md")
	if h.m.Bus().OwnerCount(s.ID()) != 4 {
		t.Fatalf("session owns %d subscriptions, want 4", h.m.Bus().OwnerCount(s.ID()))
	}
	edit(t, s, "pending")

	if err := h.m.Close(s.ID()); err != nil {
		t.Fatal(err)
	}

	if got := h.m.Bus().SubscriptionCount(); got != baseline {
		t.Errorf("subscriptions = %d, want %d", got, baseline)
	}
	if _, ok := h.m.Commands().Owner(command.EditorSave); ok {
		t.Error("editor:save should be unbound")
	}
	if h.m.Counters().Len() != 0 || h.m.Files().Len() != 0 {
		t.Error("counters and file objects should be released")
	}
	if _, ok := h.m.Dirty().Get(s.ID()); ok {
		t.Error("dirty state should be released")
	}

	h.clk.Add(5 * time.Second)
	time.Sleep(5 * time.Millisecond)
	if h.gw.WriteCount() != 0 {
		t.Error("no autosave may fire against a closed session")
	}
	if err := s.Save(context.Background(), SaveOptions{Active: true}); !errors.Is(err, errors.ErrSessionClosed) {
		t.Errorf("Save() on closed session = %v", err)
	}
}

func TestSession_Snapshot(t *testing.T) {
	h := newHarness(t, map[string]string{"/docs/a.md": ""})
	s := h.open(t, "/docs/a.md")
	edit(t, s, "one two")

	snap := s.Snapshot()
	if snap.ID != s.ID() || snap.Path != "/docs/a.md" || snap.Name != "a.md" {
		t.Errorf("snapshot identity = %+v", snap)
	}
	if !snap.Active || !snap.HasUnsavedChanges || snap.UndoDepth != 1 {
		t.Errorf("snapshot state = %+v", snap)
	}
	if snap.Counts.Words != 2 || !snap.Autosave || snap.AutosaveInterval != time.Second {
		t.Errorf("snapshot counters/autosave = %+v", snap)
	}
}

func promptPath(path string) testutil.PromptAnswer { return testutil.PromptAnswer{Path: path} }

type plainFailure struct{ *testutil.Gateway }

func (plainFailure) Write(context.Context, string, string) error {
	return stderrors.New("encoder state corrupted")
}
