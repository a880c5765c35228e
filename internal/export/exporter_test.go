package export

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/notify"
	"github.com/Iron-Ham/docsession/internal/testutil"
)

func testSource() Source {
	return Source{
		DocumentID: "doc-1",
		Name:       "notes.v2.md",
		Folder:     "/docs",
		Content:    "# Notes\n\nSome *text*.\n",
	}
}

func TestExportHTML_WritesPage(t *testing.T) {
	gw := testutil.NewGateway(nil)
	prompter := testutil.NewPrompter("/out/notes.html")
	notifier := testutil.NewNotifier()
	e := New(gw, prompter, notifier)

	path, err := e.ExportHTML(context.Background(), testSource())
	if err != nil {
		t.Fatalf("ExportHTML() error: %v", err)
	}
	if path != "/out/notes.html" {
		t.Errorf("path = %q", path)
	}

	calls := prompter.Calls()
	if len(calls) != 1 {
		t.Fatalf("prompt calls = %d, want 1", len(calls))
	}
	if calls[0].Title != TitleExportHTML || calls[0].DefaultName != "notes.html" {
		t.Errorf("prompt = %+v", calls[0])
	}

	page, ok := gw.Content("/out/notes.html")
	if !ok {
		t.Fatal("page not written")
	}
	for _, want := range []string{"<!DOCTYPE html>", "<title>Document</title>", `<div class="markdown-body">`, "<em>text</em>"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}

	loading := notifier.Messages(notify.LevelLoading)
	if len(loading) != 1 || loading[0] != "Export HTML..." {
		t.Errorf("loading = %v", loading)
	}
	if len(notifier.Dismissed()) != 1 {
		t.Errorf("dismissed = %v, want one", notifier.Dismissed())
	}
	success := notifier.Messages(notify.LevelSuccess)
	if len(success) != 1 || success[0] != "Exported to /out/notes.html" {
		t.Errorf("success = %v", success)
	}
}

func TestExportImage_WritesJPEG(t *testing.T) {
	gw := testutil.NewGateway(nil)
	prompter := testutil.NewPrompter("/out/notes.jpg")
	notifier := testutil.NewNotifier()
	e := New(gw, prompter, notifier, WithImageQuality(80))

	if _, err := e.ExportImage(context.Background(), testSource()); err != nil {
		t.Fatalf("ExportImage() error: %v", err)
	}
	if calls := prompter.Calls(); calls[0].Title != TitleExportImage || calls[0].DefaultName != "notes.jpg" {
		t.Errorf("prompt = %+v", calls[0])
	}

	data, ok := gw.Content("/out/notes.jpg")
	if !ok {
		t.Fatal("image not written")
	}
	img, err := jpeg.Decode(bytes.NewReader([]byte(data)))
	if err != nil {
		t.Fatalf("written file is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 800 {
		t.Errorf("width = %d, want 800", img.Bounds().Dx())
	}
}

func TestExport_CancelledPromptDoesNothing(t *testing.T) {
	gw := testutil.NewGateway(nil)
	notifier := testutil.NewNotifier()
	e := New(gw, testutil.NewPrompter(), notifier)

	path, err := e.ExportHTML(context.Background(), testSource())
	if err != nil || path != "" {
		t.Fatalf("ExportHTML() = %q, %v; want cancel", path, err)
	}
	if gw.WriteCount() != 0 {
		t.Error("cancelled export should not write")
	}
	if len(notifier.Shown()) != 0 {
		t.Errorf("cancelled export should not notify, got %v", notifier.Shown())
	}
}

func TestExport_WriteFailureReported(t *testing.T) {
	gw := testutil.NewGateway(nil)
	gw.Fail("/ro/notes.html", stderrors.New("read-only file system"))
	notifier := testutil.NewNotifier()
	e := New(gw, testutil.NewPrompter("/ro/notes.html"), notifier)

	_, err := e.ExportHTML(context.Background(), testSource())
	if err == nil {
		t.Fatal("expected error")
	}
	var exportErr *errors.ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("error %T is not an ExportError", err)
	}
	if exportErr.Kind != KindHTML {
		t.Errorf("Kind = %q", exportErr.Kind)
	}

	if len(notifier.Dismissed()) != 1 {
		t.Error("loading notification should be dismissed on failure")
	}
	msgs := notifier.Messages(notify.LevelError)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "read-only file system") {
		t.Errorf("error notifications = %v", msgs)
	}
	if len(notifier.Messages(notify.LevelSuccess)) != 0 {
		t.Error("failed export should not report success")
	}
}

func TestExport_RasterizerFailure(t *testing.T) {
	gw := testutil.NewGateway(nil)
	notifier := testutil.NewNotifier()
	boom := stderrors.New("surface detached")
	e := New(gw, testutil.NewPrompter("/out/a.jpg"), notifier,
		WithRasterizer(RasterizerFunc(func(context.Context, Source) (image.Image, error) {
			return nil, boom
		})))

	_, err := e.ExportImage(context.Background(), testSource())
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped rasterizer error", err)
	}
	if gw.WriteCount() != 0 {
		t.Error("nothing should be written when rendering fails")
	}
}

func TestExport_NoRasterizer(t *testing.T) {
	e := New(testutil.NewGateway(nil), testutil.NewPrompter("/out/a.jpg"), testutil.NewNotifier(), WithRasterizer(nil))

	_, err := e.ExportImage(context.Background(), testSource())
	if !errors.Is(err, errors.ErrExportUnavailable) {
		t.Errorf("error = %v, want ErrExportUnavailable", err)
	}
}

func TestExport_PromptError(t *testing.T) {
	prompter := testutil.NewPrompter()
	prompter.Queue(testutil.PromptAnswer{Err: stderrors.New("dialog crashed")})
	notifier := testutil.NewNotifier()
	e := New(testutil.NewGateway(nil), prompter, notifier)

	if _, err := e.ExportHTML(context.Background(), testSource()); err == nil {
		t.Fatal("expected error")
	}
	if len(notifier.Messages(notify.LevelLoading)) != 0 {
		t.Error("no progress should be shown when the dialog fails")
	}
	if len(notifier.Messages(notify.LevelError)) != 1 {
		t.Error("dialog failure should be reported")
	}
}

func TestSource_BaseName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"notes.md", "notes"},
		{"notes.v2.md", "notes"},
		{"README", "README"},
		{"", "document"},
		{".hidden", "document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Source{Name: tt.name}).baseName(); got != tt.want {
				t.Errorf("baseName() = %q, want %q", got, tt.want)
			}
		})
	}
}
