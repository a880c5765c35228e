package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Iron-Ham/docsession/internal/config"
	"github.com/Iron-Ham/docsession/internal/export"
	"github.com/Iron-Ham/docsession/internal/outline"
	"github.com/Iron-Ham/docsession/internal/testutil"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// setupTestEnvironment points the config and log directories at a temp dir
// and resets command flags after the test.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Cleanup(func() {
		exportOutput = ""
		outlineJSON = false
		configInitForce = false
		viper.Reset()
	})
	return testutil.SetupDocDir(t, map[string]string{
		"notes.md": "# Notes\n\nSome *text*.\n\n## Details\n\n- one\n- two\n",
	})
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "docsession" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "docsession")
	}

	expectedCmds := []string{"edit", "export", "outline", "config", "logs"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestExportHTMLCommand(t *testing.T) {
	dir := setupTestEnvironment(t)

	output, err := executeCommand(rootCmd, "export", "html", filepath.Join(dir, "notes.md"))
	if err != nil {
		t.Fatalf("export html failed: %v\n%s", err, output)
	}

	want := filepath.Join(dir, "notes.html")
	if !strings.Contains(output, "Exported to "+want) {
		t.Errorf("output = %q", output)
	}
	page := testutil.ReadFile(t, want)
	if !strings.Contains(page, "<h1") || !strings.Contains(page, "Notes") {
		t.Errorf("exported page missing heading:\n%s", page)
	}
	if !strings.Contains(page, "markdown-body") {
		t.Error("exported page should use the default class name")
	}
}

func TestExportImageCommand(t *testing.T) {
	dir := setupTestEnvironment(t)
	out := filepath.Join(dir, "rendered.jpg")

	if output, err := executeCommand(rootCmd, "export", "image", filepath.Join(dir, "notes.md"), "-o", out); err != nil {
		t.Fatalf("export image failed: %v\n%s", err, output)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	defer f.Close()
	if _, err := jpeg.DecodeConfig(f); err != nil {
		t.Errorf("output is not a JPEG: %v", err)
	}
}

func TestExportMissingDocument(t *testing.T) {
	dir := setupTestEnvironment(t)

	_, err := executeCommand(rootCmd, "export", "html", filepath.Join(dir, "absent.md"))
	if err == nil || !strings.Contains(err.Error(), "document not found") {
		t.Errorf("err = %v, want document not found", err)
	}
}

func TestDefaultExportPath(t *testing.T) {
	tests := []struct {
		src, kind, want string
	}{
		{"/docs/a.md", export.KindHTML, "/docs/a.html"},
		{"/docs/a.md", export.KindImage, "/docs/a.jpg"},
		{"/docs/README", export.KindHTML, "/docs/README.html"},
		{"/docs/v1.2/notes.markdown", export.KindImage, "/docs/v1.2/notes.jpg"},
	}
	for _, tt := range tests {
		if got := defaultExportPath(tt.src, tt.kind); got != tt.want {
			t.Errorf("defaultExportPath(%q, %q) = %q, want %q", tt.src, tt.kind, got, tt.want)
		}
	}
}

func TestOutlineCommand(t *testing.T) {
	dir := setupTestEnvironment(t)
	path := filepath.Join(dir, "notes.md")

	output, err := executeCommand(rootCmd, "outline", path)
	if err != nil {
		t.Fatalf("outline failed: %v", err)
	}
	if output != "- Notes\n  - Details\n" {
		t.Errorf("outline output = %q", output)
	}

	output, err = executeCommand(rootCmd, "outline", path, "--json")
	if err != nil {
		t.Fatalf("outline --json failed: %v", err)
	}
	var headings []outline.Heading
	if err := json.Unmarshal([]byte(output), &headings); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, output)
	}
	if len(headings) != 2 || headings[1].Level != 2 || headings[1].Text != "Details" {
		t.Errorf("headings = %+v", headings)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	setupTestEnvironment(t)

	output, err := executeCommand(rootCmd, "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(output, config.ConfigFile()) {
		t.Errorf("output = %q, want config path", output)
	}
	if _, err := os.Stat(config.ConfigFile()); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	if _, err := executeCommand(rootCmd, "config", "init"); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, err := executeCommand(rootCmd, "config", "init", "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}

	output, err = executeCommand(rootCmd, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"autosave_interval_ms: 1000", "default_view_mode: structured", "minify_html: true"} {
		if !strings.Contains(output, want) {
			t.Errorf("config show missing %q:\n%s", want, output)
		}
	}
}

func TestConfigSet(t *testing.T) {
	setupTestEnvironment(t)

	if _, err := executeCommand(rootCmd, "config", "set", "editor.unknown", "1"); err == nil {
		t.Error("unknown key should fail")
	}
	if _, err := executeCommand(rootCmd, "config", "set", "editor.autosave", "maybe"); err == nil {
		t.Error("non-boolean value should fail")
	}
	if _, err := executeCommand(rootCmd, "config", "set", "editor.default_view_mode", "split"); err == nil {
		t.Error("invalid view mode should fail validation")
	}

	output, err := executeCommand(rootCmd, "config", "set", "editor.autosave_interval_ms", "2500")
	if err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if !strings.Contains(output, "Set editor.autosave_interval_ms = 2500") {
		t.Errorf("output = %q", output)
	}
	if data := testutil.ReadFile(t, config.ConfigFile()); !strings.Contains(data, "2500") {
		t.Errorf("config file missing value:\n%s", data)
	}
}

func TestEditRequiresTerminal(t *testing.T) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		t.Skip("stdout is a terminal")
	}
	setupTestEnvironment(t)

	_, err := executeCommand(rootCmd, "edit")
	if !errors.Is(err, ErrNotTerminal) {
		t.Errorf("err = %v, want ErrNotTerminal", err)
	}
}

func TestLogFilter(t *testing.T) {
	now := time.Now()
	entries := []logEntry{
		{Time: now, Level: "INFO", Msg: "document saved", DocumentID: "doc-1"},
		{Time: now, Level: "DEBUG", Msg: "autosave scheduled", DocumentID: "doc-1"},
		{Time: now.Add(-2 * time.Hour), Level: "ERROR", Msg: "write failed", DocumentID: "doc-2"},
		{Time: now, Level: "WARN", Msg: "export failed", Extra: map[string]any{"kind": "html"}},
	}

	tests := []struct {
		name                          string
		level, since, grep, document string
		want                          []string
	}{
		{"no filter", "", "", "", "", []string{"document saved", "autosave scheduled", "write failed", "export failed"}},
		{"min level", "warn", "", "", "", []string{"write failed", "export failed"}},
		{"since", "", "1h", "", "", []string{"document saved", "autosave scheduled", "export failed"}},
		{"grep extra", "", "", "html", "", []string{"export failed"}},
		{"document", "", "", "", "doc-1", []string{"document saved", "autosave scheduled"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := newLogFilter(tt.level, tt.since, tt.grep, tt.document)
			if err != nil {
				t.Fatalf("newLogFilter() error: %v", err)
			}
			var got []string
			for i := range entries {
				if f.passes(&entries[i]) {
					got = append(got, entries[i].Msg)
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("passes = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := newLogFilter("", "soon", "", ""); err == nil {
		t.Error("invalid duration should fail")
	}
	if _, err := newLogFilter("", "", "(", ""); err == nil {
		t.Error("invalid pattern should fail")
	}
}

func TestReadLogEntries(t *testing.T) {
	input := strings.Join([]string{
		`{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"session opened","document_id":"abc","component":"docsession","path":"/docs/a.md"}`,
		`not json`,
		``,
		`{"time":"2026-01-02T10:00:01Z","level":"DEBUG","msg":"noise"}`,
	}, "\n")

	f, _ := newLogFilter("info", "", "", "")
	got, err := readLogEntries(strings.NewReader(input), f)
	if err != nil {
		t.Fatalf("readLogEntries() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2: %q", len(got), got)
	}
	for _, want := range []string{"session opened", "document_id=abc", "docsession:", "path=", "/docs/a.md"} {
		if !strings.Contains(got[0], want) {
			t.Errorf("formatted entry missing %q: %q", want, got[0])
		}
	}
	if got[1] != "not json" {
		t.Errorf("raw line = %q", got[1])
	}
}
