package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/docsession/internal/docsession"
	"github.com/Iron-Ham/docsession/internal/export"
	"github.com/Iron-Ham/docsession/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a document to HTML or an image",
	Long: `Export a markdown document without opening the editor.

The output defaults to the document's name with the export extension, next
to the document.

Examples:
  # Write notes.html next to notes.md
  docsession export html notes.md

  # Write a JPEG of the document to a chosen path
  docsession export image notes.md -o /tmp/notes.jpg`,
}

var exportHTMLCmd = &cobra.Command{
	Use:   "html <file>",
	Short: "Export a document as a standalone HTML page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, args[0], export.KindHTML)
	},
}

var exportImageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Export a document as a JPEG image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, args[0], export.KindImage)
	},
}

var exportOutput string

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportHTMLCmd)
	exportCmd.AddCommand(exportImageCmd)

	exportCmd.PersistentFlags().StringVarP(&exportOutput, "output", "o", "", "Output path (default: next to the document)")
}

func runExport(cmd *cobra.Command, arg, kind string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	src, err := filepath.Abs(arg)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", arg, err)
	}
	out := exportOutput
	if out == "" {
		out = defaultExportPath(src, kind)
	} else if out, err = filepath.Abs(out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	env, err := newEnvironment(settings, envOptions{prompter: store.StaticPrompter{Path: out}})
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := env.manager.Open(ctx, docsession.OpenOptions{Path: src, Activate: true})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", arg, err)
	}
	if s.Missing() {
		return fmt.Errorf("document not found: %s", src)
	}

	var written string
	switch kind {
	case export.KindHTML:
		written, err = s.ExportHTML(ctx)
	default:
		written, err = s.ExportImage(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", written)
	return nil
}

// defaultExportPath replaces the document's extension with the export one.
func defaultExportPath(src, kind string) string {
	ext := ".html"
	if kind == export.KindImage {
		ext = ".jpg"
	}
	return strings.TrimSuffix(src, filepath.Ext(src)) + ext
}
