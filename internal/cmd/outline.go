package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/docsession/internal/logging"
	"github.com/Iron-Ham/docsession/internal/outline"
	"github.com/Iron-Ham/docsession/internal/store"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <file>",
	Short: "Print a document's table of contents",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutline,
}

var outlineJSON bool

func init() {
	rootCmd.AddCommand(outlineCmd)

	outlineCmd.Flags().BoolVar(&outlineJSON, "json", false, "Print headings as JSON")
}

func runOutline(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", args[0], err)
	}

	env, err := newEnvironment(settings, envOptions{
		prompter: store.StaticPrompter{},
		logger:   logging.NopLogger(),
	})
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	content, err := env.gateway.Read(ctx, path)
	if err != nil {
		return err
	}

	headings := outline.Extract(content)
	out := cmd.OutOrStdout()
	if outlineJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(headings)
	}
	if len(headings) == 0 {
		fmt.Fprintln(out, "No headings found.")
		return nil
	}
	fmt.Fprint(out, outline.Render(headings))
	return nil
}
