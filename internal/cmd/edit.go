package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/docsession/internal/docsession"
	"github.com/Iron-Ham/docsession/internal/notify"
	"github.com/Iron-Ham/docsession/internal/tui"
)

var editCmd = &cobra.Command{
	Use:   "edit [file...]",
	Short: "Open documents in the terminal editor",
	Long: `Open one or more markdown documents in the terminal editor.

Files that do not exist yet open empty and are created on the first save.
Without arguments a new untitled document is opened; saving it asks for a
destination.`,
	RunE: runEdit,
}

var editNoWatch bool

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().BoolVar(&editNoWatch, "no-watch", false, "Do not watch open files for external changes")
}

// ErrNotTerminal is returned when the editor is started without a terminal.
var ErrNotTerminal = errors.New("edit requires an interactive terminal")

func runEdit(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return ErrNotTerminal
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	paths, err := absPaths(args)
	if err != nil {
		return err
	}
	root, err := treeRoot(paths)
	if err != nil {
		return err
	}

	prompter := tui.NewPrompter()
	toasts := tui.NewNotifier()
	logger := createLogger(settings)

	env, err := newEnvironment(settings, envOptions{
		prompter: prompter,
		notifier: notify.NewMulti(toasts, notify.NewLogNotifier(logger)),
		root:     root,
		watch:    !editNoWatch,
		logger:   logger,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := openDocuments(ctx, env.manager, paths); err != nil {
		return err
	}

	app := tui.New(env.manager, settings, prompter, toasts, logger)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if dirty := env.manager.DirtySessions(); len(dirty) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d document(s) closed with unsaved changes\n", len(dirty))
	}
	return nil
}

// openDocuments opens paths in order, or one untitled document when there
// are none. The first document is focused.
func openDocuments(ctx context.Context, m *docsession.Manager, paths []string) error {
	if len(paths) == 0 {
		empty := ""
		_, err := m.Open(ctx, docsession.OpenOptions{Content: &empty})
		return err
	}
	for _, p := range paths {
		if _, err := m.Open(ctx, docsession.OpenOptions{Path: p}); err != nil {
			return fmt.Errorf("failed to open %s: %w", p, err)
		}
	}
	return nil
}

func absPaths(args []string) ([]string, error) {
	paths := make([]string, 0, len(args))
	for _, a := range args {
		p, err := filepath.Abs(a)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", a, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// treeRoot is the folder of the first document, or the working directory.
func treeRoot(paths []string) (string, error) {
	if len(paths) > 0 {
		return filepath.Dir(paths[0]), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}
