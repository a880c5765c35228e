// Package tui is the terminal front-end of the document editor. It renders
// the focused document session, forwards key presses to it, and hosts the
// save dialog and notifications the sessions request.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/docsession/internal/config"
	"github.com/Iron-Ham/docsession/internal/docsession"
	"github.com/Iron-Ham/docsession/internal/event"
	"github.com/Iron-Ham/docsession/internal/logging"
)

// App wraps the Bubbletea program
type App struct {
	program  *tea.Program
	model    Model
	manager  *docsession.Manager
	prompter *Prompter
	notifier *Notifier
	logger   *logging.Logger
	cancel   context.CancelFunc
}

// New creates the terminal application. prompter and notifier must be the
// ones the manager was built with; they are attached to the program on Run.
func New(manager *docsession.Manager, settings *config.Config, prompter *Prompter, notifier *Notifier, logger *logging.Logger) *App {
	if logger == nil {
		logger = logging.NopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		model:    NewModel(ctx, manager, settings, logger),
		manager:  manager,
		prompter: prompter,
		notifier: notifier,
		logger:   logger,
		cancel:   cancel,
	}
}

// Run starts the TUI application and blocks until it exits. Pending prompts
// are cancelled on exit.
func (a *App) Run() error {
	defer a.cancel()

	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)
	if a.prompter != nil {
		a.prompter.Attach(a.program)
	}
	if a.notifier != nil {
		a.notifier.Attach(a.program)
	}

	// Bus handlers run on the publisher's goroutine, which may be the
	// program's own Update loop.
	program := a.program
	sub := a.manager.Bus().SubscribeAll(func(e event.Event) {
		go program.Send(busMsg{event: e})
	})
	defer a.manager.Bus().Unsubscribe(sub)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		if _, ok := <-sigChan; ok {
			a.logger.Info("signal received, quitting")
			program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()

	// Clean up signal handler
	signal.Stop(sigChan)
	close(sigChan)

	return err
}
