package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/docsession/internal/config"
	"github.com/Iron-Ham/docsession/internal/docsession"
	"github.com/Iron-Ham/docsession/internal/document"
	"github.com/Iron-Ham/docsession/internal/event"
	"github.com/Iron-Ham/docsession/internal/logging"
	"github.com/Iron-Ham/docsession/internal/notify"
	"github.com/Iron-Ham/docsession/internal/store"
)

// environment is the wired application shared by the commands.
type environment struct {
	settings *config.Config
	logger   *logging.Logger
	fs       afero.Fs
	gateway  *store.FSGateway
	watcher  *store.Watcher
	tree     *document.Tree
	manager  *docsession.Manager
}

// envOptions selects what newEnvironment wires.
type envOptions struct {
	prompter store.Prompter
	notifier notify.Notifier
	// root is the folder the document tree is scanned from. Empty skips the tree.
	root string
	// watch enables the external change watcher when the settings allow it.
	watch bool
	// fs defaults to the OS filesystem.
	fs afero.Fs
	// logger overrides the logger built from the settings.
	logger *logging.Logger
}

func newEnvironment(settings *config.Config, opts envOptions) (*environment, error) {
	env := &environment{settings: settings, fs: opts.fs}
	if env.fs == nil {
		env.fs = afero.NewOsFs()
	}
	env.logger = opts.logger
	if env.logger == nil {
		env.logger = createLogger(settings)
	}

	bus := event.NewBus(event.WithLogger(env.logger))

	var gatewayOpts []store.GatewayOption
	if opts.watch && settings.Documents.WatchExternal {
		w, err := store.NewWatcher(bus, store.WithWatcherLogger(env.logger))
		if err != nil {
			env.logger.Warn("external change watcher unavailable", "error", err.Error())
		} else {
			env.watcher = w
			w.Start()
			gatewayOpts = append(gatewayOpts, store.WithWriteHook(w.Expect))
		}
	}
	env.gateway = store.NewFSGateway(env.fs, gatewayOpts...)

	if opts.root != "" {
		tree, err := document.NewTree(opts.root, settings.Documents.Patterns)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("invalid document patterns: %w", err)
		}
		if err := tree.Scan(env.fs); err != nil {
			env.logger.Warn("folder scan failed", "root", opts.root, "error", err.Error())
		}
		env.tree = tree
	}

	notifier := opts.notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(env.logger)
	}

	manager, err := docsession.NewManager(docsession.Config{
		Gateway:  env.gateway,
		Prompter: opts.prompter,
		Settings: settings,
		Bus:      bus,
		Notifier: notifier,
		Tree:     env.tree,
		Watcher:  env.watcher,
		Logger:   env.logger,
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	env.manager = manager
	return env, nil
}

// Close shuts the sessions down and releases the watcher and log file.
func (e *environment) Close() {
	if e.manager != nil {
		e.manager.Shutdown()
	}
	if e.watcher != nil {
		e.watcher.Stop()
	}
	if e.logger != nil {
		_ = e.logger.Close()
	}
}

// createLogger creates a logger if logging is enabled in config.
// Returns a NopLogger if logging is disabled or if creation fails.
func createLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	logger, err := logging.NewLogger(logging.Options{
		Dir:   config.LogDir(),
		Level: cfg.Logging.Level,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		},
	})
	if err != nil {
		// Log creation failure shouldn't prevent the application from starting
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

// loadSettings reads the configuration, reporting validation errors.
func loadSettings() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
