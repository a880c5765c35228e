package docsession

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/docsession/internal/command"
	"github.com/Iron-Ham/docsession/internal/config"
	"github.com/Iron-Ham/docsession/internal/counter"
	"github.com/Iron-Ham/docsession/internal/dirty"
	"github.com/Iron-Ham/docsession/internal/document"
	"github.com/Iron-Ham/docsession/internal/engine"
	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/event"
	"github.com/Iron-Ham/docsession/internal/export"
	"github.com/Iron-Ham/docsession/internal/logging"
	"github.com/Iron-Ham/docsession/internal/notify"
	"github.com/Iron-Ham/docsession/internal/outline"
	"github.com/Iron-Ham/docsession/internal/store"
	"github.com/Iron-Ham/docsession/internal/telemetry"
	"github.com/Iron-Ham/docsession/internal/viewmode"
)

// managerOwner owns the commands the manager itself registers.
const managerOwner = "docsession.manager"

// maxConcurrentSaves bounds SaveAll's parallel writes.
const maxConcurrentSaves = 4

// Config holds the collaborators shared by every session. Gateway and
// Prompter are required; everything else has a default.
type Config struct {
	Gateway  store.Gateway
	Prompter store.Prompter

	Settings  *config.Config
	Bus       *event.Bus
	Commands  *command.Registry
	Notifier  notify.Notifier
	Telemetry telemetry.Sink
	Exporter  *export.Exporter
	Outline   viewmode.OutlineRefresher
	Tree      *document.Tree
	Watcher   *store.Watcher
	Clock     clock.Clock
	Logger    *logging.Logger
	Factory   engine.DelegateFactory
	// NewEngine builds the engine for a document. Defaults to a TextEngine.
	NewEngine func(content string) engine.Engine
}

// deps is the state shared by a Manager and its sessions.
type deps struct {
	bus       *event.Bus
	commands  *command.Registry
	dirty     *dirty.Tracker
	counters  *counter.Store
	files     *document.Registry
	tree      *document.Tree
	gateway   store.Gateway
	prompter  store.Prompter
	notifier  notify.Notifier
	telemetry telemetry.Sink
	exporter  *export.Exporter
	outline   viewmode.OutlineRefresher
	watcher   *store.Watcher
	clock     clock.Clock
	logger    *logging.Logger
	factory   engine.DelegateFactory

	autosaveEnabled  bool
	autosaveInterval time.Duration
	defaultExtension string
	defaultMode      engine.Mode
}

// OpenOptions describes a document to open. With a Path the content is read
// from disk; without one a new untitled document holds Content.
type OpenOptions struct {
	Path    string
	Content *string
	// Engine overrides the engine built by Config.NewEngine.
	Engine engine.Engine
	// Activate focuses the new session. The first session is always focused.
	Activate bool
}

// Manager is the registry of open document sessions.
type Manager struct {
	deps      *deps
	newEngine func(content string) engine.Engine
	ownsOut   *outline.Refresher

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	activeID string
	headings []outline.Heading
	closed   bool
}

// NewManager creates a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Gateway == nil || cfg.Prompter == nil {
		return nil, errors.NewValidationError("gateway and prompter are required").WithField("config")
	}

	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = event.NewBus(event.WithLogger(logger))
	}
	commands := cfg.Commands
	if commands == nil {
		commands = command.NewRegistry()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	sink := cfg.Telemetry
	if sink == nil {
		sink = telemetry.NewLogSink(logger, telemetry.DefaultKeep)
	}
	factory := cfg.Factory
	if factory == nil {
		factory = engine.TextDelegates{}
	}
	exporter := cfg.Exporter
	if exporter == nil {
		exporter = export.New(cfg.Gateway, cfg.Prompter, notifier,
			export.WithLogger(logger),
			export.WithImageQuality(settings.Export.ImageQuality),
			export.WithHTMLRenderer(export.NewHTMLRenderer(export.HTMLOptions{
				Title:  settings.Export.HTMLTitle,
				Minify: settings.Export.MinifyHTML,
			})),
		)
	}

	m := &Manager{
		newEngine: cfg.NewEngine,
		sessions:  make(map[string]*Session),
	}
	if m.newEngine == nil {
		m.newEngine = func(content string) engine.Engine {
			return engine.NewTextEngine(content, nil)
		}
	}

	out := cfg.Outline
	if out == nil {
		r := outline.NewRefresher(commands, clk, settings.Outline.RefreshDebounce(), logger)
		r.SetEnabled(settings.Outline.Enabled)
		m.ownsOut = r
		out = r
	}

	m.deps = &deps{
		bus:              bus,
		commands:         commands,
		dirty:            dirty.NewTracker(),
		counters:         counter.NewStore(),
		files:            document.NewRegistry(settings.Editor.UntitledName),
		tree:             cfg.Tree,
		gateway:          cfg.Gateway,
		prompter:         cfg.Prompter,
		notifier:         notifier,
		telemetry:        sink,
		exporter:         exporter,
		outline:          out,
		watcher:          cfg.Watcher,
		clock:            clk,
		logger:           logger.WithComponent("docsession"),
		factory:          factory,
		autosaveEnabled:  settings.Editor.Autosave,
		autosaveInterval: settings.Editor.AutosaveInterval(),
		defaultExtension: settings.Editor.DefaultExtension,
		defaultMode:      settings.Editor.ViewMode(),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	commands.Add(command.Command{
		ID:      command.OutlineRefresh,
		Owner:   managerOwner,
		Handler: m.refreshOutline,
	})
	event.OnOwned(bus, managerOwner, event.TypeSaveAllRequested, func(event.SaveAllRequestedEvent) {
		if err := m.SaveAll(m.ctx); err != nil {
			m.deps.logger.Warn("save all incomplete", "error", err.Error())
		}
	})
	event.OnOwned(bus, managerOwner, event.TypeFileRemoved, m.handleFileRemoved)
	event.OnOwned(bus, managerOwner, event.TypeFileChanged, m.handleFileChanged)
	return m, nil
}

// Bus returns the event bus sessions listen on.
func (m *Manager) Bus() *event.Bus { return m.deps.bus }

// Commands returns the command registry.
func (m *Manager) Commands() *command.Registry { return m.deps.commands }

// Files returns the file object registry.
func (m *Manager) Files() *document.Registry { return m.deps.files }

// Dirty returns the dirty-state tracker.
func (m *Manager) Dirty() *dirty.Tracker { return m.deps.dirty }

// Counters returns the editor counter store.
func (m *Manager) Counters() *counter.Store { return m.deps.counters }

// Open creates a session for a document. Opening a path that already has a
// session returns that session. A path that does not exist opens a session
// in the missing state with no content.
func (m *Manager) Open(ctx context.Context, opts OpenOptions) (*Session, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, errors.ErrSessionClosed
	}

	if opts.Path != "" {
		if f, ok := m.deps.files.ByPath(opts.Path); ok {
			if s, ok := m.Get(f.ID); ok {
				if opts.Activate {
					_ = m.Focus(s.ID())
				}
				return s, nil
			}
		}
	}

	file, content, err := m.createFile(ctx, opts)
	if err != nil {
		return nil, err
	}

	eng := opts.Engine
	if eng == nil {
		eng = m.newEngine(content)
	} else if l, ok := eng.(contentLoader); ok {
		l.Load(content)
	}

	s := newSession(m.ctx, m.deps, file, eng)
	if cs, ok := eng.(changeSource); ok {
		cs.OnChange(s.HandleChange)
	}
	s.subscribe()

	if file.HasPath() && m.deps.watcher != nil {
		if err := m.deps.watcher.Add(file.Path); err != nil {
			s.logger.Debug("watch failed", "path", file.Path, "error", err.Error())
		}
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.order = append(m.order, s.ID())
	first := m.activeID == ""
	m.mu.Unlock()

	s.logger.Info("session opened", "path", file.Path, "missing", file.Missing)
	m.deps.bus.Publish(event.NewSessionOpenedEvent(s.ID(), file.Path))

	if opts.Activate || first {
		if err := m.Focus(s.ID()); err != nil {
			return nil, err
		}
	}
	if m.deps.defaultMode != engine.ModeStructured && !file.Missing {
		if _, err := s.ToggleMode(ctx, m.deps.defaultMode); err != nil {
			s.logger.Debug("initial view mode not applied", "error", err.Error())
		}
	}
	return s, nil
}

func (m *Manager) createFile(ctx context.Context, opts OpenOptions) (document.File, string, error) {
	if opts.Path == "" {
		content := ""
		if opts.Content != nil {
			content = *opts.Content
		}
		f, err := m.deps.files.Create("", &content)
		return f, content, err
	}

	f, err := m.deps.files.Create(opts.Path, nil)
	if err != nil {
		return document.File{}, "", err
	}

	exists, err := m.deps.gateway.Exists(ctx, f.Path)
	if err != nil {
		m.deps.files.Remove(f.ID)
		return document.File{}, "", err
	}
	if !exists {
		m.deps.files.SetMissing(f.ID, true)
		f.Missing = true
		return f, "", nil
	}

	content, err := m.deps.gateway.Read(ctx, f.Path)
	if err != nil {
		m.deps.files.Remove(f.ID)
		return document.File{}, "", err
	}
	m.deps.files.SetContent(f.ID, content)
	f.Content = &content
	return f, content, nil
}

// Get returns the session for id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Active returns the focused session, if any.
func (m *Manager) Active() (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activeID == "" {
		return nil, false
	}
	s, ok := m.sessions[m.activeID]
	return s, ok
}

// Sessions returns every open session in open order.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sessions[id])
	}
	return out
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Content serializes the live content of a document.
func (m *Manager) Content(id string) (string, error) {
	s, ok := m.Get(id)
	if !ok {
		return "", errors.NewNotFoundError("document", id).WithCause(errors.ErrSessionNotFound)
	}
	content, ok := s.Content()
	if !ok {
		return "", errors.NewDocumentError("read content", errors.ErrInconsistentState).WithDocumentID(id)
	}
	return content, nil
}

// Focus makes id the active session, unfocusing the previous one.
func (m *Manager) Focus(id string) error {
	m.mu.Lock()
	next, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return errors.NewNotFoundError("document", id).WithCause(errors.ErrSessionNotFound)
	}
	prev := m.sessions[m.activeID]
	m.activeID = id
	m.mu.Unlock()

	if prev != nil && prev != next {
		prev.SetActive(false)
	}
	next.SetActive(true)
	m.deps.bus.Publish(event.NewSessionFocusedEvent(id))
	return nil
}

// Close destroys the session for id. Unsaved edits are discarded; callers
// wanting to keep them save first. When the active session closes, the most
// recently opened remaining session is focused.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return errors.NewNotFoundError("document", id).WithCause(errors.ErrSessionNotFound)
	}
	delete(m.sessions, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	next := ""
	if m.activeID == id {
		m.activeID = ""
		if len(m.order) > 0 {
			next = m.order[len(m.order)-1]
		}
	}
	m.mu.Unlock()

	s.Close()
	m.deps.bus.Publish(event.NewSessionClosedEvent(id))
	if next != "" {
		return m.Focus(next)
	}
	return nil
}

// SaveAll force-saves every session with unsaved changes. Path-backed
// sessions write concurrently; pathless ones prompt one at a time. The
// returned error joins every failure.
func (m *Manager) SaveAll(ctx context.Context) error {
	var withPath, pathless []*Session
	for _, s := range m.Sessions() {
		if !s.HasUnsavedChanges() {
			continue
		}
		if s.File().HasPath() {
			withPath = append(withPath, s)
		} else {
			pathless = append(pathless, s)
		}
	}

	p := pool.New().WithErrors().WithMaxGoroutines(maxConcurrentSaves)
	for _, s := range withPath {
		p.Go(func() error {
			return s.Save(ctx, SaveOptions{Active: true})
		})
	}
	err := p.Wait()

	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, s := range pathless {
		if err := s.Save(ctx, SaveOptions{Active: true}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DirtySessions returns the sessions with unsaved changes, sorted by ID.
func (m *Manager) DirtySessions() []*Session {
	ids := m.deps.dirty.DirtyIDs()
	sort.Strings(ids)
	var out []*Session
	for _, id := range ids {
		if s, ok := m.Get(id); ok {
			out = append(out, s)
		}
	}
	return out
}

// RequestSave broadcasts a save request to the focused session.
func (m *Manager) RequestSave(onSuccess func()) {
	m.deps.bus.Publish(event.NewSaveRequestedEvent(onSuccess))
}

// RequestSaveAll broadcasts a save-all request.
func (m *Manager) RequestSaveAll() {
	m.deps.bus.Publish(event.NewSaveAllRequestedEvent())
}

// RequestModeToggle broadcasts a view-mode switch request.
func (m *Manager) RequestModeToggle(mode engine.Mode) {
	m.deps.bus.Publish(event.NewModeToggleRequestedEvent(mode))
}

// RequestExportImage broadcasts an image export request.
func (m *Manager) RequestExportImage() {
	m.deps.bus.Publish(event.NewExportImageRequestedEvent())
}

// RequestExportHTML broadcasts an HTML export request.
func (m *Manager) RequestExportHTML() {
	m.deps.bus.Publish(event.NewExportHTMLRequestedEvent())
}

// Outline returns the headings of the focused document as of the last
// outline refresh.
func (m *Manager) Outline() []outline.Heading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]outline.Heading(nil), m.headings...)
}

func (m *Manager) refreshOutline() error {
	s, ok := m.Active()
	if !ok {
		return nil
	}
	content, _ := s.Content()
	headings := outline.Extract(content)

	m.mu.Lock()
	m.headings = headings
	m.mu.Unlock()

	m.deps.bus.Publish(event.NewOutlineRefreshedEvent(s.ID()))
	return nil
}

func (m *Manager) handleFileRemoved(e event.FileRemovedEvent) {
	f, ok := m.deps.files.ByPath(e.Path)
	if !ok {
		return
	}
	m.deps.files.SetMissing(f.ID, true)
	m.deps.logger.WithDocument(f.ID).Warn("document removed from disk", "path", e.Path)
}

func (m *Manager) handleFileChanged(e event.FileChangedEvent) {
	f, ok := m.deps.files.ByPath(e.Path)
	if !ok {
		return
	}
	s, ok := m.Get(f.ID)
	if !ok {
		return
	}
	reloaded, err := s.Reload(m.ctx)
	if err != nil {
		s.logger.Warn("reload failed", "path", e.Path, "error", err.Error())
		return
	}
	if !reloaded {
		s.logger.Warn("document changed on disk while it has unsaved changes", "path", e.Path)
	}
}

// Shutdown closes every session and releases the manager's subscriptions.
// Unsaved edits are not saved; call SaveAll first.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, id := range m.order {
		sessions = append(sessions, m.sessions[id])
	}
	m.sessions = make(map[string]*Session)
	m.order = nil
	m.activeID = ""
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	m.deps.bus.ReleaseOwner(managerOwner)
	m.deps.commands.RemoveOwned(managerOwner)
	if m.ownsOut != nil {
		m.ownsOut.Stop()
	}
	m.cancel()
}
