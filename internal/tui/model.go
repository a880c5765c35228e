package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/docsession/internal/command"
	"github.com/Iron-Ham/docsession/internal/config"
	"github.com/Iron-Ham/docsession/internal/docsession"
	"github.com/Iron-Ham/docsession/internal/engine"
	"github.com/Iron-Ham/docsession/internal/errors"
	"github.com/Iron-Ham/docsession/internal/event"
	"github.com/Iron-Ham/docsession/internal/logging"
	"github.com/Iron-Ham/docsession/internal/notify"
)

// Default terminal size used until the first WindowSizeMsg.
const (
	defaultWidth  = 80
	defaultHeight = 24
)

// textBuffer is implemented by engines whose document is a plain text buffer
// the text area can edit directly.
type textBuffer interface {
	Text() string
	SetText(text string)
}

type undoer interface {
	Undo() bool
}

type toast struct {
	id    string
	level notify.Level
	text  string
}

// Model is the Bubbletea model of the editor.
type Model struct {
	ctx      context.Context
	manager  *docsession.Manager
	settings *config.Config
	logger   *logging.Logger

	keys keyMap
	help help.Model

	editor textarea.Model
	dialog textinput.Model
	prompt *promptRequestMsg

	toasts       []toast
	status       string
	loadedID     string
	pendingClose string

	showOutline  bool
	showFullPath bool
	width        int
	height       int
	quitting     bool
}

// NewModel creates the editor model over manager.
func NewModel(ctx context.Context, manager *docsession.Manager, settings *config.Config, logger *logging.Logger) Model {
	if settings == nil {
		settings = config.Default()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	ta := textarea.New()
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = false
	ta.Placeholder = "Start writing..."

	ti := textinput.New()
	ti.CharLimit = 0
	ti.Width = 50
	ti.Prompt = "> "

	m := Model{
		ctx:          ctx,
		manager:      manager,
		settings:     settings,
		logger:       logger.WithComponent("tui"),
		keys:         defaultKeyMap(),
		help:         help.New(),
		editor:       ta,
		dialog:       ti,
		showFullPath: settings.TUI.ShowFullPath,
	}
	m.setSize(defaultWidth, defaultHeight)
	m.syncEditor()
	m.focusEditor()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case promptRequestMsg:
		return m.openDialog(msg)

	case toastMsg:
		m.addToast(toast(msg))
		if msg.level == notify.LevelLoading {
			return m, nil
		}
		return m, expireToast(msg.id)

	case dismissMsg:
		m.removeToast(msg.id)
		return m, nil

	case toastExpiredMsg:
		m.removeToast(msg.id)
		return m, nil

	case busMsg:
		cmd := m.handleEvent(msg.event)
		return m, cmd

	case opDoneMsg:
		return m.handleOpDone(msg)
	}

	var cmd tea.Cmd
	if m.prompt != nil {
		m.dialog, cmd = m.dialog.Update(msg)
	} else {
		m.editor, cmd = m.editor.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil {
		return m.handleDialogKey(msg)
	}
	if !key.Matches(msg, m.keys.Close) {
		m.pendingClose = ""
	}

	mgr := m.manager
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.SaveQuit):
		return m, m.run(opSaveAll, true, mgr.SaveAll)

	case key.Matches(msg, m.keys.Save):
		return m, m.run(opSave, false, func(context.Context) error {
			return mgr.Commands().Execute(command.EditorSave)
		})

	case key.Matches(msg, m.keys.ToggleMode):
		s, ok := mgr.Active()
		if !ok {
			return m, nil
		}
		target := s.Mode().Next()
		return m, m.run(opToggle, false, func(ctx context.Context) error {
			_, err := s.ToggleMode(ctx, target)
			return err
		})

	case key.Matches(msg, m.keys.ExportHTML):
		s, ok := mgr.Active()
		if !ok {
			return m, nil
		}
		return m, m.run(opExportHTML, false, func(ctx context.Context) error {
			_, err := s.ExportHTML(ctx)
			return err
		})

	case key.Matches(msg, m.keys.ExportImage):
		s, ok := mgr.Active()
		if !ok {
			return m, nil
		}
		return m, m.run(opExportImage, false, func(ctx context.Context) error {
			_, err := s.ExportImage(ctx)
			return err
		})

	case key.Matches(msg, m.keys.New):
		return m, m.run(opNew, false, func(ctx context.Context) error {
			empty := ""
			_, err := mgr.Open(ctx, docsession.OpenOptions{Content: &empty, Activate: true})
			return err
		})

	case key.Matches(msg, m.keys.Next):
		m.focusNext()
		return m, nil

	case key.Matches(msg, m.keys.Close):
		m.closeActive()
		return m, nil

	case key.Matches(msg, m.keys.Undo):
		if s, ok := mgr.Active(); ok {
			if u, ok := s.Engine().(undoer); ok && u.Undo() {
				m.reconcile()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Outline):
		m.showOutline = !m.showOutline
		if m.showOutline {
			if err := mgr.Commands().Execute(command.OutlineRefresh); err != nil {
				m.logger.Debug("outline refresh failed", "error", err.Error())
			}
		}
		m.setSize(m.width, m.height)
		return m, nil

	case key.Matches(msg, m.keys.FullPath):
		m.showFullPath = !m.showFullPath
		return m, nil
	}

	s, ok := mgr.Active()
	if !ok || s.Mode() == engine.ModePreview {
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.pushEdit(s)
	return m, cmd
}

func (m Model) handleDialogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.answerDialog(promptResult{})
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Confirm):
		path := m.dialog.Value()
		m.answerDialog(promptResult{path: path, ok: path != ""})
		cmd := m.focusEditor()
		return m, cmd

	case key.Matches(msg, m.keys.Cancel):
		m.answerDialog(promptResult{})
		cmd := m.focusEditor()
		return m, cmd
	}

	var cmd tea.Cmd
	m.dialog, cmd = m.dialog.Update(msg)
	return m, cmd
}

// openDialog shows the save dialog. A second request while one is open is
// cancelled immediately.
func (m Model) openDialog(req promptRequestMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil {
		req.reply <- promptResult{}
		return m, nil
	}
	m.prompt = &req
	m.dialog.SetValue(req.defaultName)
	m.dialog.CursorEnd()
	m.editor.Blur()
	cmd := m.dialog.Focus()
	return m, cmd
}

func (m *Model) answerDialog(r promptResult) {
	if m.prompt == nil {
		return
	}
	m.prompt.reply <- r
	m.prompt = nil
	m.dialog.Blur()
	m.dialog.SetValue("")
}

// retryKey returns the key that re-issues op.
func (m Model) retryKey(op string) (string, bool) {
	var b key.Binding
	switch op {
	case opSave:
		b = m.keys.Save
	case opSaveAll:
		b = m.keys.SaveQuit
	case opExportHTML:
		b = m.keys.ExportHTML
	case opExportImage:
		b = m.keys.ExportImage
	default:
		return "", false
	}
	return b.Help().Key, true
}

func (m Model) handleOpDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.status = ""
	case msg.op == opToggle && errors.Is(msg.err, errors.ErrSaveIncomplete):
		m.status = "view mode unchanged: document not saved"
	default:
		m.status = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		if k, ok := m.retryKey(msg.op); ok && errors.IsRetryable(msg.err) {
			m.status += fmt.Sprintf(" (press %s to retry)", k)
		}
	}
	if msg.err != nil {
		m.logger.Debug("operation failed", "op", msg.op, "error", msg.err.Error())
	}

	if msg.quit && msg.err == nil {
		m.quitting = true
		return m, tea.Quit
	}
	m.syncEditor()
	cmd := m.focusEditor()
	return m, cmd
}

func (m *Model) handleEvent(e event.Event) tea.Cmd {
	switch e.EventType() {
	case event.TypeSessionOpened, event.TypeSessionFocused, event.TypeSessionClosed,
		event.TypeViewModeChanged, event.TypeFileChanged:
		m.syncEditor()
		return m.focusEditor()
	}
	return nil
}

// run starts fn in a command goroutine. Operations that may prompt must run
// here: the prompt is answered by this model's Update loop.
func (m Model) run(op string, quit bool, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx), quit: quit}
	}
}

func (m *Model) focusNext() {
	sessions := m.manager.Sessions()
	if len(sessions) < 2 {
		return
	}
	active, _ := m.manager.Active()
	next := sessions[0]
	for i, s := range sessions {
		if s == active {
			next = sessions[(i+1)%len(sessions)]
			break
		}
	}
	if err := m.manager.Focus(next.ID()); err != nil {
		m.status = fmt.Sprintf("focus failed: %v", err)
		return
	}
	m.syncEditor()
}

// closeActive closes the focused session. A session with unsaved changes
// needs the close key pressed twice.
func (m *Model) closeActive() {
	s, ok := m.manager.Active()
	if !ok {
		return
	}
	if s.HasUnsavedChanges() && m.pendingClose != s.ID() {
		m.pendingClose = s.ID()
		m.status = "unsaved changes: press ctrl+w again to discard"
		return
	}
	m.pendingClose = ""
	if err := m.manager.Close(s.ID()); err != nil {
		m.status = fmt.Sprintf("%s failed: %v", opClose, err)
		return
	}
	m.status = ""
	m.syncEditor()
}

// pushEdit forwards the text area's content to the engine when it differs.
func (m *Model) pushEdit(s *docsession.Session) {
	buf, ok := s.Engine().(textBuffer)
	if !ok {
		return
	}
	if v := m.editor.Value(); v != buf.Text() {
		buf.SetText(v)
	}
}

// syncEditor loads the focused document into the text area when focus moved
// and reconciles changes made behind the editor's back.
func (m *Model) syncEditor() {
	s, ok := m.manager.Active()
	if !ok {
		m.loadedID = ""
		m.editor.SetValue("")
		m.editor.Blur()
		return
	}
	if s.ID() != m.loadedID {
		m.loadedID = s.ID()
		m.editor.SetValue(bufferText(s))
	} else {
		m.reconcile()
	}
	if s.Mode() == engine.ModePreview || m.prompt != nil {
		m.editor.Blur()
	}
}

// reconcile copies the engine's buffer into the text area after an undo or
// an external reload.
func (m *Model) reconcile() {
	s, ok := m.manager.Active()
	if !ok {
		return
	}
	if text := bufferText(s); text != m.editor.Value() {
		m.editor.SetValue(text)
	}
}

func (m *Model) focusEditor() tea.Cmd {
	s, ok := m.manager.Active()
	if !ok || m.prompt != nil || s.Mode() == engine.ModePreview {
		m.editor.Blur()
		return nil
	}
	return m.editor.Focus()
}

func bufferText(s *docsession.Session) string {
	if buf, ok := s.Engine().(textBuffer); ok {
		return buf.Text()
	}
	content, _ := s.Content()
	return content
}

func (m *Model) addToast(t toast) {
	m.toasts = append(m.toasts, t)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

func (m *Model) removeToast(id string) {
	for i, t := range m.toasts {
		if t.id == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

func expireToast(id string) tea.Cmd {
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}
