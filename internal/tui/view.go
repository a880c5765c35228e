package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/docsession/internal/docsession"
	"github.com/Iron-Ham/docsession/internal/engine"
	"github.com/Iron-Ham/docsession/internal/outline"
	"github.com/Iron-Ham/docsession/internal/tui/styles"
)

// Layout constants
const (
	SidebarWidth    = 28 // Outline sidebar width, borders included
	SidebarMinWidth = 60 // Terminal width below which the outline is hidden

	// ChromeHeight is the number of rows outside the content box: tabs,
	// status bar, toasts, help bar and the box's borders.
	ChromeHeight = 6
	// ChromeWidth is the content box's border and padding.
	ChromeWidth = 4
)

// CalculateContentDimensions returns the text area dimensions for a terminal
// of the given size.
func CalculateContentDimensions(termWidth, termHeight int, outlineShown bool) (contentWidth, contentHeight int) {
	contentWidth = termWidth - ChromeWidth
	if outlineShown && termWidth >= SidebarMinWidth {
		contentWidth -= SidebarWidth
	}
	contentHeight = termHeight - ChromeHeight
	return max(contentWidth, 10), max(contentHeight, 3)
}

func (m *Model) setSize(width, height int) {
	m.width, m.height = width, height
	w, h := CalculateContentDimensions(width, height, m.showOutline)
	m.editor.SetWidth(w)
	m.editor.SetHeight(h)
	m.help.Width = width
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderTabs(),
		m.renderBody(),
		m.renderStatus(),
		m.renderToasts(),
		m.renderHelp(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTabs() string {
	sessions := m.manager.Sessions()
	if len(sessions) == 0 {
		return styles.Title.Render("docsession")
	}

	tabs := make([]string, 0, len(sessions))
	for _, s := range sessions {
		label := tabLabel(s)
		switch {
		case s.Active():
			tabs = append(tabs, styles.TabActive.Render(label))
		case s.HasUnsavedChanges():
			tabs = append(tabs, styles.TabDirty.Render(label))
		default:
			tabs = append(tabs, styles.TabInactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func tabLabel(s *docsession.Session) string {
	label := s.File().Name
	if s.HasUnsavedChanges() {
		label += " ●"
	}
	return label
}

func (m Model) renderBody() string {
	w, h := CalculateContentDimensions(m.width, m.height, m.showOutline)

	if m.prompt != nil {
		dialog := styles.Dialog.Render(styles.Title.Render(m.prompt.title) + "\n\n" + m.dialog.View())
		return lipgloss.Place(m.width, h+2, lipgloss.Center, lipgloss.Center, dialog)
	}

	var content string
	s, ok := m.manager.Active()
	switch {
	case !ok:
		content = styles.Muted.Render("No document open. Press ctrl+n to start a new one.")
	case s.Mode() == engine.ModePreview:
		content = renderPreview(s.Preview(), w, h)
	default:
		content = m.editor.View()
	}
	box := styles.ContentBox.Width(w + 2).Height(h).Render(content)

	if !m.showOutline || m.width < SidebarMinWidth {
		return box
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, box, m.renderOutline(h))
}

func (m Model) renderOutline(height int) string {
	body := outline.Render(m.manager.Outline())
	if body == "" {
		body = styles.Muted.Render("No headings")
	}
	inner := SidebarWidth - 4
	content := styles.SidebarTitle.Render("Outline") + "\n" + lipgloss.NewStyle().Width(inner).Render(strings.TrimRight(body, "\n"))
	return styles.Sidebar.Width(SidebarWidth - 2).Height(height).Render(content)
}

func (m Model) renderStatus() string {
	s, ok := m.manager.Active()
	if !ok {
		return styles.StatusBar.Width(m.width).Render(m.status)
	}
	snap := s.Snapshot()

	badge := styles.ModeBadge.Background(styles.ModeColor(snap.Mode)).Render(styles.ModeLabel(snap.Mode))

	location := s.DisplayPath(m.showFullPath)
	if location == "" {
		location = snap.Name
	}
	parts := []string{location}
	if snap.HasUnsavedChanges {
		parts = append(parts, styles.Warning.Render("modified"))
	}
	if snap.Missing {
		parts = append(parts, styles.Error.Render("missing on disk"))
	}
	parts = append(parts, fmt.Sprintf("%d words · %d chars", snap.Counts.Words, snap.Counts.Characters))
	if snap.Autosave {
		parts = append(parts, fmt.Sprintf("autosave %s", snap.AutosaveInterval))
	} else {
		parts = append(parts, "autosave off")
	}
	if m.status != "" {
		parts = append(parts, styles.Error.Render(m.status))
	}

	return badge + styles.StatusBar.Width(max(m.width-lipgloss.Width(badge), 0)).Render(strings.Join(parts, "  "))
}

func (m Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		style := styles.Toast.Foreground(styles.ToastColor(t.level))
		rendered = append(rendered, style.Render(styles.ToastIcon(t.level)+" "+t.text))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderHelp() string {
	if m.prompt != nil {
		return styles.HelpBar.Render(m.help.View(dialogKeys{m.keys}))
	}
	return styles.HelpBar.Render(m.help.View(m.keys))
}
