// Package styles holds the lipgloss palette and styles of the terminal editor.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/docsession/internal/engine"
	"github.com/Iron-Ham/docsession/internal/notify"
)

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)

	// Title bar
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	// Tab styles, one tab per open document
	TabActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			Background(PrimaryColor).
			Padding(0, 2)

	TabInactive = lipgloss.NewStyle().
			Foreground(MutedColor).
			Padding(0, 2)

	TabDirty = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			Background(WarningColor).
			Padding(0, 2)

	// Mode badge in the status bar
	ModeBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(SurfaceColor).
			Padding(0, 1)

	// Content area
	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	// Outline sidebar
	Sidebar = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)

	SidebarTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// Preview headings
	Heading1 = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).Underline(true)
	Heading2 = lipgloss.NewStyle().Bold(true).Foreground(BlueColor)
	Heading3 = lipgloss.NewStyle().Bold(true).Foreground(SecondaryColor)
	Quote    = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)
	Code     = lipgloss.NewStyle().Foreground(WarningColor)

	// Footer / status bar
	StatusBar = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(SurfaceColor).
			Padding(0, 1)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Save dialog
	Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(1, 2)

	// Toasts
	Toast = lipgloss.NewStyle().
		Padding(0, 1)
)

// ModeColor returns the badge color of a view mode.
func ModeColor(m engine.Mode) lipgloss.Color {
	switch m {
	case engine.ModeStructured:
		return PrimaryColor
	case engine.ModeSourceText:
		return BlueColor
	case engine.ModePreview:
		return SecondaryColor
	default:
		return MutedColor
	}
}

// ModeLabel returns the short badge label of a view mode.
func ModeLabel(m engine.Mode) string {
	switch m {
	case engine.ModeStructured:
		return "EDIT"
	case engine.ModeSourceText:
		return "SOURCE"
	case engine.ModePreview:
		return "PREVIEW"
	default:
		return "?"
	}
}

// ToastColor returns the color of a notification level.
func ToastColor(level notify.Level) lipgloss.Color {
	switch level {
	case notify.LevelLoading:
		return BlueColor
	case notify.LevelSuccess:
		return SecondaryColor
	case notify.LevelError:
		return ErrorColor
	default:
		return MutedColor
	}
}

// ToastIcon returns the icon of a notification level.
func ToastIcon(level notify.Level) string {
	switch level {
	case notify.LevelLoading:
		return "◌"
	case notify.LevelSuccess:
		return "✓"
	case notify.LevelError:
		return "✗"
	default:
		return "•"
	}
}
