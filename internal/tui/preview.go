package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/docsession/internal/tui/styles"
)

// renderPreview styles markdown for the read-only preview. Only block-level
// structure is styled; inline markup is shown as written.
func renderPreview(content string, width, height int) string {
	if strings.TrimSpace(content) == "" {
		return styles.Muted.Render("(empty document)")
	}

	wrap := lipgloss.NewStyle().Width(width)
	var out []string
	inCode := false
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inCode = !inCode
			continue
		}
		if inCode {
			out = append(out, styles.Code.Render("  "+line))
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "### "), strings.HasPrefix(trimmed, "#### "),
			strings.HasPrefix(trimmed, "##### "), strings.HasPrefix(trimmed, "###### "):
			out = append(out, styles.Heading3.Render(strings.TrimLeft(trimmed, "# ")))
		case strings.HasPrefix(trimmed, "## "):
			out = append(out, styles.Heading2.Render(strings.TrimPrefix(trimmed, "## ")))
		case strings.HasPrefix(trimmed, "# "):
			out = append(out, styles.Heading1.Render(strings.TrimPrefix(trimmed, "# ")))
		case strings.HasPrefix(trimmed, "> "):
			out = append(out, styles.Quote.Render("│ "+strings.TrimPrefix(trimmed, "> ")))
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			out = append(out, wrap.Render(indent+"• "+trimmed[2:]))
		default:
			out = append(out, wrap.Render(line))
		}
	}

	lines := strings.Split(strings.Join(out, "\n"), "\n")
	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}
