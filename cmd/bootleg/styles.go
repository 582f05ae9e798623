package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Color palette
	primaryColor   = lipgloss.Color("#7D56F4")
	secondaryColor = lipgloss.Color("#00D7FF")
	successColor   = lipgloss.Color("#04B575")
	warningColor   = lipgloss.Color("#FFA500")
	errorColor     = lipgloss.Color("#FF4B4B")
	mutedColor     = lipgloss.Color("#666666")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	addrStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	okStyle    = lipgloss.NewStyle().Foreground(successColor)
	warnStyle  = lipgloss.NewStyle().Foreground(warningColor)
	errStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
)

// render applies s unless colors are disabled.
func render(s lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return s.Render(text)
}

// usageStyle picks a color for an occupancy percentage.
func usageStyle(pct float64) lipgloss.Style {
	switch {
	case pct >= 90:
		return errStyle
	case pct >= 60:
		return warnStyle
	default:
		return okStyle
	}
}

// table renders rows as left-aligned columns. Cells are padded before they
// are styled so ANSI sequences do not skew alignment.
type table struct {
	header []string
	rows   [][]string
	styles [][]lipgloss.Style
}

func (t *table) add(cells []string, styles []lipgloss.Style) {
	t.rows = append(t.rows, cells)
	t.styles = append(t.styles, styles)
}

func (t *table) String() string {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var sb strings.Builder
	for i, h := range t.header {
		sb.WriteString(render(tableHeaderStyle, pad(h, widths[i])))
		sb.WriteString("  ")
	}
	sb.WriteString("\n")
	for r, row := range t.rows {
		for i, c := range row {
			cell := pad(c, widths[i])
			if i < len(t.styles[r]) {
				cell = render(t.styles[r][i], cell)
			}
			sb.WriteString(cell)
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func pad(s string, w int) string {
	return fmt.Sprintf("%-*s", w, s)
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
