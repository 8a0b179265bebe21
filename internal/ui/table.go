package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a column with its header and minimum width.
type TableColumn struct {
	Title string
	Width int
}

// RenderTable renders a simple aligned table for CLI output. Columns grow
// to fit their widest cell; the header row is bold when colors are on.
func RenderTable(columns []TableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = max(c.Width, len(c.Title))
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerStyle := lipgloss.NewStyle()
	if ColorEnabled() {
		headerStyle = headerStyle.Bold(true).Foreground(ColorPrimary)
	}

	var b strings.Builder

	for i, c := range columns {
		b.WriteString(headerStyle.Render(pad(c.Title, widths[i])))
		if i < len(columns)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")

	for i := range columns {
		b.WriteString(strings.Repeat("─", widths[i]))
		if i < len(columns)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteString("\n")

	for _, row := range rows {
		for i := range columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(pad(cell, widths[i]))
			if i < len(columns)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
