package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"hatoview/internal/pager"
	"hatoview/internal/view"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bd93f9"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8be9fd")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555"))
	currentStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	disabledLink = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))

	severityColors = map[string]lipgloss.Color{
		"severity0": "#6272a4",
		"severity1": "#8be9fd",
		"severity2": "#f1fa8c",
		"severity3": "#ffb86c",
		"severity4": "#ff79c6",
		"severity5": "#ff5555",
	}
)

// renderModel draws a model as a titled table with the pager underneath.
// A zero width leaves the table at its natural size.
func renderModel(m view.Model, width int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(strings.ToUpper(string(m.View))))
	b.WriteString(helpStyle.Render(fmt.Sprintf("  %s", statusLine(m))))
	b.WriteString("\n")

	if m.Error != "" {
		b.WriteString(errorStyle.Render("Error: " + m.Error))
		b.WriteString("\n")
	}

	headers := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		headers[i] = c.Label
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(m.Rows) && col < len(m.Rows[row].Cells) {
				if color, ok := severityColors[m.Rows[row].Cells[col].Class]; ok {
					return cellStyle.Foreground(color)
				}
			}
			return cellStyle
		})
	if width > 0 {
		t = t.Width(width)
	}
	for _, row := range m.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.Text
		}
		t = t.Row(cells...)
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(renderPager(m.Pager))
	return b.String()
}

func statusLine(m view.Model) string {
	parts := []string{fmt.Sprintf("page %d", m.Page.CurrentPage+1)}
	if m.TotalPages >= 0 {
		parts[0] += fmt.Sprintf("/%d", m.TotalPages)
	}
	if m.Page.NumTotalRecords >= 0 {
		parts = append(parts, fmt.Sprintf("%d records", m.Page.NumTotalRecords))
	}
	parts = append(parts, fmt.Sprintf("%d per page", m.Page.NumRecordsPerPage))
	if m.AutoRefresh {
		parts = append(parts, "auto-refresh on")
	} else {
		parts = append(parts, "auto-refresh off")
	}
	return strings.Join(parts, " · ")
}

func renderPager(links []pager.Link) string {
	labels := make([]string, 0, len(links))
	for _, link := range links {
		switch {
		case link.Current:
			labels = append(labels, currentStyle.Render(link.Label))
		case !link.Enabled:
			labels = append(labels, disabledLink.Render(link.Label))
		default:
			labels = append(labels, link.Label)
		}
	}
	return strings.Join(labels, " ")
}
