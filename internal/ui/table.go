package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Table is a static, non-interactive list of entities
type Table struct {
	Columns []string
	Rows    [][]string
	Total   int64 // Total matching records on the backend; 0 hides the footer
}

// columnWidths sizes each column to its widest cell, capped at MaxColumnWidth
func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.Columns))
	for i, title := range t.Columns {
		widths[i] = lipgloss.Width(title)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] > MaxColumnWidth {
			widths[i] = MaxColumnWidth
		}
	}
	return widths
}

// Render returns the table as a string
func (t *Table) Render() string {
	if len(t.Rows) == 0 {
		return MutedStyle.Render(" No results")
	}

	widths := t.columnWidths()
	columns := make([]table.Column, len(t.Columns))
	for i, title := range t.Columns {
		columns[i] = table.Column{Title: title, Width: widths[i]}
	}

	rows := make([]table.Row, len(t.Rows))
	for i, r := range t.Rows {
		row := make(table.Row, len(columns))
		copy(row, r)
		rows[i] = row
	}

	styles := table.Styles{
		Header:   TableHeaderStyle,
		Cell:     TableCellStyle,
		Selected: lipgloss.NewStyle(),
	}

	m := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithStyles(styles),
		table.WithFocused(false),
		table.WithHeight(len(rows)+2), // Header line plus its border
	)

	view := m.View()
	if t.Total > 0 {
		view += "\n" + TableFooterStyle.Render(fmt.Sprintf("%d of %d", len(t.Rows), t.Total))
	}
	return strings.TrimRight(view, "\n")
}

// String implements fmt.Stringer
func (t *Table) String() string {
	return t.Render()
}
