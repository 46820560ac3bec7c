package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	negativeStyle = cellStyle.Foreground(lipgloss.Color("#f38ba8"))
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#585b70"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387"))
)

// amountColumns marks columns rendered red when negative.
type amountColumns map[int]bool

func renderTable(w io.Writer, headers []string, rows [][]string, amounts amountColumns) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if amounts[col] && row >= 0 && row < len(rows) {
				if d, err := decimal.NewFromString(rows[row][col]); err == nil && d.IsNegative() {
					return negativeStyle
				}
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
}

func printWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, warnStyle.Render(msg))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
