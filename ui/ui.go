// Package ui holds the styled terminal output used in interactive mode.
// Daemon mode never touches this package; everything it prints goes to
// stdout or stderr, never to the log file.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Palette — muted, dark-terminal friendly.
var (
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	blue   = lipgloss.Color("39")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	WarnStyle    = lipgloss.NewStyle().Foreground(yellow)
	InfoStyle    = lipgloss.NewStyle().Foreground(blue)
	MutedStyle   = lipgloss.NewStyle().Foreground(dim)
	BoldStyle    = lipgloss.NewStyle().Bold(true)
)

// Inline helpers — return styled text without newlines.

func Bold(s string) string    { return BoldStyle.Render(s) }
func Muted(s string) string   { return MutedStyle.Render(s) }
func Success(s string) string { return SuccessStyle.Render(s) }
func Warn(s string) string    { return WarnStyle.Render(s) }

// Message helpers — single-line strings (no trailing newline).

func SuccessMsg(format string, a ...any) string {
	return SuccessStyle.Render("✓") + " " + fmt.Sprintf(format, a...)
}

func WarnMsg(format string, a ...any) string {
	return WarnStyle.Render("!") + " " + fmt.Sprintf(format, a...)
}

func ErrorMsg(format string, a ...any) string {
	return ErrorStyle.Render("✗") + " " + fmt.Sprintf(format, a...)
}

func InfoMsg(format string, a ...any) string {
	return InfoStyle.Render("●") + " " + fmt.Sprintf(format, a...)
}

// StatusCell renders an up/down cell for Table.
func StatusCell(up bool) string {
	if up {
		return SuccessStyle.Render("active")
	}
	return ErrorStyle.Render("inactive")
}

// Table renders a styled table with rounded borders.
func Table(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().
		Foreground(blue).
		Bold(true).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	return t.Render()
}
