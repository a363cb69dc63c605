// Package color decides whether output is colored and holds the CLI theme.
package color

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Enabled reports whether output written to f should carry ANSI colors.
// --no-color and NO_COLOR always win, CLICOLOR_FORCE enables color for pipes
// (CI logs), and otherwise f must be a terminal that is not TERM=dumb with
// CLICOLOR unset or non-zero.
func Enabled(f *os.File, noColorFlag bool) bool {
	return decide(noColorFlag, os.LookupEnv, func() bool { return IsTerminal(f) })
}

func decide(noColorFlag bool, lookup func(string) (string, bool), tty func() bool) bool {
	if noColorFlag {
		return false
	}

	if _, ok := lookup("NO_COLOR"); ok {
		return false
	}

	if v, ok := lookup("CLICOLOR_FORCE"); ok && v != "" && v != "0" {
		return true
	}

	if v, _ := lookup("CLICOLOR"); v == "0" {
		return false
	}

	if v, _ := lookup("TERM"); v == "dumb" {
		return false
	}

	return tty()
}

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits int
}

// Theme holds the lipgloss styles used by status and diff output.
type Theme struct {
	OK      lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Header  lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
}

// NewTheme creates a Theme. When color is false, all styles are empty (no ANSI codes).
func NewTheme(color bool) Theme {
	if !color {
		return Theme{}
	}

	return Theme{
		OK:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")), // bright green
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")), // bright yellow
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")), // bright blue
		Header:  lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		Label:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")), // gray
	}
}
