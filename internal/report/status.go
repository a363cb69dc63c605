package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smykla-skalski/patchlaunch/internal/color"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/internal/updater"
)

const labelWidth = 9

// StateIcon returns a single-width icon for a state.
func StateIcon(s updater.State) string {
	switch s {
	case updater.StateCurrent:
		return "✓"
	case updater.StateStale, updater.StateNotInstalled:
		return "↑"
	case updater.StateFailed, updater.StateUnavailable:
		return "✗"
	case updater.StateInstalling, updater.StateUpdating:
		return "…"
	default:
		return "?"
	}
}

func stateStyle(s updater.State, theme color.Theme) lipgloss.Style {
	switch s {
	case updater.StateCurrent:
		return theme.OK
	case updater.StateStale, updater.StateNotInstalled:
		return theme.Warning
	case updater.StateFailed, updater.StateUnavailable:
		return theme.Error
	default:
		return theme.Info
	}
}

// Actions lists what the user can do next.
func Actions(s updater.Status) []string {
	var out []string

	if s.CanPlay() {
		out = append(out, "launch")
	}

	if s.CanInstall() {
		out = append(out, "install")
	}

	if s.CanUpdate() {
		out = append(out, "update")
	}

	if s.CanRecover() {
		out = append(out, "recover")
	}

	return out
}

// RenderStatus renders a status as a two-column table. width is the terminal
// width, 0 when unknown.
func RenderStatus(s updater.Status, width int, theme color.Theme) string {
	label := func(l string) string { return theme.Label.Render(l) }

	state := stateStyle(s.State, theme).Render(StateIcon(s.State) + " " + s.State.String())
	if s.RepairRequired {
		state += " " + theme.Error.Render("(repair required)")
	}

	rows := [][]string{
		{label("State"), state},
		{label("Installed"), describeInstalled(s)},
		{label("Latest"), describeLatest(s, theme)},
	}

	if actions := Actions(s); len(actions) > 0 {
		rows = append(rows, []string{label("Actions"), strings.Join(actions, ", ")})
	}

	if s.LastError != nil {
		rows = append(rows, []string{label("Error"), theme.Error.Render(s.LastError.Error())})
	}

	return renderTable(nil, rows, twoColumnWidths(width, labelWidth), theme)
}

func describeInstalled(s updater.Status) string {
	if !s.Installed {
		return "-"
	}

	return describeRevision(s.InstalledTag, s.InstalledRevision)
}

func describeLatest(s updater.Status, theme color.Theme) string {
	if !s.Reachable {
		return theme.Muted.Render("unreachable")
	}

	out := describeRevision(s.Latest.Tag, s.Latest.HeadRevision)

	if s.Installed && s.InstalledTag != "" && s.Latest.IsOlderThan(s.InstalledTag) {
		out += " " + theme.Warning.Render("(older than installed)")
	}

	return out
}

func describeRevision(tag string, rev release.Revision) string {
	switch {
	case tag == "" && rev == "":
		return "-"
	case tag == "":
		return rev.Short()
	case rev == "":
		return tag
	default:
		return fmt.Sprintf("%s (%s)", tag, rev.Short())
	}
}
