package report

import (
	"fmt"

	"github.com/smykla-skalski/patchlaunch/internal/changeset"
	"github.com/smykla-skalski/patchlaunch/internal/color"
)

const opWidth = 1

// RenderChanges renders a change set as a table of deletions then fetches.
func RenderChanges(r changeset.Result, width int, theme color.Theme) string {
	if r.Empty() {
		return theme.OK.Render("No changes")
	}

	rows := make([][]string, 0, r.Len())

	for _, p := range r.ToDelete {
		rows = append(rows, []string{theme.Error.Render("-"), p})
	}

	for _, p := range r.ToFetch {
		rows = append(rows, []string{theme.OK.Render("+"), p})
	}

	return renderTable([]string{"", "Path"}, rows, twoColumnWidths(width, opWidth), theme)
}

// ChangesSummary returns a one-line count of a change set.
func ChangesSummary(r changeset.Result, theme color.Theme) string {
	return fmt.Sprintf("Summary: %s, %s",
		theme.Error.Render(fmt.Sprintf("%d to delete", len(r.ToDelete))),
		theme.OK.Render(fmt.Sprintf("%d to fetch", len(r.ToFetch))),
	)
}
