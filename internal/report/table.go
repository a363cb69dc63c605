// Package report renders installation status and change sets for the terminal.
package report

import (
	"bytes"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"

	"github.com/smykla-skalski/patchlaunch/internal/color"
)

const minTableWidth = 40

// renderTable draws a rounded table. widths maps column index to content
// width and may be nil.
func renderTable(headers []string, rows [][]string, widths map[int]int, theme color.Theme) string {
	var buf bytes.Buffer

	opts := []tablewriter.Option{
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleRounded),
		})),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
		tablewriter.WithConfig(tablewriter.NewConfigBuilder().
			WithTrimSpace(tw.Off).
			Row().Formatting().WithAutoWrap(tw.WrapNormal).Build().
			Build().Build()),
	}

	if widths != nil {
		opts = append(opts, tablewriter.WithColumnWidths(toCellWidths(widths)))
	}

	t := tablewriter.NewTable(&buf, opts...)

	if len(headers) > 0 {
		t.Header(headers)
	}

	for _, row := range rows {
		if widths != nil {
			for i, cell := range row {
				if w, ok := widths[i]; ok {
					row[i] = padToWidth(cell, w)
				}
			}
		}

		_ = t.Append(row)
	}

	_ = t.Render()

	return dimBorders(strings.TrimRight(buf.String(), "\n"), theme)
}

// twoColumnWidths splits the terminal between a fixed first column and a
// wrapping second one. Returns nil when the terminal is unknown or narrow.
func twoColumnWidths(w, firstW int) map[int]int {
	// two columns of border + padding, plus the trailing border
	const overhead = 2*3 + 1

	if w < minTableWidth || w-overhead-firstW < minTableWidth/2 {
		return nil
	}

	return map[int]int{0: firstW, 1: w - overhead - firstW}
}

// toCellWidths converts content widths to cell widths (content + left/right
// padding) for WithColumnWidths.
func toCellWidths(contentWidths map[int]int) tw.Mapper[int, int] {
	const padW = 2

	m := make(tw.Mapper[int, int], len(contentWidths))
	for col, w := range contentWidths {
		m[col] = w + padW
	}

	return m
}

// padToWidth right-pads s with spaces so its display width reaches w.
// ANSI escape codes are excluded from width calculation.
func padToWidth(s string, w int) string {
	visible := runewidth.StringWidth(ansi.Strip(s))
	if visible >= w {
		return s
	}

	return s + strings.Repeat(" ", w-visible)
}

// dimBorders applies the muted theme style to all box-drawing border
// characters in the rendered table output.
func dimBorders(s string, theme color.Theme) string {
	for _, ch := range []string{
		"╭", "╮", "╰", "╯", "│", "─", "┬", "┴", "├", "┤", "┼",
	} {
		s = strings.ReplaceAll(s, ch, theme.Muted.Render(ch))
	}

	return s
}

// TermWidth returns the terminal width or 0 if not a terminal.
func TermWidth() int {
	for _, f := range []*os.File{os.Stdout, os.Stderr} {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 { //nolint:gosec // fd fits int
			return w
		}
	}

	return 0
}
