// Package reporters provides output formatting for doctor check results
package reporters

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smykla-skalski/patchlaunch/internal/color"
	"github.com/smykla-skalski/patchlaunch/internal/doctor"
)

// categoryNames maps categories to display names
var categoryNames = map[doctor.Category]string{
	doctor.CategoryConfig:  "Configuration",
	doctor.CategoryPaths:   "Paths",
	doctor.CategoryRemote:  "Remote",
	doctor.CategoryInstall: "Installation",
	doctor.CategoryDisk:    "Disk",
}

// SimpleReporter provides checklist-style output
type SimpleReporter struct {
	out   io.Writer
	theme color.Theme
}

// NewSimpleReporter creates a SimpleReporter writing to out
func NewSimpleReporter(out io.Writer, theme color.Theme) *SimpleReporter {
	return &SimpleReporter{out: out, theme: theme}
}

// Report outputs the results grouped by category
func (r *SimpleReporter) Report(results []doctor.CheckResult, verbose bool) {
	fmt.Fprintln(r.out, r.theme.Header.Render("Checking patchlaunch health..."))
	fmt.Fprintln(r.out)

	grouped := groupByCategory(results)

	for _, category := range orderedCategories(grouped) {
		fmt.Fprintf(r.out, "%s:\n", getCategoryName(category))

		for _, result := range grouped[category] {
			r.printResult(result, verbose)
		}

		fmt.Fprintln(r.out)
	}

	r.printSummary(results)
}

// groupByCategory groups results by their category
func groupByCategory(results []doctor.CheckResult) map[doctor.Category][]doctor.CheckResult {
	grouped := make(map[doctor.Category][]doctor.CheckResult)

	for _, result := range results {
		grouped[result.Category] = append(grouped[result.Category], result)
	}

	return grouped
}

// orderedCategories returns known categories in display order, then unknown
// ones sorted by name.
func orderedCategories(grouped map[doctor.Category][]doctor.CheckResult) []doctor.Category {
	out := make([]doctor.Category, 0, len(grouped))

	for _, c := range doctor.Categories {
		if len(grouped[c]) > 0 {
			out = append(out, c)
		}
	}

	var unknown []doctor.Category

	for c := range grouped {
		if !slices.Contains(doctor.Categories, c) {
			unknown = append(unknown, c)
		}
	}

	slices.Sort(unknown)

	return append(out, unknown...)
}

// getCategoryName returns the display name for a category
func getCategoryName(category doctor.Category) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}

	s := string(category)
	if s == "" {
		return "Other"
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

func (r *SimpleReporter) printResult(result doctor.CheckResult, verbose bool) {
	icon := r.statusStyle(result.Status).Render(statusIcon(result.Status))

	fmt.Fprintf(r.out, "  %s %s", icon, result.Name)

	if result.Message != "" {
		fmt.Fprintf(r.out, " - %s", result.Message)
	}

	fmt.Fprintln(r.out)

	if verbose || result.Problem() {
		for _, detail := range result.Details {
			fmt.Fprintf(r.out, "     %s\n", r.theme.Muted.Render(detail))
		}
	}

	if !result.Problem() {
		return
	}

	switch {
	case result.HasFix():
		fmt.Fprintln(r.out, "     → Run: patchlaunch doctor --fix")
	case result.Hint != "":
		fmt.Fprintf(r.out, "     → Run: %s\n", result.Hint)
	}
}

func (r *SimpleReporter) printSummary(results []doctor.CheckResult) {
	counts := make(map[doctor.Status]int, len(statusIcons))
	for _, res := range results {
		counts[res.Status]++
	}

	fmt.Fprintf(r.out, "Summary: %d error(s), %d warning(s), %d passed\n",
		counts[doctor.StatusFail], counts[doctor.StatusWarn], counts[doctor.StatusPass])
}

var statusIcons = map[doctor.Status]string{
	doctor.StatusPass: "✓",
	doctor.StatusSkip: "⊘",
	doctor.StatusWarn: "!",
	doctor.StatusFail: "✗",
}

func (r *SimpleReporter) statusStyle(status doctor.Status) lipgloss.Style {
	switch status {
	case doctor.StatusPass:
		return r.theme.OK
	case doctor.StatusWarn:
		return r.theme.Warning
	case doctor.StatusFail:
		return r.theme.Error
	default:
		return r.theme.Muted
	}
}

func statusIcon(status doctor.Status) string {
	if icon, ok := statusIcons[status]; ok {
		return icon
	}

	return "?"
}
