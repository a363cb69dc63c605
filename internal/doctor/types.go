// Package doctor runs health checks against the launcher setup and applies
// the fixes that are safe to automate.
package doctor

//go:generate mockgen -source=types.go -destination=types_mock.go -package=doctor

import "context"

// Status is the outcome of a single check, ordered by how bad it is.
type Status int

const (
	StatusPass Status = iota
	StatusSkip
	// StatusWarn degrades the launcher but does not block install or launch.
	StatusWarn
	// StatusFail blocks installing, updating or launching.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusSkip:
		return "skip"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Category groups checks in output and in --category filters.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryPaths   Category = "paths"
	CategoryRemote  Category = "remote"
	CategoryInstall Category = "install"
	CategoryDisk    Category = "disk"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryConfig,
	CategoryPaths,
	CategoryRemote,
	CategoryInstall,
	CategoryDisk,
}

// CheckResult is what a HealthChecker reports.
type CheckResult struct {
	Name     string
	Category Category
	Status   Status
	Message  string
	Details  []string

	// FixID names the Fixer that repairs this problem.
	FixID string

	// Hint is a command to run when no Fixer applies.
	Hint string
}

// HealthChecker inspects one aspect of the setup.
type HealthChecker interface {
	Name() string
	Category() Category
	Check(ctx context.Context) CheckResult
}

// Fixer repairs a problem reported with its ID.
type Fixer interface {
	ID() string
	Description() string
	Fix(ctx context.Context) error
}

// Reporter renders check results.
type Reporter interface {
	Report(results []CheckResult, verbose bool)
}

func result(status Status, name, message string) CheckResult {
	return CheckResult{Name: name, Status: status, Message: message}
}

// Pass reports a healthy check.
func Pass(name, message string) CheckResult { return result(StatusPass, name, message) }

// Warn reports a non-blocking problem.
func Warn(name, message string) CheckResult { return result(StatusWarn, name, message) }

// Fail reports a blocking problem.
func Fail(name, message string) CheckResult { return result(StatusFail, name, message) }

// Skip reports a check that could not run.
func Skip(name, message string) CheckResult { return result(StatusSkip, name, message) }

// WithDetails appends detail lines.
func (r CheckResult) WithDetails(details ...string) CheckResult {
	r.Details = append(r.Details, details...)

	return r
}

// WithFixID links the result to a Fixer.
func (r CheckResult) WithFixID(fixID string) CheckResult {
	r.FixID = fixID

	return r
}

// WithHint sets the command suggested when no Fixer applies.
func (r CheckResult) WithHint(hint string) CheckResult {
	r.Hint = hint

	return r
}

// Problem reports whether the result is a warning or a failure.
func (r CheckResult) Problem() bool {
	return r.Status >= StatusWarn
}

// HasFix reports whether a Fixer is linked.
func (r CheckResult) HasFix() bool {
	return r.FixID != ""
}
