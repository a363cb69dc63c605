package doctor

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

// ErrChecksFailed is returned by Run when at least one check failed with
// error severity.
var ErrChecksFailed = errors.New("health checks failed")

// Runner orchestrates health checks and fixes
type Runner struct {
	registry *Registry
	reporter Reporter
	logger   logger.Logger
}

// RunOptions configures the doctor run behavior
type RunOptions struct {
	// Verbose enables detailed output
	Verbose bool

	// Fix applies available fixes and re-runs the checks they address
	Fix bool

	// Categories filters checks by category
	Categories []Category
}

// NewRunner creates a new Runner
func NewRunner(registry *Registry, reporter Reporter, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Runner{
		registry: registry,
		reporter: reporter,
		logger:   log,
	}
}

// Run executes the selected checks, reports them and, with Fix set, applies
// fixes for failed checks before reporting the re-run.
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	r.logger.Info("starting doctor run", "verbose", opts.Verbose, "fix", opts.Fix)

	checkers := r.registry.CheckersForCategories(opts.Categories)
	results := r.registry.Run(ctx, checkers)

	r.logger.Info("checks completed", "total", len(results))
	r.reporter.Report(results, opts.Verbose)

	if !opts.Fix {
		return determineExitError(results)
	}

	fixed, err := r.applyFixes(ctx, checkers, results)
	if err != nil {
		return err
	}

	if len(fixed) == 0 {
		return determineExitError(results)
	}

	r.logger.Info("re-running fixed checks", "count", len(fixed))

	rerun := r.registry.Run(ctx, fixed)
	r.reporter.Report(rerun, opts.Verbose)

	return determineExitError(mergeResults(results, rerun))
}

// applyFixes runs the fixer of every failed result and returns the checkers
// whose fix succeeded.
func (r *Runner) applyFixes(
	ctx context.Context,
	checkers []HealthChecker,
	results []CheckResult,
) ([]HealthChecker, error) {
	var fixed []HealthChecker

	for i, result := range results {
		if !result.Problem() || !result.HasFix() {
			continue
		}

		fixer, ok := r.registry.GetFixer(result.FixID)
		if !ok {
			r.logger.Error("fixer not found", "fixID", result.FixID)

			continue
		}

		r.logger.Info("applying fix", "check", result.Name, "fixer", fixer.ID())

		if err := fixer.Fix(ctx); err != nil {
			return nil, errors.Wrapf(err, "failed to fix %q", result.Name)
		}

		fixed = append(fixed, checkers[i])
	}

	return fixed, nil
}

// mergeResults replaces results by name with their re-run counterparts.
func mergeResults(results, rerun []CheckResult) []CheckResult {
	byName := make(map[string]CheckResult, len(rerun))
	for _, res := range rerun {
		byName[res.Name] = res
	}

	merged := make([]CheckResult, len(results))

	for i, res := range results {
		if updated, ok := byName[res.Name]; ok {
			res = updated
		}

		merged[i] = res
	}

	return merged
}

func determineExitError(results []CheckResult) error {
	count := 0

	for _, res := range results {
		if res.Status == StatusFail {
			count++
		}
	}

	if count > 0 {
		return errors.Wrapf(ErrChecksFailed, "%d error(s)", count)
	}

	return nil
}
