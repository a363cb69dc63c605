package doctor

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages health checkers and fixers
type Registry struct {
	mu       sync.RWMutex
	checkers []HealthChecker
	fixers   map[string]Fixer
}

// NewRegistry creates a new Registry
func NewRegistry() *Registry {
	return &Registry{
		fixers: make(map[string]Fixer),
	}
}

// RegisterChecker registers a health checker
func (r *Registry) RegisterChecker(checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkers = append(r.checkers, checker)
}

// RegisterFixer registers a fixer
func (r *Registry) RegisterFixer(fixer Fixer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fixers[fixer.ID()] = fixer
}

// Checkers returns the registered checkers in registration order.
func (r *Registry) Checkers() []HealthChecker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.checkers)
}

// CheckersForCategories returns the checkers in any of categories. An empty
// filter selects every checker.
func (r *Registry) CheckersForCategories(categories []Category) []HealthChecker {
	if len(categories) == 0 {
		return r.Checkers()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []HealthChecker

	for _, c := range r.checkers {
		if slices.Contains(categories, c.Category()) {
			out = append(out, c)
		}
	}

	return out
}

// Run executes checkers concurrently. Results keep the order of checkers.
func (*Registry) Run(ctx context.Context, checkers []HealthChecker) []CheckResult {
	results := make([]CheckResult, len(checkers))
	g, gctx := errgroup.WithContext(ctx)

	for i := range checkers {
		checker := checkers[i]

		g.Go(func() error {
			result := checker.Check(gctx)
			result.Category = checker.Category()
			results[i] = result

			return nil
		})
	}

	_ = g.Wait()

	return results
}

// GetFixer retrieves a fixer by ID.
//
//nolint:ireturn // Fixer interface for polymorphism
func (r *Registry) GetFixer(fixID string) (Fixer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fixer, ok := r.fixers[fixID]

	return fixer, ok
}

// CheckerCount returns the total number of registered checkers
func (r *Registry) CheckerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.checkers)
}

// FixerCount returns the total number of registered fixers
func (r *Registry) FixerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.fixers)
}
