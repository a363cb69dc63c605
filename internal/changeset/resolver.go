package changeset

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/gitlab"
	"github.com/smykla-skalski/patchlaunch/internal/progress"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

// maxDiffPages bounds pagination of a single commit's diff.
const maxDiffPages = 10000

// ErrTooManyPages is returned when a commit diff never yields an empty page.
var ErrTooManyPages = errors.New("commit diff pagination did not terminate")

// API is the part of the remote API needed to compare revisions.
type API interface {
	Compare(ctx context.Context, from, to string) ([]gitlab.Commit, error)
	CommitDiff(ctx context.Context, sha string, page int) ([]gitlab.Diff, error)
}

// Resolver computes the change set between two revisions.
type Resolver struct {
	api    API
	logger logger.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(log logger.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.logger = log
		}
	}
}

// NewResolver creates a Resolver backed by api.
func NewResolver(api API, opts ...ResolverOption) *Resolver {
	r := &Resolver{api: api, logger: logger.NewNoOpLogger()}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Compare folds every file change of every commit between from and to. Commits
// are processed in the order the compare endpoint returns them; each commit's
// diff is paged until the first empty page. Any failure aborts the whole
// comparison.
func (r *Resolver) Compare(
	ctx context.Context,
	from, to release.Revision,
	sink progress.Sink,
) (Result, error) {
	sink = progress.OrNop(sink)

	if from == to {
		return New().Finalize(), nil
	}

	sink.Phase(progress.PhaseComparing)

	commits, err := r.api.Compare(ctx, string(from), string(to))
	if err != nil {
		return Result{}, errors.Wrap(err, "listing commits")
	}

	log := r.logger.With("from", from.Short(), "to", to.Short())
	log.Debug("comparing revisions", "commits", len(commits))

	cs := New()

	for i, commit := range commits {
		entries, err := r.foldCommit(ctx, cs, commit.ID)
		if err != nil {
			return Result{}, err
		}

		log.Debug("folded commit", "commit", commit.ShortID, "entries", entries)
		sink.Percent(progress.Percentage(i+1, len(commits)))
	}

	if len(commits) == 0 {
		sink.Percent(100)
	}

	result := cs.Finalize()

	log.Info("comparison finished", "delete", len(result.ToDelete), "fetch", len(result.ToFetch))

	return result, nil
}

func (r *Resolver) foldCommit(ctx context.Context, cs *ChangeSet, sha string) (int, error) {
	entries := 0

	for page := 1; page <= maxDiffPages; page++ {
		diffs, err := r.api.CommitDiff(ctx, sha, page)
		if err != nil {
			return entries, errors.Wrapf(err, "fetching diff of %s", sha)
		}

		if len(diffs) == 0 {
			return entries, nil
		}

		for _, d := range diffs {
			cs.Fold(Entry{
				OldPath: d.OldPath,
				NewPath: d.NewPath,
				Kind:    KindOf(d.NewFile, d.RenamedFile, d.DeletedFile),
			})
		}

		entries += len(diffs)
	}

	return entries, errors.Wrapf(ErrTooManyPages, "commit %s", sha)
}
