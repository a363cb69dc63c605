// Package release resolves the latest published release of the remote repository.
package release

import (
	"context"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/smykla-skalski/patchlaunch/internal/gitlab"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

var (
	// ErrReleaseResolution marks every failure to determine the latest release.
	ErrReleaseResolution = errors.New("release resolution failed")

	// ErrNoReleases is returned when the repository has no releases.
	ErrNoReleases = errors.New("repository has no releases")
)

// Revision identifies a commit. Revisions are compared by exact equality.
type Revision string

// Short returns the first 8 characters of the revision.
func (r Revision) Short() string {
	const shortLen = 8

	if len(r) <= shortLen {
		return string(r)
	}

	return string(r[:shortLen])
}

// Release is the latest published release.
type Release struct {
	DownloadLink string   `json:"download_link" yaml:"download_link"`
	HeadRevision Revision `json:"head_revision" yaml:"head_revision"`
	Tag          string   `json:"tag"           yaml:"tag"`
}

// Version parses Tag as a semantic version. A leading "v" is accepted.
func (r Release) Version() (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(r.Tag))
	if err != nil {
		return nil, errors.Wrapf(err, "tag %q is not a semantic version", r.Tag)
	}

	return v, nil
}

// IsOlderThan reports whether r's tag is a lower semantic version than
// other's. Tags that do not parse never compare as older.
func (r Release) IsOlderThan(otherTag string) bool {
	mine, err := r.Version()
	if err != nil {
		return false
	}

	theirs, err := semver.NewVersion(otherTag)
	if err != nil {
		return false
	}

	return mine.LessThan(theirs)
}

// Lister lists the repository's releases, newest first.
type Lister interface {
	ListReleases(ctx context.Context) ([]gitlab.Release, error)
}

// Resolver resolves and caches the latest release. The cache holds until
// Invalidate is called; concurrent resolutions share one request.
type Resolver struct {
	lister Lister
	logger logger.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	cached Release
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

// NewResolver creates a Resolver backed by lister.
func NewResolver(lister Lister, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		lister: lister,
		logger: logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the latest release. A cached value with a non-empty head
// revision is returned without network access.
func (r *Resolver) Resolve(ctx context.Context) (Release, error) {
	if rel, ok := r.Cached(); ok {
		return rel, nil
	}

	v, err, shared := r.group.Do("latest", func() (any, error) {
		return r.fetch(ctx)
	})
	if err != nil {
		return Release{}, err
	}

	rel, _ := v.(Release)

	r.logger.Debug("resolved release", "tag", rel.Tag, "revision", rel.HeadRevision.Short(), "shared", shared)

	return rel, nil
}

func (r *Resolver) fetch(ctx context.Context) (Release, error) {
	releases, err := r.lister.ListReleases(ctx)
	if err != nil {
		return Release{}, errors.Mark(errors.Wrap(err, "listing releases"), ErrReleaseResolution)
	}

	if len(releases) == 0 {
		return Release{}, errors.Mark(ErrNoReleases, ErrReleaseResolution)
	}

	latest := releases[0]

	if len(latest.Sources) == 0 || latest.Sources[0].URL == "" {
		return Release{}, errors.Mark(
			errors.Wrapf(gitlab.ErrAPIFormat, "release %s has no source archive", latest.TagName),
			ErrReleaseResolution,
		)
	}

	rel := Release{
		DownloadLink: latest.Sources[0].URL,
		HeadRevision: Revision(latest.CommitID),
		Tag:          latest.TagName,
	}

	r.mu.Lock()
	r.cached = rel
	r.mu.Unlock()

	return rel, nil
}

// Cached returns the cached release, if one is held.
func (r *Resolver) Cached() (Release, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.cached, r.cached.HeadRevision != ""
}

// Invalidate clears the cache; the next Resolve fetches again.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cached = Release{}
	r.mu.Unlock()
}
