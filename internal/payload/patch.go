package payload

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/changeset"
	"github.com/smykla-skalski/patchlaunch/internal/extract"
	"github.com/smykla-skalski/patchlaunch/internal/fetch"
	"github.com/smykla-skalski/patchlaunch/internal/progress"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

// PatchFileSetSource applies a change set to an existing installation:
// deletions first, then one download per changed file.
type PatchFileSetSource struct {
	rel        release.Release
	changes    changeset.Result
	baseURL    string
	downloader *fetch.Downloader
	logger     logger.Logger
}

// PatchOption configures a PatchFileSetSource.
type PatchOption func(*PatchFileSetSource)

// WithPatchDownloader sets the downloader used for raw files.
func WithPatchDownloader(d *fetch.Downloader) PatchOption {
	return func(s *PatchFileSetSource) {
		if d != nil {
			s.downloader = d
		}
	}
}

// WithPatchLogger sets the logger.
func WithPatchLogger(log logger.Logger) PatchOption {
	return func(s *PatchFileSetSource) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewPatchFileSetSource creates a source that fetches each changed file from
// baseURL joined with its repository path.
func NewPatchFileSetSource(
	rel release.Release,
	changes changeset.Result,
	baseURL string,
	opts ...PatchOption,
) *PatchFileSetSource {
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	s := &PatchFileSetSource{
		rel:        rel,
		changes:    changes,
		baseURL:    baseURL,
		downloader: fetch.NewDownloader(http.DefaultClient),
		logger:     logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Materialize implements Source. root must hold exactly one directory, the
// unpacked repository tree the change set paths are relative to.
func (s *PatchFileSetSource) Materialize(
	ctx context.Context,
	root string,
	sink progress.Sink,
) (release.Revision, error) {
	sink = progress.OrNop(sink)

	treeDir, err := InstallationTree(root)
	if err != nil {
		return "", err
	}

	if err := s.deleteAll(treeDir, sink); err != nil {
		return "", err
	}

	if err := s.fetchAll(ctx, treeDir, sink); err != nil {
		return "", err
	}

	return s.rel.HeadRevision, nil
}

// InstallationTree returns the single top-level directory under root.
func InstallationTree(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", errors.Wrapf(err, "reading installation %s", root)
	}

	var dirs []string

	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}

	switch len(dirs) {
	case 0:
		return "", errors.Wrapf(ErrEmptyInstallation, "no directory in %s", root)
	case 1:
		return filepath.Join(root, dirs[0]), nil
	default:
		return "", errors.Wrapf(
			ErrAmbiguousInstallation,
			"%s holds %d directories: %s",
			root,
			len(dirs),
			strings.Join(dirs, ", "),
		)
	}
}

func (s *PatchFileSetSource) deleteAll(treeDir string, sink progress.Sink) error {
	if len(s.changes.ToDelete) == 0 {
		return nil
	}

	sink.Phase(progress.PhaseDeleting)

	for i, rel := range s.changes.ToDelete {
		path, err := extract.SafeJoin(treeDir, rel)
		if err != nil {
			return err
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Mark(errors.Wrapf(err, "deleting %s", rel), ErrPartialFailure)
		}

		s.logger.Debug("deleted", "path", rel)
		sink.Percent(progress.Percentage(i+1, len(s.changes.ToDelete)))
	}

	return nil
}

func (s *PatchFileSetSource) fetchAll(ctx context.Context, treeDir string, sink progress.Sink) error {
	sink.Phase(progress.PhaseDownloading)

	total := len(s.changes.ToFetch)
	if total == 0 {
		sink.Percent(100)

		return nil
	}

	for i, rel := range s.changes.ToFetch {
		dest, err := extract.SafeJoin(treeDir, rel)
		if err != nil {
			return err
		}

		if err := s.fetchOne(ctx, rel, dest); err != nil {
			if !errors.Is(err, fetch.ErrNotFound) {
				return errors.Mark(errors.Wrapf(err, "fetching %s", rel), ErrPartialFailure)
			}

			s.logger.Info("skipping missing file", "path", rel, "error", err)
		}

		sink.Percent(progress.Percentage(i+1, total))
	}

	return nil
}

func (s *PatchFileSetSource) fetchOne(ctx context.Context, rel, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), dirMode); err != nil {
		return errors.Wrapf(err, "creating directory for %s", rel)
	}

	// A file the server no longer has must not survive as a stale copy.
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing old %s", rel)
	}

	return s.downloader.ToFile(ctx, s.baseURL+escapePath(rel), dest, nil)
}

// escapePath escapes each segment of a slash-separated repository path.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}
