// Package payload materializes release payloads on disk: a whole archive over
// HTTP, an archive from a cloud object store, or the changed files of a patch.
package payload

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/fetch"
	"github.com/smykla-skalski/patchlaunch/internal/progress"
	"github.com/smykla-skalski/patchlaunch/internal/release"
)

const (
	dirMode = 0o755

	partSuffix = ".part"
)

var (
	// ErrInsufficientSpace is returned when the archive does not fit on disk.
	ErrInsufficientSpace = errors.New("insufficient disk space")

	// ErrAmbiguousInstallation is returned when the installation root holds
	// more than one top-level directory.
	ErrAmbiguousInstallation = errors.New("ambiguous installation")

	// ErrEmptyInstallation is returned when the installation root holds no
	// top-level directory.
	ErrEmptyInstallation = errors.New("empty installation")

	// ErrPartialFailure marks a patch that stopped after some files were
	// already written.
	ErrPartialFailure = errors.New("patch partially applied")

	// ErrUnsupportedLink is returned for cloud links no provider handles.
	ErrUnsupportedLink = errors.New("unsupported cloud link")

	// ErrNotFound is fetch.ErrNotFound.
	ErrNotFound = fetch.ErrNotFound
)

// Source writes a release payload under root and returns the revision that
// is now on disk.
type Source interface {
	Materialize(ctx context.Context, root string, sink progress.Sink) (release.Revision, error)
}

// stageFile creates an empty temp file next to finalPath.
func stageFile(finalPath string) (*os.File, error) {
	dir := filepath.Dir(finalPath)

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}

	f, err := os.CreateTemp(dir, filepath.Base(finalPath)+".*"+partSuffix)
	if err != nil {
		return nil, errors.Wrap(err, "creating temp file")
	}

	return f, nil
}

// commitFile moves a fully written temp file into place.
func commitFile(tmpPath, finalPath string) error {
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)

		return errors.Wrapf(err, "moving download to %s", finalPath)
	}

	return nil
}
