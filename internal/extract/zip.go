// Package extract expands downloaded archives into the installation directory.
package extract

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/progress"
)

const (
	dirMode     = 0o755
	minFileMode = 0o600
)

// maxEntrySize caps a single extracted entry.
var maxEntrySize int64 = 8 << 30

var (
	// ErrUnsafePath is returned when a relative path would escape its base directory.
	ErrUnsafePath = errors.New("unsafe path")

	// ErrInvalidArchive is returned when an archive cannot be read.
	ErrInvalidArchive = errors.New("invalid archive")
)

// Extractor expands an archive into a directory and returns the number of
// entries written.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string, sink progress.Sink) (int, error)
}

// ZipExtractor extracts .zip archives.
type ZipExtractor struct{}

// Extract implements Extractor.
func (ZipExtractor) Extract(ctx context.Context, archivePath, destDir string, sink progress.Sink) (int, error) {
	return Zip(ctx, archivePath, destDir, sink)
}

// Zip expands every entry of the archive at archivePath into destDir, one at
// a time, reporting entriesDone/totalEntries*100 after each entry.
func Zip(ctx context.Context, archivePath, destDir string, sink progress.Sink) (int, error) {
	sink = progress.OrNop(sink)

	// Entry names are validated one by one below, so an insecure-path
	// warning from the reader is not fatal on its own.
	r, err := zip.OpenReader(archivePath)
	if err != nil && (r == nil || !errors.Is(err, zip.ErrInsecurePath)) {
		return 0, errors.Mark(errors.Wrapf(err, "opening zip archive %s", archivePath), ErrInvalidArchive)
	}
	defer r.Close() //nolint:errcheck // read-only zip

	if err := os.MkdirAll(destDir, dirMode); err != nil {
		return 0, errors.Wrapf(err, "creating %s", destDir)
	}

	sink.Phase(progress.PhaseExtracting)

	total := len(r.File)

	for i, f := range r.File {
		if err := ctx.Err(); err != nil {
			return i, errors.Wrap(err, "extraction cancelled")
		}

		if err := extractEntry(f, destDir); err != nil {
			return i, errors.Wrapf(err, "extracting %s", f.Name)
		}

		sink.Percent(progress.Percentage(i+1, total))
	}

	return total, nil
}

func extractEntry(f *zip.File, destDir string) error {
	dest, err := SafeJoin(destDir, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return errors.Wrap(os.MkdirAll(dest, dirMode), "creating directory")
	}

	if f.UncompressedSize64 > uint64(maxEntrySize) {
		return errors.Mark(
			errors.Newf("entry is %d bytes, limit is %d", f.UncompressedSize64, maxEntrySize),
			ErrInvalidArchive,
		)
	}

	if err := os.MkdirAll(filepath.Dir(dest), dirMode); err != nil {
		return errors.Wrap(err, "creating parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Mark(errors.Wrap(err, "opening zip entry"), ErrInvalidArchive)
	}
	defer rc.Close() //nolint:errcheck // read-only entry

	return writeFile(dest, io.LimitReader(rc, maxEntrySize+1), f.Mode().Perm()|minFileMode)
}

// writeFile copies r into dest. More than maxEntrySize bytes means the entry
// header lied about its size; the partial file is removed.
//
//nolint:gosec // G304: dest is validated by SafeJoin
func writeFile(dest string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrap(err, "creating extracted file")
	}

	n, copyErr := io.Copy(out, r)

	if closeErr := out.Close(); closeErr != nil && copyErr == nil {
		return errors.Wrap(closeErr, "closing extracted file")
	}

	if copyErr == nil && n > maxEntrySize {
		copyErr = errors.Newf("entry exceeds %d bytes", maxEntrySize)
	}

	if copyErr != nil {
		_ = os.Remove(dest)

		return errors.Mark(errors.Wrap(copyErr, "writing extracted file"), ErrInvalidArchive)
	}

	return nil
}

// SafeJoin joins a slash-separated relative name onto baseDir and verifies
// the result stays within baseDir, preventing path traversal (Zip Slip).
func SafeJoin(baseDir, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return "", errors.Wrapf(ErrUnsafePath, "%q is not a relative path", name)
	}

	cleanBase := filepath.Clean(baseDir)
	cleanDest := filepath.Join(cleanBase, filepath.FromSlash(name))

	if cleanDest == cleanBase || !strings.HasPrefix(cleanDest, cleanBase+string(os.PathSeparator)) {
		return "", errors.Wrapf(ErrUnsafePath, "%q escapes %q", name, baseDir)
	}

	return cleanDest, nil
}
