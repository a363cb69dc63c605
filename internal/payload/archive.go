package payload

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/smykla-skalski/patchlaunch/internal/fetch"
	"github.com/smykla-skalski/patchlaunch/internal/progress"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

// FreeSpaceFunc reports the free bytes on the filesystem holding path.
type FreeSpaceFunc func(ctx context.Context, path string) (uint64, error)

// DiskFreeSpace is the FreeSpaceFunc backed by gopsutil.
func DiskFreeSpace(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, errors.Wrapf(err, "reading disk usage of %s", path)
	}

	return usage.Free, nil
}

// ArchiveHTTPSource downloads the release archive over HTTP.
type ArchiveHTTPSource struct {
	rel         release.Release
	archivePath string
	downloader  *fetch.Downloader
	freeSpace   FreeSpaceFunc
	logger      logger.Logger
}

// ArchiveOption configures an ArchiveHTTPSource.
type ArchiveOption func(*ArchiveHTTPSource)

// WithDownloader sets the downloader used for the archive.
func WithDownloader(d *fetch.Downloader) ArchiveOption {
	return func(s *ArchiveHTTPSource) {
		if d != nil {
			s.downloader = d
		}
	}
}

// WithFreeSpace replaces the disk free-space check.
func WithFreeSpace(fn FreeSpaceFunc) ArchiveOption {
	return func(s *ArchiveHTTPSource) {
		s.freeSpace = fn
	}
}

// WithArchiveLogger sets the logger.
func WithArchiveLogger(log logger.Logger) ArchiveOption {
	return func(s *ArchiveHTTPSource) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewArchiveHTTPSource creates a source that saves rel's archive to archivePath.
func NewArchiveHTTPSource(rel release.Release, archivePath string, opts ...ArchiveOption) *ArchiveHTTPSource {
	s := &ArchiveHTTPSource{
		rel:         rel,
		archivePath: archivePath,
		downloader:  fetch.NewDownloader(http.DefaultClient),
		freeSpace:   DiskFreeSpace,
		logger:      logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Materialize implements Source.
func (s *ArchiveHTTPSource) Materialize(
	ctx context.Context,
	root string,
	sink progress.Sink,
) (release.Revision, error) {
	sink = progress.OrNop(sink)

	for _, dir := range []string{root, filepath.Dir(s.archivePath)} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return "", errors.Wrapf(err, "creating %s", dir)
		}
	}

	sink.Phase(progress.PhaseDownloading)

	size, err := s.downloader.Probe(ctx, s.rel.DownloadLink)
	if err != nil {
		return "", errors.Wrap(err, "probing archive")
	}

	if size == fetch.UnknownLength {
		sink.SizeUnknown()
	} else if err := s.checkSpace(ctx, size); err != nil {
		return "", err
	}

	s.logger.Info("downloading archive",
		"url", s.rel.DownloadLink,
		"size", size,
		"dest", s.archivePath,
	)

	tmp, err := stageFile(s.archivePath)
	if err != nil {
		return "", err
	}

	tmpPath := tmp.Name()
	_ = tmp.Close()

	report := func(received, total int64) {
		if size > 0 {
			total = size
		}

		if total > 0 {
			sink.Percent(float64(received) / float64(total) * 100)

			return
		}

		sink.Transferred(received)
	}

	if err := s.downloader.ToFile(ctx, s.rel.DownloadLink, tmpPath, report); err != nil {
		_ = os.Remove(tmpPath)

		return "", errors.Wrap(err, "downloading archive")
	}

	if err := commitFile(tmpPath, s.archivePath); err != nil {
		return "", err
	}

	return s.rel.HeadRevision, nil
}

func (s *ArchiveHTTPSource) checkSpace(ctx context.Context, size int64) error {
	if s.freeSpace == nil {
		return nil
	}

	dir := filepath.Dir(s.archivePath)

	free, err := s.freeSpace(ctx, dir)
	if err != nil {
		s.logger.Debug("free space check skipped", "dir", dir, "error", err)

		return nil
	}

	if free < uint64(size) {
		return errors.Wrapf(
			ErrInsufficientSpace,
			"archive needs %s, %s free in %s",
			humanize.IBytes(uint64(size)),
			humanize.IBytes(free),
			dir,
		)
	}

	return nil
}
