package payload

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/progress"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	pkgconfig "github.com/smykla-skalski/patchlaunch/pkg/config"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

// Node is a resolved cloud object.
type Node struct {
	Name string
	Size int64
	Link string
}

// Session is an open, anonymous connection to an object store.
type Session interface {
	// Resolve looks up the object a link points to.
	Resolve(ctx context.Context, link string) (Node, error)

	// Download writes the object to w, reporting progress from 0 to 100.
	Download(ctx context.Context, node Node, w io.WriterAt, progress func(pct float64)) error

	// Close ends the session.
	Close() error
}

// Provider opens sessions against one kind of object store.
type Provider interface {
	Name() string
	Open(ctx context.Context) (Session, error)
}

// ProviderForLink picks the provider able to serve link: "s3://" for S3,
// "gs://" for Google Cloud Storage and "https://<account>.blob.core.windows.net"
// for Azure blobs.
//
//nolint:ireturn // callers only need the Provider contract
func ProviderForLink(link string, cfg *pkgconfig.CloudConfig) (Provider, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupportedLink, "parsing %q: %v", link, err)
	}

	switch {
	case u.Scheme == "s3":
		return NewS3Provider(cfg), nil
	case u.Scheme == "gs":
		return NewGCSProvider(cfg), nil
	case (u.Scheme == "https" || u.Scheme == "http") && strings.HasSuffix(u.Hostname(), azureBlobHostSuffix):
		return NewAzureProvider(), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedLink, "%q", link)
	}
}

// splitBucketLink splits "scheme://bucket/key/parts" into bucket and key.
func splitBucketLink(link, scheme string) (bucket, key string, err error) {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != scheme {
		return "", "", errors.Wrapf(ErrUnsupportedLink, "%q is not a %s:// link", link, scheme)
	}

	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")

	if bucket == "" || key == "" {
		return "", "", errors.Wrapf(ErrUnsupportedLink, "%q needs a bucket and an object", link)
	}

	return bucket, key, nil
}

// CloudObjectSource downloads the release archive from an object store.
type CloudObjectSource struct {
	rel         release.Release
	link        string
	archivePath string
	provider    Provider
	logger      logger.Logger
}

// CloudOption configures a CloudObjectSource.
type CloudOption func(*CloudObjectSource)

// WithCloudLogger sets the logger.
func WithCloudLogger(log logger.Logger) CloudOption {
	return func(s *CloudObjectSource) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewCloudObjectSource creates a source that saves the object behind link
// to archivePath.
func NewCloudObjectSource(
	rel release.Release,
	link, archivePath string,
	provider Provider,
	opts ...CloudOption,
) *CloudObjectSource {
	s := &CloudObjectSource{
		rel:         rel,
		link:        link,
		archivePath: archivePath,
		provider:    provider,
		logger:      logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Materialize implements Source. The session is closed whatever the outcome.
func (s *CloudObjectSource) Materialize(
	ctx context.Context,
	root string,
	sink progress.Sink,
) (release.Revision, error) {
	sink = progress.OrNop(sink)

	if err := os.MkdirAll(root, dirMode); err != nil {
		return "", errors.Wrapf(err, "creating %s", root)
	}

	sink.Phase(progress.PhaseDownloading)

	session, err := s.provider.Open(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s session", s.provider.Name())
	}

	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			s.logger.Debug("closing cloud session", "provider", s.provider.Name(), "error", closeErr)
		}
	}()

	node, err := session.Resolve(ctx, s.link)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", s.link)
	}

	s.logger.Info("downloading cloud object",
		"provider", s.provider.Name(),
		"object", node.Name,
		"size", node.Size,
		"dest", s.archivePath,
	)

	tmp, err := stageFile(s.archivePath)
	if err != nil {
		return "", err
	}

	tmpPath := tmp.Name()

	dlErr := session.Download(ctx, node, tmp, sink.Percent)
	closeErr := tmp.Close()

	if dlErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)

		if dlErr != nil {
			return "", errors.Wrapf(dlErr, "downloading %s", node.Name)
		}

		return "", errors.Wrap(closeErr, "closing download")
	}

	if err := commitFile(tmpPath, s.archivePath); err != nil {
		return "", err
	}

	return s.rel.HeadRevision, nil
}

// progressWriterAt counts bytes written through it and reports the share of
// total. Writes may arrive concurrently from parallel part downloads.
type progressWriterAt struct {
	w       io.WriterAt
	total   int64
	report  func(pct float64)
	mu      sync.Mutex
	written int64
}

func newProgressWriterAt(w io.WriterAt, total int64, report func(float64)) *progressWriterAt {
	if report == nil {
		report = func(float64) {}
	}

	return &progressWriterAt{w: w, total: total, report: report}
}

func (p *progressWriterAt) WriteAt(b []byte, off int64) (int, error) {
	n, err := p.w.WriteAt(b, off)

	if n > 0 && p.total > 0 {
		p.mu.Lock()
		p.written += int64(n)
		pct := float64(p.written) / float64(p.total) * 100
		p.report(pct)
		p.mu.Unlock()
	}

	return n, err
}

// copyWithProgress streams r into w from offset 0.
func copyWithProgress(w io.WriterAt, r io.Reader, total int64, report func(float64)) error {
	pw := newProgressWriterAt(w, total, report)

	if _, err := io.Copy(io.NewOffsetWriter(pw, 0), r); err != nil {
		return errors.Wrap(err, "copying object")
	}

	return nil
}
