package payload

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/option"

	pkgconfig "github.com/smykla-skalski/patchlaunch/pkg/config"
)

// GCSProvider reads public objects from Google Cloud Storage.
type GCSProvider struct {
	endpoint string
}

// NewGCSProvider creates a GCSProvider. The cloud endpoint, when set, points
// the client at a compatible host.
func NewGCSProvider(cfg *pkgconfig.CloudConfig) *GCSProvider {
	p := &GCSProvider{}

	if cfg != nil {
		p.endpoint = cfg.Endpoint
	}

	return p
}

// Name implements Provider.
func (*GCSProvider) Name() string { return "gcs" }

// Open implements Provider without authentication.
//
//nolint:ireturn // Provider contract
func (p *GCSProvider) Open(ctx context.Context) (Session, error) {
	opts := []option.ClientOption{option.WithoutAuthentication()}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}

	return &gcsSession{client: client}, nil
}

type gcsSession struct {
	client *storage.Client
}

func (s *gcsSession) object(link string) (*storage.ObjectHandle, string, error) {
	bucket, name, err := splitBucketLink(link, "gs")
	if err != nil {
		return nil, "", err
	}

	return s.client.Bucket(bucket).Object(name), name, nil
}

func (s *gcsSession) Resolve(ctx context.Context, link string) (Node, error) {
	obj, name, err := s.object(link)
	if err != nil {
		return Node{}, err
	}

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return Node{}, classifyGCSError(err, link)
	}

	return Node{Name: name, Size: attrs.Size, Link: link}, nil
}

func (s *gcsSession) Download(ctx context.Context, node Node, w io.WriterAt, report func(float64)) error {
	obj, _, err := s.object(node.Link)
	if err != nil {
		return err
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		return classifyGCSError(err, node.Link)
	}
	defer r.Close() //nolint:errcheck // read-only object reader

	return copyWithProgress(w, r, node.Size, report)
}

func (s *gcsSession) Close() error {
	return errors.Wrap(s.client.Close(), "closing storage client")
}

func classifyGCSError(err error, link string) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return errors.Mark(errors.Wrapf(err, "%s", link), ErrNotFound)
	}

	return errors.Wrapf(err, "%s", link)
}
