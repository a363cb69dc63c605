package payload

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"

	pkgconfig "github.com/smykla-skalski/patchlaunch/pkg/config"
)

// S3Provider reads public objects from S3 or an S3-compatible host.
type S3Provider struct {
	region    string
	endpoint  string
	pathStyle bool
}

// NewS3Provider creates an S3Provider from the cloud configuration.
func NewS3Provider(cfg *pkgconfig.CloudConfig) *S3Provider {
	p := &S3Provider{region: cfg.GetRegion()}

	if cfg != nil {
		p.endpoint = cfg.Endpoint
		p.pathStyle = cfg.PathStyle
	}

	return p
}

// Name implements Provider.
func (*S3Provider) Name() string { return "s3" }

// Open implements Provider with anonymous credentials.
//
//nolint:ireturn // Provider contract
func (p *S3Provider) Open(ctx context.Context) (Session, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(p.region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if p.endpoint != "" {
			o.BaseEndpoint = aws.String(p.endpoint)
		}

		o.UsePathStyle = p.pathStyle
	})

	return &s3Session{client: client, downloader: manager.NewDownloader(client)}, nil
}

type s3Session struct {
	client     *s3.Client
	downloader *manager.Downloader
}

func (s *s3Session) Resolve(ctx context.Context, link string) (Node, error) {
	bucket, key, err := splitBucketLink(link, "s3")
	if err != nil {
		return Node{}, err
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Node{}, classifyS3Error(err, link)
	}

	return Node{Name: key, Size: aws.ToInt64(head.ContentLength), Link: link}, nil
}

func (s *s3Session) Download(ctx context.Context, node Node, w io.WriterAt, report func(float64)) error {
	bucket, key, err := splitBucketLink(node.Link, "s3")
	if err != nil {
		return err
	}

	_, err = s.downloader.Download(ctx, newProgressWriterAt(w, node.Size, report), &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyS3Error(err, node.Link)
	}

	return nil
}

func (*s3Session) Close() error { return nil }

func classifyS3Error(err error, link string) error {
	var (
		notFound *s3types.NotFound
		noKey    *s3types.NoSuchKey
		noBucket *s3types.NoSuchBucket
	)

	if errors.As(err, &notFound) || errors.As(err, &noKey) || errors.As(err, &noBucket) {
		return errors.Mark(errors.Wrapf(err, "%s", link), ErrNotFound)
	}

	return errors.Wrapf(err, "%s", link)
}
