package payload

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/cockroachdb/errors"
)

const azureBlobHostSuffix = ".blob.core.windows.net"

// AzureProvider reads public blobs from Azure Storage.
type AzureProvider struct{}

// NewAzureProvider creates an AzureProvider.
func NewAzureProvider() *AzureProvider {
	return &AzureProvider{}
}

// Name implements Provider.
func (*AzureProvider) Name() string { return "azblob" }

// Open implements Provider. Clients are per account, so they are created
// lazily in Resolve.
//
//nolint:ireturn // Provider contract
func (*AzureProvider) Open(context.Context) (Session, error) {
	return &azureSession{clients: make(map[string]*azblob.Client)}, nil
}

type azureSession struct {
	clients map[string]*azblob.Client
}

type blobRef struct {
	serviceURL string
	container  string
	blob       string
}

func parseBlobLink(link string) (blobRef, error) {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return blobRef{}, errors.Wrapf(ErrUnsupportedLink, "%q is not a blob URL", link)
	}

	container, blob, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if container == "" || blob == "" {
		return blobRef{}, errors.Wrapf(ErrUnsupportedLink, "%q needs a container and a blob", link)
	}

	return blobRef{
		serviceURL: u.Scheme + "://" + u.Host + "/",
		container:  container,
		blob:       blob,
	}, nil
}

func (s *azureSession) client(serviceURL string) (*azblob.Client, error) {
	if c, ok := s.clients[serviceURL]; ok {
		return c, nil
	}

	c, err := azblob.NewClientWithNoCredential(serviceURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "creating blob client for %s", serviceURL)
	}

	s.clients[serviceURL] = c

	return c, nil
}

func (s *azureSession) Resolve(ctx context.Context, link string) (Node, error) {
	ref, err := parseBlobLink(link)
	if err != nil {
		return Node{}, err
	}

	c, err := s.client(ref.serviceURL)
	if err != nil {
		return Node{}, err
	}

	props, err := c.ServiceClient().
		NewContainerClient(ref.container).
		NewBlobClient(ref.blob).
		GetProperties(ctx, nil)
	if err != nil {
		return Node{}, classifyBlobError(err, link)
	}

	var size int64
	if props.ContentLength != nil {
		size = *props.ContentLength
	}

	return Node{Name: ref.blob, Size: size, Link: link}, nil
}

func (s *azureSession) Download(ctx context.Context, node Node, w io.WriterAt, report func(float64)) error {
	ref, err := parseBlobLink(node.Link)
	if err != nil {
		return err
	}

	c, err := s.client(ref.serviceURL)
	if err != nil {
		return err
	}

	resp, err := c.DownloadStream(ctx, ref.container, ref.blob, nil)
	if err != nil {
		return classifyBlobError(err, node.Link)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only blob stream

	return copyWithProgress(w, resp.Body, node.Size, report)
}

func (s *azureSession) Close() error {
	clear(s.clients)

	return nil
}

func classifyBlobError(err error, link string) error {
	if bloberror.HasCode(err,
		bloberror.BlobNotFound,
		bloberror.ContainerNotFound,
		bloberror.ResourceNotFound,
	) {
		return errors.Mark(errors.Wrapf(err, "%s", link), ErrNotFound)
	}

	return errors.Wrapf(err, "%s", link)
}
