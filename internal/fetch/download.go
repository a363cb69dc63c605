// Package fetch provides the HTTP transfer primitives shared by payload sources.
package fetch

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
)

// UnknownLength is reported as total when the server does not advertise a size.
const UnknownLength int64 = -1

// ProgressFunc is called during download with bytes received and total bytes.
// Total is UnknownLength if the server doesn't send Content-Length.
type ProgressFunc func(received, total int64)

// Option configures a Downloader.
type Option func(*Downloader)

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(d *Downloader) {
		d.headers.Set(key, value)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return WithHeader("User-Agent", ua)
}

// Downloader handles HTTP downloads.
type Downloader struct {
	client  *http.Client
	headers http.Header
}

// NewDownloader creates a new Downloader with the given HTTP client.
func NewDownloader(client *http.Client, opts ...Option) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}

	d := &Downloader{client: client, headers: make(http.Header)}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Probe issues a HEAD request and returns the advertised length, or
// UnknownLength when the server does not say or does not support HEAD.
//
//nolint:gosec // G107: URL comes from the resolved release or configuration
func (d *Downloader) Probe(ctx context.Context, url string) (int64, error) {
	resp, err := d.do(ctx, http.MethodHead, url)
	if err != nil {
		return UnknownLength, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on response body

	switch {
	case IsSuccess(resp.StatusCode):
		if resp.ContentLength < 0 {
			return UnknownLength, nil
		}

		return resp.ContentLength, nil

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return UnknownLength, NewStatusError(http.MethodHead, url, resp.StatusCode)

	default:
		return UnknownLength, nil
	}
}

// ToFile downloads a URL to a local file path, creating or truncating it.
// A partially written file is removed on failure.
func (d *Downloader) ToFile(
	ctx context.Context,
	url, destPath string,
	progress ProgressFunc,
) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on response body

	out, err := os.Create(destPath) //nolint:gosec // destPath is validated by the caller
	if err != nil {
		return errors.Wrap(err, "creating destination file")
	}

	if _, copyErr := io.Copy(out, wrapProgress(resp, progress)); copyErr != nil {
		_ = out.Close()
		_ = os.Remove(destPath)

		return errors.Mark(errors.Wrapf(copyErr, "writing %s", destPath), ErrNetwork)
	}

	return errors.Wrap(out.Close(), "closing destination file")
}

// ToWriter streams a URL into w and returns the number of bytes written.
func (d *Downloader) ToWriter(
	ctx context.Context,
	url string,
	w io.Writer,
	progress ProgressFunc,
) (int64, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on response body

	n, err := io.Copy(w, wrapProgress(resp, progress))
	if err != nil {
		return n, errors.Mark(errors.Wrap(err, "streaming download"), ErrNetwork)
	}

	return n, nil
}

func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	resp, err := d.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	if !IsSuccess(resp.StatusCode) {
		_ = resp.Body.Close()

		return nil, NewStatusError(http.MethodGet, url, resp.StatusCode)
	}

	return resp, nil
}

//nolint:gosec // G107: URL comes from the resolved release or configuration
func (d *Downloader) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	for key, values := range d.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, transportError(err, url)
	}

	return resp, nil
}

func wrapProgress(resp *http.Response, progress ProgressFunc) io.Reader {
	if progress == nil {
		return resp.Body
	}

	total := resp.ContentLength
	if total < 0 {
		total = UnknownLength
	}

	return &progressReader{reader: resp.Body, total: total, callback: progress}
}

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader   io.Reader
	total    int64
	received int64
	callback ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.received += int64(n)

	if n > 0 {
		r.callback(r.received, r.total)
	}

	return n, err
}
