// Package telemetry reports installation ids, installed versions and errors
// to an optional HTTP backend. Reporting never fails the caller.
package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/fetch"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

const (
	// NoID is returned by AssignID when no id could be obtained.
	NoID = -1

	// MaxErrorLength is the longest error message sent, suffix included.
	MaxErrorLength = 256

	// DefaultTimeout bounds a single report.
	DefaultTimeout = 5 * time.Second

	maxResponseBytes = 4 << 10
	truncateSuffix   = "..."
	unknownVersion   = "na"
)

// Reporter is the telemetry backend seen by the rest of the launcher.
type Reporter interface {
	// AssignID registers this installation and returns its id, or NoID.
	AssignID(ctx context.Context, version string) int

	// UpdateVersion records the version installed under id.
	UpdateVersion(ctx context.Context, id int, tag string)

	// ReportError records the last error seen by id.
	ReportError(ctx context.Context, id int, version, msg string)
}

// Nop is the Reporter used when telemetry is disabled.
type Nop struct{}

// AssignID returns NoID.
func (Nop) AssignID(context.Context, string) int { return NoID }

// UpdateVersion does nothing.
func (Nop) UpdateVersion(context.Context, int, string) {}

// ReportError does nothing.
func (Nop) ReportError(context.Context, int, string, string) {}

// HTTPReporter posts url-encoded forms to get_id.php, update_ver.php and
// send_error.php under a base URL.
type HTTPReporter struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	logger  logger.Logger
}

// Option configures an HTTPReporter.
type Option func(*HTTPReporter)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *HTTPReporter) {
		if c != nil {
			r.client = c
		}
	}
}

// WithTimeout bounds every report.
func WithTimeout(d time.Duration) Option {
	return func(r *HTTPReporter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(log logger.Logger) Option {
	return func(r *HTTPReporter) {
		if log != nil {
			r.logger = log
		}
	}
}

// NewHTTPReporter creates a reporter for the endpoints under baseURL.
func NewHTTPReporter(baseURL string, opts ...Option) *HTTPReporter {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	r := &HTTPReporter{
		client:  http.DefaultClient,
		baseURL: baseURL,
		timeout: DefaultTimeout,
		logger:  logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// AssignID implements Reporter. The backend answers "id=N".
func (r *HTTPReporter) AssignID(ctx context.Context, version string) int {
	body, err := r.post(ctx, "get_id.php", url.Values{"version": {version}})
	if err != nil {
		r.logger.Debug("telemetry id assignment failed", "error", err)

		return NoID
	}

	key, value, found := strings.Cut(strings.TrimSpace(body), "=")
	if !found || key != "id" {
		r.logger.Debug("telemetry id response not understood", "body", body)

		return NoID
	}

	id, err := strconv.Atoi(value)
	if err != nil {
		r.logger.Debug("telemetry id is not a number", "body", body)

		return NoID
	}

	return id
}

// UpdateVersion implements Reporter.
func (r *HTTPReporter) UpdateVersion(ctx context.Context, id int, tag string) {
	form := url.Values{
		"version": {FormatVersionTag(tag)},
		"id":      {strconv.Itoa(id)},
	}

	if _, err := r.post(ctx, "update_ver.php", form); err != nil {
		r.logger.Debug("telemetry version update failed", "error", err)
	}
}

// ReportError implements Reporter.
func (r *HTTPReporter) ReportError(ctx context.Context, id int, version, msg string) {
	form := url.Values{
		"version": {version},
		"id":      {strconv.Itoa(id)},
		"error":   {Truncate(msg, MaxErrorLength)},
	}

	if _, err := r.post(ctx, "send_error.php", form); err != nil {
		r.logger.Debug("telemetry error report failed", "error", err)
	}
}

func (r *HTTPReporter) post(ctx context.Context, endpoint string, form url.Values) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		r.baseURL+endpoint,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", errors.Wrap(err, "creating request")
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "posting %s", endpoint), fetch.ErrNetwork)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only response body

	if !fetch.IsSuccess(resp.StatusCode) {
		return "", fetch.NewStatusError(http.MethodPost, r.baseURL+endpoint, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.Wrap(err, "reading response")
	}

	return string(data), nil
}

// Truncate shortens s to at most maxLen runes, replacing the tail with "..."
// when it had to cut.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	return string(runes[:maxLen-len(truncateSuffix)]) + truncateSuffix
}

// FormatVersionTag zero-pads single-character dot components so tags sort
// lexically: "1.2.10" becomes "01.02.10". An empty tag becomes "na".
func FormatVersionTag(tag string) string {
	if tag == "" {
		return unknownVersion
	}

	parts := strings.Split(tag, ".")
	for i, p := range parts {
		if len([]rune(p)) == 1 {
			parts[i] = "0" + p
		}
	}

	return strings.Join(parts, ".")
}
