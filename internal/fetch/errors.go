package fetch

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNetwork marks transport failures and unexpected HTTP statuses.
	ErrNetwork = errors.New("network error")

	// ErrNotFound marks responses for resources that do not exist (HTTP 404 or 410).
	ErrNotFound = errors.New("not found")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

// Error returns the error message.
func (e *StatusError) Error() string {
	return fmt.Sprintf(
		"%s %s: HTTP %d %s",
		e.Method,
		e.URL,
		e.StatusCode,
		http.StatusText(e.StatusCode),
	)
}

// NewStatusError builds a *StatusError marked with ErrNotFound for 404/410
// and ErrNetwork for everything else.
func NewStatusError(method, url string, statusCode int) error {
	err := &StatusError{Method: method, URL: url, StatusCode: statusCode}

	if statusCode == http.StatusNotFound || statusCode == http.StatusGone {
		return errors.Mark(err, ErrNotFound)
	}

	return errors.Mark(err, ErrNetwork)
}

// transportError marks a client.Do failure as ErrNetwork.
func transportError(err error, url string) error {
	return errors.Mark(errors.Wrapf(err, "requesting %s", url), ErrNetwork)
}

// IsSuccess reports whether statusCode is 2xx.
func IsSuccess(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}
