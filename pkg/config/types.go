package config

import (
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidSource is returned when an unknown payload source is configured.
	ErrInvalidSource = errors.New("invalid source")

	// ErrNegativeDuration is returned when a negative duration is provided.
	ErrNegativeDuration = errors.New("duration must be non-negative")
)

// SourceKind selects the payload source used for full installs.
type SourceKind string

const (
	// SourceArchive downloads the release source archive over HTTP.
	SourceArchive SourceKind = "archive"

	// SourceCloud downloads a single object from a cloud storage provider.
	SourceCloud SourceKind = "cloud"
)

// ParseSourceKind parses a string into a SourceKind value.
func ParseSourceKind(s string) (SourceKind, error) {
	switch kind := SourceKind(s); kind {
	case SourceArchive, SourceCloud:
		return kind, nil
	default:
		return "", errors.Wrapf(
			ErrInvalidSource,
			"%q, must be %q or %q",
			s,
			SourceArchive,
			SourceCloud,
		)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SourceKind) UnmarshalText(text []byte) error {
	kind, err := ParseSourceKind(string(text))
	if err != nil {
		return err
	}

	*k = kind

	return nil
}

// Duration wraps time.Duration for TOML parsing.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrap(err, "invalid duration")
	}

	if dur < 0 {
		return errors.Wrapf(ErrNegativeDuration, "got %s", dur)
	}

	*d = Duration(dur)

	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML serialization.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// String returns the string representation of the duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ToDuration converts Duration to time.Duration.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
