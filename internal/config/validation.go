package config

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/pkg/config"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyValue is returned when a required value is empty.
	ErrEmptyValue = errors.New("empty value not allowed")

	// ErrInvalidURL is returned when a URL value cannot be used.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidOption is returned when an option value is invalid.
	ErrInvalidOption = errors.New("invalid option value")
)

// Validator validates configuration semantics.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the entire configuration.
// Returns an error describing all validation failures.
func (v *Validator) Validate(cfg *config.Config) error {
	if cfg == nil {
		return errors.WithMessage(ErrInvalidConfig, "config is nil")
	}

	var validationErrors []error

	validationErrors = append(validationErrors, v.validateRemote(cfg.GetRemote())...)
	validationErrors = append(validationErrors, v.validateInstall(cfg.GetInstall(), cfg.GetCloud())...)
	validationErrors = append(validationErrors, v.validateTelemetry(cfg.GetTelemetry())...)

	if len(validationErrors) > 0 {
		return errors.WithSecondaryError(
			errors.Wrapf(
				ErrInvalidConfig,
				"validation failed with %d error(s)",
				len(validationErrors),
			),
			combineErrors(validationErrors),
		)
	}

	return nil
}

func (*Validator) validateRemote(cfg *config.RemoteConfig) []error {
	var errs []error

	if strings.TrimSpace(cfg.ProjectID) == "" {
		errs = append(errs, errors.Wrap(ErrEmptyValue, "remote.project_id"))
	}

	if err := validateHTTPURL(cfg.GetBaseURL()); err != nil {
		errs = append(errs, errors.Wrap(err, "remote.base_url"))
	}

	if cfg.PatchBaseURL != "" {
		if err := validateHTTPURL(cfg.PatchURLForTag("tag")); err != nil {
			errs = append(errs, errors.Wrap(err, "remote.patch_base_url"))
		}
	}

	return errs
}

func (*Validator) validateInstall(cfg *config.InstallConfig, cloud *config.CloudConfig) []error {
	var errs []error

	dir := cfg.GetDir()
	if dir == "." || dir == ".." || strings.ContainsAny(dir, `/\`) {
		errs = append(errs, errors.Wrapf(
			ErrInvalidOption,
			"install.dir must be a plain directory name, got %q",
			dir,
		))
	}

	if _, err := config.ParseSourceKind(string(cfg.GetSource())); err != nil {
		errs = append(errs, errors.Wrap(err, "install.source"))
	}

	if cfg.GetSource() == config.SourceCloud && strings.TrimSpace(cloud.Link) == "" {
		errs = append(errs, errors.Wrap(ErrEmptyValue, "cloud.link is required when install.source is cloud"))
	}

	return errs
}

func (*Validator) validateTelemetry(cfg *config.TelemetryConfig) []error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.BaseURL == "" {
		return []error{errors.Wrap(ErrEmptyValue, "telemetry.base_url is required when telemetry is enabled")}
	}

	if err := validateHTTPURL(cfg.BaseURL); err != nil {
		return []error{errors.Wrap(err, "telemetry.base_url")}
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(ErrInvalidURL, "%q: %v", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Wrapf(ErrInvalidURL, "%q must use http or https", raw)
	}

	if u.Host == "" {
		return errors.Wrapf(ErrInvalidURL, "%q has no host", raw)
	}

	return nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return errors.Join(errs...)
}
