package config

import "time"

// DefaultTelemetryTimeout bounds a single telemetry request.
const DefaultTelemetryTimeout = 5 * time.Second

// TelemetryConfig configures the optional reporting backend.
type TelemetryConfig struct {
	// Enabled turns reporting on.
	// Default: false
	Enabled bool `json:"enabled,omitempty" koanf:"enabled" toml:"enabled,omitempty"`

	// BaseURL is the prefix of the get_id/update_ver/send_error endpoints.
	BaseURL string `json:"base_url,omitempty" koanf:"base_url" toml:"base_url,omitempty"`

	// Timeout bounds a single report.
	// Default: "5s"
	Timeout Duration `json:"timeout,omitempty" koanf:"timeout" toml:"timeout,omitempty"`
}

// IsEnabled reports whether telemetry should be sent.
func (t *TelemetryConfig) IsEnabled() bool {
	return t != nil && t.Enabled && t.BaseURL != ""
}

// GetTimeout returns the per-report timeout.
func (t *TelemetryConfig) GetTimeout() time.Duration {
	if t == nil || t.Timeout == 0 {
		return DefaultTelemetryTimeout
	}

	return time.Duration(t.Timeout)
}
