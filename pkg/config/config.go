// Package config provides configuration schema types for patchlaunch.
package config

// CurrentConfigVersion is the latest config schema version.
const CurrentConfigVersion = 1

// Config represents the root configuration for patchlaunch.
type Config struct {
	// Version is the config schema version. Defaults to 1 when omitted.
	Version int `json:"version,omitempty" koanf:"version" toml:"version,omitempty"`

	// Remote describes the repository the payload is released from.
	Remote *RemoteConfig `json:"remote,omitempty" koanf:"remote" toml:"remote,omitempty"`

	// Install describes where and how the payload is installed locally.
	Install *InstallConfig `json:"install,omitempty" koanf:"install" toml:"install,omitempty"`

	// Cloud configures the cloud object source used for full installs when
	// Install.Source is "cloud".
	Cloud *CloudConfig `json:"cloud,omitempty" koanf:"cloud" toml:"cloud,omitempty"`

	// Telemetry configures the optional ID/version/error reporting backend.
	Telemetry *TelemetryConfig `json:"telemetry,omitempty" koanf:"telemetry" toml:"telemetry,omitempty"`
}

// GetRemote returns the remote section, never nil.
func (c *Config) GetRemote() *RemoteConfig {
	if c == nil || c.Remote == nil {
		return &RemoteConfig{}
	}

	return c.Remote
}

// GetInstall returns the install section, never nil.
func (c *Config) GetInstall() *InstallConfig {
	if c == nil || c.Install == nil {
		return &InstallConfig{}
	}

	return c.Install
}

// GetCloud returns the cloud section, never nil.
func (c *Config) GetCloud() *CloudConfig {
	if c == nil || c.Cloud == nil {
		return &CloudConfig{}
	}

	return c.Cloud
}

// GetTelemetry returns the telemetry section, never nil.
func (c *Config) GetTelemetry() *TelemetryConfig {
	if c == nil || c.Telemetry == nil {
		return &TelemetryConfig{}
	}

	return c.Telemetry
}
