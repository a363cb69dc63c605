package config

import (
	"github.com/smykla-skalski/patchlaunch/pkg/config"
)

// DefaultConfig returns a Config with all default values populated.
func DefaultConfig() *config.Config {
	return &config.Config{
		Version:   config.CurrentConfigVersion,
		Remote:    DefaultRemoteConfig(),
		Install:   DefaultInstallConfig(),
		Cloud:     DefaultCloudConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultRemoteConfig returns the default remote configuration. ProjectID has
// no default and must be configured.
func DefaultRemoteConfig() *config.RemoteConfig {
	return &config.RemoteConfig{
		BaseURL: config.DefaultRemoteBaseURL,
		Timeout: config.Duration(config.DefaultRemoteTimeout),
	}
}

// DefaultInstallConfig returns the default install configuration.
func DefaultInstallConfig() *config.InstallConfig {
	return &config.InstallConfig{
		Dir:    config.DefaultInstallDir,
		Source: config.DefaultSource,
	}
}

// DefaultCloudConfig returns the default cloud configuration.
func DefaultCloudConfig() *config.CloudConfig {
	return &config.CloudConfig{
		Region: config.DefaultCloudRegion,
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() *config.TelemetryConfig {
	return &config.TelemetryConfig{
		Timeout: config.Duration(config.DefaultTelemetryTimeout),
	}
}
