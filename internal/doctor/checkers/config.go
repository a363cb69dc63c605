// Package checkers provides the health checks and fixers of the doctor
// command.
package checkers

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	internalconfig "github.com/smykla-skalski/patchlaunch/internal/config"
	"github.com/smykla-skalski/patchlaunch/internal/doctor"
	"github.com/smykla-skalski/patchlaunch/pkg/config"
)

// FixConfigPermissions is the fixer id for world-writable config files.
const FixConfigPermissions = "fix_config_permissions"

const configCheckName = "Configuration valid"

// LoadFunc loads and validates the effective configuration.
type LoadFunc func() (*config.Config, error)

// ConfigChecker checks that the layered configuration loads and validates.
type ConfigChecker struct {
	load  LoadFunc
	paths []string
}

// NewConfigChecker creates a config checker. paths are the files reported
// when loading fails.
func NewConfigChecker(load LoadFunc, paths ...string) *ConfigChecker {
	return &ConfigChecker{load: load, paths: paths}
}

// Name returns the name of the check
func (*ConfigChecker) Name() string {
	return configCheckName
}

// Category returns the category of the check
func (*ConfigChecker) Category() doctor.Category {
	return doctor.CategoryConfig
}

// Check performs the config validity check
func (c *ConfigChecker) Check(_ context.Context) doctor.CheckResult {
	cfg, err := c.load()

	switch {
	case err == nil:
		return doctor.Pass(configCheckName, "project "+cfg.GetRemote().ProjectID)
	case errors.Is(err, internalconfig.ErrInvalidPermissions):
		return doctor.Fail(configCheckName, "Insecure file permissions").
			WithDetails(c.fileDetails(err)...).
			WithFixID(FixConfigPermissions)
	case errors.Is(err, internalconfig.ErrConfigNotFound):
		return doctor.Fail(configCheckName, "Config file not found").
			WithDetails(fmt.Sprintf("Error: %v", err)).
			WithHint("patchlaunch config init --project <group/project>")
	case errors.Is(err, internalconfig.ErrInvalidConfig),
		errors.Is(err, internalconfig.ErrEmptyValue),
		errors.Is(err, internalconfig.ErrInvalidURL),
		errors.Is(err, internalconfig.ErrInvalidOption):
		return doctor.Fail(configCheckName, "Configuration validation failed").
			WithDetails(c.fileDetails(err)...).
			WithHint("patchlaunch config show")
	default:
		return doctor.Fail(configCheckName, "Failed to load").
			WithDetails(c.fileDetails(err)...)
	}
}

func (c *ConfigChecker) fileDetails(err error) []string {
	details := make([]string, 0, len(c.paths)+1)

	for _, p := range c.paths {
		details = append(details, "File: "+p)
	}

	return append(details, fmt.Sprintf("Error: %v", err))
}
