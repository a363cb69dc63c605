// Package xdg provides path management following XDG Base Directory conventions.
// All user-level paths patchlaunch touches on disk are defined here.
// Project-local paths (.patchlaunch/config.toml, patchlaunch.toml) remain in internal/config.
package xdg

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const appName = "patchlaunch"

const (
	// EnvLogFile overrides the log file location.
	EnvLogFile = "PATCHLAUNCH_LOG_FILE"

	// EnvStateFile overrides the persisted state file location.
	EnvStateFile = "PATCHLAUNCH_STATE_FILE"
)

func userHome() (string, error) {
	return os.UserHomeDir()
}

// --- XDG base directory functions ---

// ConfigHome returns $XDG_CONFIG_HOME or ~/.config.
func ConfigHome() string {
	return baseDir("XDG_CONFIG_HOME", ".config")
}

// StateHome returns $XDG_STATE_HOME or ~/.local/state.
func StateHome() string {
	return baseDir("XDG_STATE_HOME", ".local", "state")
}

// CacheHome returns $XDG_CACHE_HOME or ~/.cache.
func CacheHome() string {
	return baseDir("XDG_CACHE_HOME", ".cache")
}

func baseDir(envKey string, fallback ...string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}

	home, err := userHome()
	if err != nil {
		return filepath.Join(append([]string{"~"}, fallback...)...)
	}

	return filepath.Join(append([]string{home}, fallback...)...)
}

// --- patchlaunch-specific directories ---

// ConfigDir returns ConfigHome()/patchlaunch.
func ConfigDir() string {
	return filepath.Join(ConfigHome(), appName)
}

// StateDir returns StateHome()/patchlaunch.
func StateDir() string {
	return filepath.Join(StateHome(), appName)
}

// CacheDir returns CacheHome()/patchlaunch.
func CacheDir() string {
	return filepath.Join(CacheHome(), appName)
}

// --- Specific file paths ---

// GlobalConfigFile returns ConfigDir()/config.toml.
func GlobalConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LogFile returns the log file path.
// Respects PATCHLAUNCH_LOG_FILE, otherwise StateDir()/patchlaunch.log.
func LogFile() string {
	if v := os.Getenv(EnvLogFile); v != "" {
		return v
	}

	return filepath.Join(StateDir(), "patchlaunch.log")
}

// CrashDir returns StateDir()/crashes.
func CrashDir() string {
	return filepath.Join(StateDir(), "crashes")
}

// StateFile returns the persisted revision state path.
// Respects PATCHLAUNCH_STATE_FILE, otherwise StateDir()/state.toml.
func StateFile() string {
	if v := os.Getenv(EnvStateFile); v != "" {
		return v
	}

	return filepath.Join(StateDir(), "state.toml")
}

// --- Utility functions ---

// ExpandPath resolves ~ prefix to the user's home directory.
// Returns the path unchanged if it doesn't start with ~.
// Returns error for invalid tilde usage like "~foo".
func ExpandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := userHome()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}

	switch {
	case path == "~":
		return home, nil
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(home, path[2:]), nil
	default:
		return "", errors.Newf("paths starting with ~ must be either ~ or ~/subdir, got %q", path)
	}
}

// ExpandPathSilent resolves ~ prefix, returning the original path on error.
func ExpandPathSilent(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}

	return expanded
}

// EnsureDir creates a directory with 0700 permissions if it doesn't exist,
// and fixes permissions on existing directories if they're too open.
func EnsureDir(path string) error {
	const dirMode = 0o700

	if err := os.MkdirAll(path, dirMode); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", path)
	}

	// MkdirAll only sets perms on new dirs.
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "failed to stat directory %s", path)
	}

	if info.Mode().Perm() != dirMode {
		if err := os.Chmod(path, dirMode); err != nil {
			return errors.Wrapf(err, "failed to set permissions on %s", path)
		}
	}

	return nil
}
