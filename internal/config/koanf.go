// Package config provides internal configuration loading and processing.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/smykla-skalski/patchlaunch/internal/xdg"
	"github.com/smykla-skalski/patchlaunch/pkg/config"
)

var (
	// ErrConfigNotFound is returned when an explicitly requested configuration file is missing.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidPermissions is returned when config file has insecure permissions.
	ErrInvalidPermissions = errors.New("config file has insecure permissions")
)

const (
	// EnvPrefix is the prefix of environment variables mapped onto config keys.
	EnvPrefix = "PATCHLAUNCH_"

	// ProjectConfigDir is the directory name for project configuration.
	ProjectConfigDir = ".patchlaunch"

	// ProjectConfigFile is the primary project configuration file name.
	ProjectConfigFile = "config.toml"

	// ProjectConfigFileAlt is the alternative project configuration file name.
	ProjectConfigFileAlt = "patchlaunch.toml"
)

// KoanfLoader handles configuration loading from multiple sources using koanf.
// Precedence order (highest to lowest):
// 1. CLI Flags
// 2. Environment Variables (PATCHLAUNCH_*)
// 3. Project Config (.patchlaunch/config.toml or patchlaunch.toml)
// 4. Global Config ($XDG_CONFIG_HOME/patchlaunch/config.toml)
// 5. Defaults
type KoanfLoader struct {
	k        *koanf.Koanf
	resolver xdg.PathResolver
	workDir  string
	explicit string
}

// NewKoanfLoader creates a new KoanfLoader using XDG paths and the process working directory.
func NewKoanfLoader() (*KoanfLoader, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get working directory")
	}

	return newKoanfLoader(xdg.DefaultResolver(), workDir), nil
}

// NewKoanfLoaderWithDirs creates a new KoanfLoader with custom directories (for testing).
func NewKoanfLoaderWithDirs(homeDir, workDir string) (*KoanfLoader, error) {
	return newKoanfLoader(xdg.ResolverFor(homeDir), workDir), nil
}

func newKoanfLoader(resolver xdg.PathResolver, workDir string) *KoanfLoader {
	return &KoanfLoader{
		k:        koanf.New("."),
		resolver: resolver,
		workDir:  workDir,
	}
}

// WithConfigFile makes the loader read path instead of discovering a project
// config. A missing file is then an error.
func (l *KoanfLoader) WithConfigFile(path string) *KoanfLoader {
	l.explicit = path

	return l
}

// Load loads configuration from all sources with precedence and validates it.
func (l *KoanfLoader) Load(flags map[string]any) (*config.Config, error) {
	cfg, err := l.LoadWithoutValidation(flags)
	if err != nil {
		return nil, err
	}

	if err := NewValidator().Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// LoadWithoutValidation loads configuration without running validation.
// Defaults → Global TOML → Project TOML → Env Vars → CLI Flags
func (l *KoanfLoader) LoadWithoutValidation(flags map[string]any) (*config.Config, error) {
	l.k = koanf.New(".")

	if err := l.k.Load(confmap.Provider(defaultsToMap(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	globalPath := l.GlobalConfigPath()
	if err := l.loadTOMLFile(globalPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load global config")
	}

	if err := l.loadProjectConfig(); err != nil {
		return nil, err
	}

	envOpt := env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform,
	}

	if err := l.k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if len(flags) > 0 {
		if err := l.k.Load(confmap.Provider(flagsToConfig(flags), "."), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg config.Config

	unmarshalConf := koanf.UnmarshalConf{
		Tag:           "koanf",
		DecoderConfig: decoderConfig(&cfg),
	}

	if err := l.k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if cfg.Install != nil && cfg.Install.WorkDir != "" {
		cfg.Install.WorkDir = xdg.ExpandPathSilent(cfg.Install.WorkDir)
	}

	return &cfg, nil
}

func (l *KoanfLoader) loadProjectConfig() error {
	if l.explicit != "" {
		if !fileExists(l.explicit) {
			return errors.Wrapf(ErrConfigNotFound, "%s", l.explicit)
		}

		if err := l.loadTOMLFile(l.explicit); err != nil {
			return errors.Wrapf(err, "failed to load config %s", l.explicit)
		}

		return nil
	}

	projectPath := l.findProjectConfig()
	if projectPath == "" {
		return nil
	}

	if err := l.loadTOMLFile(projectPath); err != nil {
		return errors.Wrap(err, "failed to load project config")
	}

	return nil
}

// loadTOMLFile loads a TOML configuration file with security checks.
func (l *KoanfLoader) loadTOMLFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	// World-writable config could redirect downloads.
	if info.Mode().Perm()&0o002 != 0 {
		return errors.Wrapf(
			ErrInvalidPermissions,
			"%s is world-writable (mode: %s)",
			path,
			info.Mode().Perm(),
		)
	}

	return l.k.Load(file.Provider(path), tomlparser.Parser())
}

// envTransform maps environment variable names to config paths. The first
// segment after the prefix is the section, the rest is the key:
// PATCHLAUNCH_REMOTE_PATCH_BASE_URL → remote.patch_base_url
func envTransform(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key, value
	}

	return section + "." + rest, value
}

// GlobalConfigPath returns the path to the global configuration file.
func (l *KoanfLoader) GlobalConfigPath() string {
	return l.resolver.GlobalConfigFile()
}

// ProjectConfigPaths returns the paths to check for project configuration.
func (l *KoanfLoader) ProjectConfigPaths() []string {
	return []string{
		filepath.Join(l.workDir, ProjectConfigDir, ProjectConfigFile),
		filepath.Join(l.workDir, ProjectConfigFileAlt),
	}
}

func (l *KoanfLoader) findProjectConfig() string {
	for _, path := range l.ProjectConfigPaths() {
		if fileExists(path) {
			return path
		}
	}

	return ""
}

// HasGlobalConfig checks if a global configuration file exists.
func (l *KoanfLoader) HasGlobalConfig() bool {
	return fileExists(l.GlobalConfigPath())
}

// HasProjectConfig checks if a project configuration file exists.
func (l *KoanfLoader) HasProjectConfig() bool {
	return l.findProjectConfig() != ""
}

// flagsToConfig converts CLI flags to a configuration map. Unknown flags and
// zero values are ignored so they never shadow lower layers.
func flagsToConfig(flags map[string]any) map[string]any {
	result := make(map[string]any)

	set := func(section, key string, value any) {
		switch v := value.(type) {
		case string:
			if v == "" {
				return
			}
		case bool:
			if !v {
				return
			}
		}

		ensureMapKey(result, section)[key] = value
	}

	for name, value := range flags {
		switch name {
		case "project":
			set("remote", "project_id", value)
		case "base-url":
			set("remote", "base_url", value)
		case "token":
			set("remote", "token", value)
		case "timeout":
			set("remote", "timeout", value)
		case "workdir":
			set("install", "work_dir", value)
		case "install-dir":
			set("install", "dir", value)
		case "source":
			set("install", "source", value)
		case "executable":
			set("install", "executable", value)
		case "telemetry":
			set("telemetry", "enabled", value)
		}
	}

	return result
}

// ensureMapKey ensures a key exists as a map and returns it.
func ensureMapKey(cfg map[string]any, key string) map[string]any {
	if _, ok := cfg[key]; !ok {
		cfg[key] = make(map[string]any)
	}

	result, _ := cfg[key].(map[string]any)

	return result
}

// defaultsToMap converts the default configuration to a map for koanf loading.
func defaultsToMap() map[string]any {
	return map[string]any{
		"version": config.CurrentConfigVersion,
		"remote": map[string]any{
			"base_url": config.DefaultRemoteBaseURL,
			"timeout":  config.DefaultRemoteTimeout.String(),
		},
		"install": map[string]any{
			"dir":    config.DefaultInstallDir,
			"source": string(config.DefaultSource),
		},
		"cloud": map[string]any{
			"region": config.DefaultCloudRegion,
		},
		"telemetry": map[string]any{
			"enabled": false,
			"timeout": config.DefaultTelemetryTimeout.String(),
		},
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
