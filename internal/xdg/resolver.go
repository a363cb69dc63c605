package xdg

import "path/filepath"

// PathResolver resolves XDG-based paths for patchlaunch.
// The default implementation uses os.UserHomeDir() and XDG env vars.
// Use ResolverFor() when paths should be relative to a specific home directory.
type PathResolver interface {
	GlobalConfigFile() string
	ConfigDir() string
	StateFile() string
}

// DefaultResolver returns a PathResolver using real XDG paths.
func DefaultResolver() PathResolver {
	return defaultResolver{}
}

type defaultResolver struct{}

func (defaultResolver) GlobalConfigFile() string { return GlobalConfigFile() }
func (defaultResolver) ConfigDir() string        { return ConfigDir() }
func (defaultResolver) StateFile() string        { return StateFile() }

// ResolverFor returns a PathResolver rooted at homeDir, ignoring XDG env vars.
func ResolverFor(homeDir string) PathResolver {
	return homeResolver{homeDir: homeDir}
}

type homeResolver struct {
	homeDir string
}

func (r homeResolver) ConfigDir() string {
	return filepath.Join(r.homeDir, ".config", appName)
}

func (r homeResolver) GlobalConfigFile() string {
	return filepath.Join(r.ConfigDir(), "config.toml")
}

func (r homeResolver) StateFile() string {
	return filepath.Join(r.homeDir, ".local", "state", appName, "state.toml")
}
