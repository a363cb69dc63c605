package config

// Default values for install configuration.
const (
	// DefaultInstallDir is the installation directory name under the work dir.
	DefaultInstallDir = "Game"

	// DefaultSource is the payload source used for full installs.
	DefaultSource = SourceArchive
)

// InstallConfig describes the local installation.
type InstallConfig struct {
	// Dir is the installation directory name, relative to WorkDir.
	// Default: "Game"
	Dir string `json:"dir,omitempty" koanf:"dir" toml:"dir,omitempty"`

	// WorkDir is the directory the installation lives in.
	// Default: the process working directory.
	WorkDir string `json:"work_dir,omitempty" koanf:"work_dir" toml:"work_dir,omitempty"`

	// Executable is the file name launched after a successful install.
	Executable string `json:"executable,omitempty" koanf:"executable" toml:"executable,omitempty"`

	// Source selects the full-install payload source: "archive" or "cloud".
	// Default: "archive"
	Source SourceKind `json:"source,omitempty" koanf:"source" toml:"source,omitempty"`
}

// GetDir returns the installation directory name.
func (i *InstallConfig) GetDir() string {
	if i == nil || i.Dir == "" {
		return DefaultInstallDir
	}

	return i.Dir
}

// GetSource returns the configured source kind.
func (i *InstallConfig) GetSource() SourceKind {
	if i == nil || i.Source == "" {
		return DefaultSource
	}

	return i.Source
}
