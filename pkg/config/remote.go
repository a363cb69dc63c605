package config

import (
	"strings"
	"time"
)

// Default values for remote configuration.
const (
	// DefaultRemoteBaseURL is the GitLab v4 API root.
	DefaultRemoteBaseURL = "https://gitlab.com/api/v4"

	// DefaultRemoteTimeout bounds every single API request.
	DefaultRemoteTimeout = 30 * time.Second

	// TagPlaceholder is replaced by the release tag in PatchBaseURL.
	TagPlaceholder = "{tag}"
)

// RemoteConfig describes the remote repository API.
type RemoteConfig struct {
	// BaseURL is the API root, e.g. "https://gitlab.com/api/v4".
	BaseURL string `json:"base_url,omitempty" koanf:"base_url" toml:"base_url,omitempty"`

	// ProjectID is the numeric id or "group/project" path of the repository.
	ProjectID string `json:"project_id,omitempty" koanf:"project_id" toml:"project_id,omitempty"`

	// Token is the private access credential sent with every API request.
	// Usually supplied through PATCHLAUNCH_REMOTE_TOKEN rather than a file.
	Token string `json:"-" koanf:"token" toml:"token,omitempty"`

	// Timeout bounds a single API request.
	// Default: "30s"
	Timeout Duration `json:"timeout,omitempty" koanf:"timeout" toml:"timeout,omitempty"`

	// PatchBaseURL is the raw-file URL prefix used by patch updates. The
	// "{tag}" placeholder is replaced with the release tag, e.g.
	// "https://gitlab.com/group/game/-/raw/{tag}/".
	PatchBaseURL string `json:"patch_base_url,omitempty" koanf:"patch_base_url" toml:"patch_base_url,omitempty"`
}

// GetBaseURL returns BaseURL without a trailing slash, or the default.
func (r *RemoteConfig) GetBaseURL() string {
	if r == nil || r.BaseURL == "" {
		return DefaultRemoteBaseURL
	}

	return strings.TrimRight(r.BaseURL, "/")
}

// GetTimeout returns the per-request timeout.
func (r *RemoteConfig) GetTimeout() time.Duration {
	if r == nil || r.Timeout == 0 {
		return DefaultRemoteTimeout
	}

	return time.Duration(r.Timeout)
}

// PatchURLForTag expands PatchBaseURL for the given tag. The result always
// ends with a slash so relative paths can be appended directly.
func (r *RemoteConfig) PatchURLForTag(tag string) string {
	if r == nil || r.PatchBaseURL == "" {
		return ""
	}

	base := strings.ReplaceAll(r.PatchBaseURL, TagPlaceholder, tag)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return base
}
