// Package crashdump records diagnostic snapshots when patchlaunch panics.
package crashdump

import "time"

const (
	// DefaultMaxDumps is the number of dumps kept after pruning.
	DefaultMaxDumps = 10

	// DefaultMaxAge is the age after which dumps are pruned.
	DefaultMaxAge = 30 * 24 * time.Hour
)

// CrashInfo is the content of one crash dump.
type CrashInfo struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	PanicValue string         `json:"panic_value"`
	StackTrace string         `json:"stack_trace"`
	Operation  string         `json:"operation,omitempty"`
	Runtime    RuntimeInfo    `json:"runtime"`
	Metadata   DumpMetadata   `json:"metadata"`
	Install    *InstallInfo   `json:"install,omitempty"`
	Config     map[string]any `json:"config,omitempty"`
}

// InstallInfo is the installation the launcher was working on. It comes
// from local state only.
type InstallInfo struct {
	Tag      string `json:"tag,omitempty"`
	Revision string `json:"revision,omitempty"`
	Root     string `json:"root,omitempty"`
	Mutating bool   `json:"mutating"`
}

// RuntimeInfo describes the Go runtime at the time of the crash.
type RuntimeInfo struct {
	GOOS         string `json:"goos"`
	GOARCH       string `json:"goarch"`
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
}

// DumpMetadata holds environment details.
type DumpMetadata struct {
	Version    string `json:"version"`
	User       string `json:"user,omitempty"`
	Hostname   string `json:"hostname,omitempty"`
	WorkingDir string `json:"working_dir,omitempty"`
}

// DumpSummary is the listing entry of a dump.
type DumpSummary struct {
	ID         string
	Timestamp  time.Time
	PanicValue string
	FilePath   string
	Size       int64
}
