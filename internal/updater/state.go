package updater

import (
	"github.com/smykla-skalski/patchlaunch/internal/release"
)

// State is the lifecycle state of the installation.
type State int

const (
	// StateNotInstalled means no installation exists and a release is available.
	StateNotInstalled State = iota
	// StateInstalling means a full install is running.
	StateInstalling
	// StateCurrent means the installation matches the latest release, or the
	// remote could not be reached.
	StateCurrent
	// StateStale means a newer release exists.
	StateStale
	// StateUpdating means a patch is being applied.
	StateUpdating
	// StateFailed means the last install, update or recovery failed.
	StateFailed
	// StateUnavailable means nothing is installed and no release could be resolved.
	StateUnavailable
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotInstalled:
		return "not installed"
	case StateInstalling:
		return "installing"
	case StateCurrent:
		return "current"
	case StateStale:
		return "stale"
	case StateUpdating:
		return "updating"
	case StateFailed:
		return "failed"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Status is a snapshot of what the orchestrator knows.
type Status struct {
	State             State
	Installed         bool
	Reachable         bool
	InstalledRevision release.Revision
	InstalledTag      string
	Latest            release.Release
	RepairRequired    bool
	LastError         error
}

// CanInstall reports whether Install is allowed.
func (s Status) CanInstall() bool {
	if s.RepairRequired {
		return false
	}

	return s.State == StateNotInstalled || (s.State == StateFailed && !s.Installed)
}

// CanUpdate reports whether Update is allowed.
func (s Status) CanUpdate() bool {
	if s.RepairRequired {
		return false
	}

	return s.State == StateStale || (s.State == StateFailed && s.Installed)
}

// CanRecover reports whether Recover is worth offering.
func (s Status) CanRecover() bool {
	return s.Installed || s.State == StateFailed
}

// CanPlay reports whether the installation may be launched.
func (s Status) CanPlay() bool {
	if s.RepairRequired || !s.Installed {
		return false
	}

	return s.State == StateCurrent || s.State == StateStale
}
