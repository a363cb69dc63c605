package checkers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/smykla-skalski/patchlaunch/internal/doctor"
)

// FixStateDir is the fixer id for a missing state directory.
const FixStateDir = "create_state_dir"

const pathsCheckName = "State directory writable"

// PathsChecker checks that the directory holding state and logs is usable.
type PathsChecker struct {
	dir string
}

// NewPathsChecker creates a checker for dir.
func NewPathsChecker(dir string) *PathsChecker {
	return &PathsChecker{dir: dir}
}

// Name returns the name of the check
func (*PathsChecker) Name() string {
	return pathsCheckName
}

// Category returns the category of the check
func (*PathsChecker) Category() doctor.Category {
	return doctor.CategoryPaths
}

// Check performs the state directory check
func (c *PathsChecker) Check(_ context.Context) doctor.CheckResult {
	info, err := os.Stat(c.dir)
	if os.IsNotExist(err) {
		return doctor.Warn(pathsCheckName, "Directory does not exist").
			WithDetails("Expected at: " + c.dir).
			WithFixID(FixStateDir)
	}

	if err != nil {
		return doctor.Fail(pathsCheckName, "Cannot stat directory").
			WithDetails("Path: "+c.dir, "Error: "+err.Error())
	}

	if !info.IsDir() {
		return doctor.Fail(pathsCheckName, "Path is not a directory").
			WithDetails("Path: " + c.dir)
	}

	probe, err := os.CreateTemp(c.dir, ".probe-*")
	if err != nil {
		return doctor.Fail(pathsCheckName, "Directory is not writable").
			WithDetails("Path: "+c.dir, "Error: "+err.Error())
	}

	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	return doctor.Pass(pathsCheckName, filepath.Clean(c.dir))
}
