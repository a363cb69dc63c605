package checkers

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"

	internalconfig "github.com/smykla-skalski/patchlaunch/internal/config"
	"github.com/smykla-skalski/patchlaunch/internal/xdg"
)

// PermissionsFixer removes write access for others from config files.
type PermissionsFixer struct {
	paths []string
}

// NewPermissionsFixer creates a fixer for paths. Missing files are ignored.
func NewPermissionsFixer(paths ...string) *PermissionsFixer {
	return &PermissionsFixer{paths: paths}
}

// ID returns the fixer id
func (*PermissionsFixer) ID() string {
	return FixConfigPermissions
}

// Description returns what the fixer does
func (*PermissionsFixer) Description() string {
	return "Restrict config files to the owner"
}

// Fix restricts every world-writable file to ConfigFileMode.
func (f *PermissionsFixer) Fix(_ context.Context) error {
	for _, p := range f.paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}

		if err != nil {
			return errors.Wrapf(err, "stat %s", p)
		}

		if info.Mode().Perm()&0o002 == 0 {
			continue
		}

		if err := os.Chmod(p, internalconfig.ConfigFileMode); err != nil {
			return errors.Wrapf(err, "chmod %s", p)
		}
	}

	return nil
}

// DirFixer creates a missing directory.
type DirFixer struct {
	dir string
}

// NewDirFixer creates a fixer for dir.
func NewDirFixer(dir string) *DirFixer {
	return &DirFixer{dir: dir}
}

// ID returns the fixer id
func (*DirFixer) ID() string {
	return FixStateDir
}

// Description returns what the fixer does
func (f *DirFixer) Description() string {
	return "Create " + f.dir
}

// Fix creates the directory with owner-only permissions.
func (f *DirFixer) Fix(_ context.Context) error {
	return xdg.EnsureDir(f.dir)
}
