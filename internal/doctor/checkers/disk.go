package checkers

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/smykla-skalski/patchlaunch/internal/doctor"
	"github.com/smykla-skalski/patchlaunch/internal/payload"
)

// DefaultMinFreeSpace is the free space below which a warning is reported.
const DefaultMinFreeSpace uint64 = 1 << 30

const diskCheckName = "Free disk space"

// DiskChecker checks free space on the filesystem of the work dir.
type DiskChecker struct {
	dir       string
	minFree   uint64
	freeSpace payload.FreeSpaceFunc
}

// NewDiskChecker creates a disk checker. A nil freeSpace uses gopsutil.
func NewDiskChecker(dir string, minFree uint64, freeSpace payload.FreeSpaceFunc) *DiskChecker {
	if freeSpace == nil {
		freeSpace = payload.DiskFreeSpace
	}

	return &DiskChecker{dir: dir, minFree: minFree, freeSpace: freeSpace}
}

// Name returns the name of the check
func (*DiskChecker) Name() string {
	return diskCheckName
}

// Category returns the category of the check
func (*DiskChecker) Category() doctor.Category {
	return doctor.CategoryDisk
}

// Check performs the free space check
func (c *DiskChecker) Check(ctx context.Context) doctor.CheckResult {
	free, err := c.freeSpace(ctx, c.dir)
	if err != nil {
		return doctor.Skip(diskCheckName, "Cannot determine free space").
			WithDetails("Error: " + err.Error())
	}

	msg := humanize.IBytes(free) + " free in " + c.dir

	if free < c.minFree {
		return doctor.Warn(diskCheckName, msg).
			WithDetails(fmt.Sprintf("Full installs need the archive and its contents, at least %s recommended",
				humanize.IBytes(c.minFree)))
	}

	return doctor.Pass(diskCheckName, msg)
}
