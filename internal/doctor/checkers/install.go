package checkers

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/doctor"
	"github.com/smykla-skalski/patchlaunch/internal/payload"
	"github.com/smykla-skalski/patchlaunch/internal/updater"
)

const installCheckName = "Installation healthy"

// StatusChecker refreshes the installation status.
type StatusChecker interface {
	Check(ctx context.Context) updater.Status
	InstallRoot() string
}

// InstallChecker checks the recorded revision and the installation layout.
type InstallChecker struct {
	status StatusChecker
}

// NewInstallChecker creates an installation checker.
func NewInstallChecker(status StatusChecker) *InstallChecker {
	return &InstallChecker{status: status}
}

// Name returns the name of the check
func (*InstallChecker) Name() string {
	return installCheckName
}

// Category returns the category of the check
func (*InstallChecker) Category() doctor.Category {
	return doctor.CategoryInstall
}

// Check performs the installation check
func (c *InstallChecker) Check(ctx context.Context) doctor.CheckResult {
	st := c.status.Check(ctx)
	root := c.status.InstallRoot()

	if st.RepairRequired {
		res := doctor.Fail(installCheckName, "Installation needs repair").
			WithHint("patchlaunch recover")
		if st.LastError != nil {
			res = res.WithDetails(fmt.Sprintf("Error: %v", st.LastError))
		}

		return res
	}

	if !st.Installed {
		return doctor.Warn(installCheckName, "Nothing installed").
			WithDetails("Expected at: " + root).
			WithHint("patchlaunch install")
	}

	if _, err := payload.InstallationTree(root); err != nil {
		if errors.Is(err, payload.ErrAmbiguousInstallation) || errors.Is(err, payload.ErrEmptyInstallation) {
			return doctor.Fail(installCheckName, "Unexpected installation layout").
				WithDetails("Error: " + err.Error()).
				WithHint("patchlaunch recover")
		}

		return doctor.Fail(installCheckName, "Cannot read installation").
			WithDetails("Error: " + err.Error())
	}

	if st.State == updater.StateStale {
		return doctor.Warn(installCheckName, "Update available").
			WithDetails(fmt.Sprintf("Installed: %s, latest: %s", st.InstalledTag, st.Latest.Tag)).
			WithHint("patchlaunch update")
	}

	return doctor.Pass(installCheckName, fmt.Sprintf("%s (%s)", st.InstalledTag, st.InstalledRevision.Short()))
}
