package checkers

import (
	"context"
	"fmt"

	"github.com/smykla-skalski/patchlaunch/internal/doctor"
	"github.com/smykla-skalski/patchlaunch/internal/release"
)

const remoteCheckName = "Latest release reachable"

// ReleaseResolver resolves the newest release.
type ReleaseResolver interface {
	Resolve(ctx context.Context) (release.Release, error)
}

// RemoteChecker checks that the newest release can be resolved.
type RemoteChecker struct {
	resolver ReleaseResolver
	baseURL  string
}

// NewRemoteChecker creates a remote checker. baseURL is only reported.
func NewRemoteChecker(resolver ReleaseResolver, baseURL string) *RemoteChecker {
	return &RemoteChecker{resolver: resolver, baseURL: baseURL}
}

// Name returns the name of the check
func (*RemoteChecker) Name() string {
	return remoteCheckName
}

// Category returns the category of the check
func (*RemoteChecker) Category() doctor.Category {
	return doctor.CategoryRemote
}

// Check performs the release resolution check
func (c *RemoteChecker) Check(ctx context.Context) doctor.CheckResult {
	rel, err := c.resolver.Resolve(ctx)
	if err != nil {
		return doctor.Fail(remoteCheckName, "Cannot resolve the latest release").
			WithDetails("API: "+c.baseURL, fmt.Sprintf("Error: %v", err))
	}

	return doctor.Pass(remoteCheckName, fmt.Sprintf("%s (%s)", rel.Tag, rel.HeadRevision.Short()))
}
