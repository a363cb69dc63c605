// Package exec starts external programs on behalf of the launcher.
package exec

//go:generate mockgen -source=starter.go -destination=starter_mock.go -package=exec

import (
	"context"
	"os/exec"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Process describes a started program.
type Process struct {
	Pid  int
	Path string
}

// Starter starts a program without waiting for it to finish.
type Starter interface {
	// Start launches path with args in the program's own directory.
	Start(ctx context.Context, path string, args ...string) (*Process, error)
}

// processStarter implements Starter with os/exec.
type processStarter struct{}

// NewStarter creates a Starter backed by os/exec.
func NewStarter() *processStarter {
	return &processStarter{}
}

// Start launches path and reaps it in the background once it exits. The
// context only guards the launch itself; the program outlives it.
func (*processStarter) Start(ctx context.Context, path string, args ...string) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "starting "+path)
	}

	cmd := exec.Command(path, args...) //nolint:gosec,noctx // path comes from the installation lookup
	cmd.Dir = filepath.Dir(path)

	if err := cmd.Start(); err != nil {
		return nil, &StartError{Path: path, Err: err}
	}

	go func() {
		_ = cmd.Wait()
	}()

	return &Process{Pid: cmd.Process.Pid, Path: path}, nil
}

// StartError is returned when a program cannot be started.
type StartError struct {
	Path string
	Err  error
}

// Error returns the error message.
func (e *StartError) Error() string {
	return "starting " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *StartError) Unwrap() error {
	return e.Err
}
