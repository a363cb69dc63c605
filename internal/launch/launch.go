// Package launch finds the installed program and starts it.
package launch

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/exec"
	"github.com/smykla-skalski/patchlaunch/internal/telemetry"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

// ErrExecutableNotFound is returned when the installation has no file with
// the configured executable name.
var ErrExecutableNotFound = errors.New("executable not found")

var errFound = errors.New("found")

// Find walks installRoot in lexical order and returns the first regular
// file named executable.
func Find(installRoot, executable string) (string, error) {
	if executable == "" {
		return "", errors.Wrap(ErrExecutableNotFound, "no executable configured")
	}

	var found string

	err := filepath.WalkDir(installRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && d.Name() == executable {
			found = path

			return errFound
		}

		return nil
	})

	switch {
	case errors.Is(err, errFound):
		return found, nil
	case err != nil:
		return "", errors.Wrapf(err, "searching %s", installRoot)
	default:
		return "", errors.Wrapf(ErrExecutableNotFound, "%s in %s", executable, installRoot)
	}
}

// Launcher starts the installed program and reports the running version.
type Launcher struct {
	starter  exec.Starter
	reporter telemetry.Reporter
	logger   logger.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithStarter sets how programs are started.
func WithStarter(s exec.Starter) Option {
	return func(l *Launcher) {
		if s != nil {
			l.starter = s
		}
	}
}

// WithReporter sets the telemetry reporter.
func WithReporter(r telemetry.Reporter) Option {
	return func(l *Launcher) {
		if r != nil {
			l.reporter = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Launcher) {
		if log != nil {
			l.logger = log
		}
	}
}

// New creates a Launcher.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		starter:  exec.NewStarter(),
		reporter: telemetry.Nop{},
		logger:   logger.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Start launches path. The installed tag is reported under clientID once the
// program is running.
func (l *Launcher) Start(ctx context.Context, path string, clientID int, tag string) (*exec.Process, error) {
	proc, err := l.starter.Start(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "launching")
	}

	l.logger.Info("launched", "path", path, "pid", proc.Pid, "tag", tag)
	l.reporter.UpdateVersion(ctx, clientID, tag)

	return proc, nil
}
