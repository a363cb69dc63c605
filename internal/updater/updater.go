// Package updater decides whether the installation is current and drives
// installs, updates and recoveries.
package updater

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/changeset"
	"github.com/smykla-skalski/patchlaunch/internal/extract"
	"github.com/smykla-skalski/patchlaunch/internal/payload"
	"github.com/smykla-skalski/patchlaunch/internal/progress"
	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/internal/state"
	"github.com/smykla-skalski/patchlaunch/internal/telemetry"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

const archiveExt = ".zip"

var (
	// ErrMutationInFlight is returned when a mutating call overlaps another.
	ErrMutationInFlight = errors.New("another install, update or recovery is running")

	// ErrNotAllowed is returned when an action is not offered in the current state.
	ErrNotAllowed = errors.New("action not allowed")
)

// ReleaseResolver resolves the latest release.
type ReleaseResolver interface {
	Resolve(ctx context.Context) (release.Release, error)
}

// DiffResolver computes the change set between two revisions.
type DiffResolver interface {
	Compare(ctx context.Context, from, to release.Revision, sink progress.Sink) (changeset.Result, error)
}

// Updater is the install/update orchestrator. Only one mutating call runs at
// a time; Check and Status may be called at any time.
type Updater struct {
	releases  ReleaseResolver
	diffs     DiffResolver
	sources   Sources
	store     state.Store
	extractor extract.Extractor
	reporter  telemetry.Reporter
	logger    logger.Logger

	workDir    string
	installDir string
	version    string

	inFlight atomic.Bool

	mu      sync.Mutex
	status  Status
	checked bool
	repair  bool

	// stateMu serializes load-modify-save sequences on the store.
	stateMu sync.Mutex
}

// Option configures an Updater.
type Option func(*Updater)

// WithWorkDir sets the directory holding the installation and its archive.
func WithWorkDir(dir string) Option {
	return func(u *Updater) {
		u.workDir = dir
	}
}

// WithInstallDir sets the installation directory name under the work dir.
func WithInstallDir(name string) Option {
	return func(u *Updater) {
		if name != "" {
			u.installDir = name
		}
	}
}

// WithExtractor sets the archive extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(u *Updater) {
		if e != nil {
			u.extractor = e
		}
	}
}

// WithReporter sets the telemetry reporter.
func WithReporter(r telemetry.Reporter) Option {
	return func(u *Updater) {
		if r != nil {
			u.reporter = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(u *Updater) {
		if log != nil {
			u.logger = log
		}
	}
}

// WithVersion sets the launcher version sent with telemetry.
func WithVersion(v string) Option {
	return func(u *Updater) {
		u.version = v
	}
}

// NewUpdater creates an Updater.
func NewUpdater(
	releases ReleaseResolver,
	diffs DiffResolver,
	sources Sources,
	store state.Store,
	opts ...Option,
) *Updater {
	u := &Updater{
		releases:   releases,
		diffs:      diffs,
		sources:    sources,
		store:      store,
		extractor:  extract.ZipExtractor{},
		reporter:   telemetry.Nop{},
		logger:     logger.NewNoOpLogger(),
		workDir:    ".",
		installDir: "Game",
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// WorkDir returns the directory holding the installation and its archive.
func (u *Updater) WorkDir() string {
	return u.workDir
}

// InstallRoot is the directory the release is extracted into.
func (u *Updater) InstallRoot() string {
	return filepath.Join(u.workDir, u.installDir)
}

// ArchivePath is where full release archives are downloaded to.
func (u *Updater) ArchivePath() string {
	return filepath.Join(u.workDir, u.installDir+archiveExt)
}

// InFlight reports whether a mutating call is running.
func (u *Updater) InFlight() bool {
	return u.inFlight.Load()
}

// Status returns the last computed status.
func (u *Updater) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.status
}

// Check recomputes the status from disk and the remote. While a mutation runs
// it returns the current status unchanged.
func (u *Updater) Check(ctx context.Context) Status {
	if u.InFlight() {
		return u.Status()
	}

	return u.check(ctx)
}

func (u *Updater) check(ctx context.Context) Status {
	st, loadErr := u.loadState()
	installed := dirHasEntries(u.InstallRoot())
	rel, resolveErr := u.releases.Resolve(ctx)

	u.mu.Lock()
	defer u.mu.Unlock()

	s := Status{
		Installed:      installed,
		Reachable:      resolveErr == nil,
		RepairRequired: u.repair,
	}

	if resolveErr == nil {
		s.Latest = rel
	}

	if st != nil {
		s.InstalledRevision = st.Revision
		s.InstalledTag = st.Tag
	}

	switch {
	case loadErr != nil:
		s.State = StateFailed
		s.RepairRequired = true
		s.LastError = loadErr

	case !installed && resolveErr != nil:
		s.State = StateUnavailable
		s.LastError = resolveErr

	case !installed:
		s.State = StateNotInstalled
		u.removeArchive()

	case st.Revision == "":
		// Files without a recorded revision cannot be diffed.
		s.State = StateFailed
		s.RepairRequired = true

	case s.RepairRequired:
		s.State = StateFailed

	case resolveErr != nil:
		s.State = StateCurrent
		s.LastError = resolveErr

	case st.Revision == rel.HeadRevision:
		s.State = StateCurrent

	default:
		s.State = StateStale
	}

	u.status = s
	u.checked = true

	u.logger.Debug("status checked",
		"state", s.State.String(),
		"installed", s.Installed,
		"reachable", s.Reachable,
		"revision", s.InstalledRevision.Short(),
		"latest", s.Latest.HeadRevision.Short(),
	)

	return s
}

// Install downloads and extracts the latest release. It is offered when
// nothing is installed, or after a failed install.
func (u *Updater) Install(ctx context.Context, sink progress.Sink) error {
	if !u.inFlight.CompareAndSwap(false, true) {
		return ErrMutationInFlight
	}
	defer u.inFlight.Store(false)

	sink = progress.OrNop(sink)

	if s := u.ensureChecked(ctx); !s.CanInstall() {
		return errors.Wrapf(ErrNotAllowed, "install in state %s", s.State)
	}

	return u.install(ctx, sink)
}

// Update applies the change set between the installed and latest revisions.
// It is offered when stale, or after a failed update that needs no repair.
func (u *Updater) Update(ctx context.Context, sink progress.Sink) error {
	if !u.inFlight.CompareAndSwap(false, true) {
		return ErrMutationInFlight
	}
	defer u.inFlight.Store(false)

	sink = progress.OrNop(sink)

	if s := u.ensureChecked(ctx); !s.CanUpdate() {
		return errors.Wrapf(ErrNotAllowed, "update in state %s", s.State)
	}

	return u.update(ctx, sink)
}

// Recover removes the installation and installs the latest release from
// scratch.
func (u *Updater) Recover(ctx context.Context, sink progress.Sink) error {
	if !u.inFlight.CompareAndSwap(false, true) {
		return ErrMutationInFlight
	}
	defer u.inFlight.Store(false)

	sink = progress.OrNop(sink)

	u.logger.Info("recovering installation", "dir", u.InstallRoot())

	if err := os.RemoveAll(u.InstallRoot()); err != nil {
		return u.fail(ctx, sink, errors.Wrap(err, "removing installation"), false)
	}

	u.removeArchive()

	u.mu.Lock()
	u.repair = false
	u.status = Status{
		State:     StateNotInstalled,
		Reachable: u.status.Reachable,
		Latest:    u.status.Latest,
	}
	u.checked = true
	u.mu.Unlock()

	return u.install(ctx, sink)
}

// EnsureClientID assigns a telemetry id on first run and persists it.
func (u *Updater) EnsureClientID(ctx context.Context) (int, error) {
	u.stateMu.Lock()
	defer u.stateMu.Unlock()

	st, err := u.store.Load()
	if err != nil {
		return telemetry.NoID, errors.Wrap(err, "loading state")
	}

	if st.ClientID != state.NoClientID {
		return st.ClientID, nil
	}

	id := u.reporter.AssignID(ctx, u.version)
	if id == telemetry.NoID {
		return telemetry.NoID, nil
	}

	st.ClientID = id

	if err := u.store.Save(st); err != nil {
		return telemetry.NoID, errors.Wrap(err, "saving client id")
	}

	u.logger.Info("telemetry id assigned", "id", id)

	return id, nil
}

func (u *Updater) ensureChecked(ctx context.Context) Status {
	u.mu.Lock()
	checked := u.checked
	u.mu.Unlock()

	if !checked {
		return u.check(ctx)
	}

	return u.Status()
}

func (u *Updater) install(ctx context.Context, sink progress.Sink) error {
	u.setState(StateInstalling)

	sink.Phase(progress.PhaseResolving)

	rel, err := u.releases.Resolve(ctx)
	if err != nil {
		return u.fail(ctx, sink, err, false)
	}

	src, err := u.sources.Full(rel, u.ArchivePath())
	if err != nil {
		return u.fail(ctx, sink, err, false)
	}

	rev, err := src.Materialize(ctx, u.workDir, sink)
	if err != nil {
		return u.fail(ctx, sink, errors.Wrap(err, "downloading release"), false)
	}

	entries, err := u.extractor.Extract(ctx, u.ArchivePath(), u.InstallRoot(), sink)
	if err != nil {
		return u.fail(ctx, sink, errors.Wrap(err, "extracting release"), true)
	}

	u.logger.Info("release extracted", "entries", entries, "dir", u.InstallRoot())
	u.removeArchive()

	return u.commit(ctx, sink, rel, rev)
}

func (u *Updater) update(ctx context.Context, sink progress.Sink) error {
	u.setState(StateUpdating)

	sink.Phase(progress.PhaseResolving)

	rel, err := u.releases.Resolve(ctx)
	if err != nil {
		return u.fail(ctx, sink, err, false)
	}

	st, err := u.loadState()
	if err != nil {
		return u.fail(ctx, sink, err, true)
	}

	changes, err := u.diffs.Compare(ctx, st.Revision, rel.HeadRevision, sink)
	if err != nil {
		return u.fail(ctx, sink, errors.Wrap(err, "comparing revisions"), false)
	}

	u.logger.Info("applying patch",
		"from", st.Revision.Short(),
		"to", rel.HeadRevision.Short(),
		"delete", len(changes.ToDelete),
		"fetch", len(changes.ToFetch),
	)

	src, err := u.sources.Patch(rel, changes)
	if err != nil {
		return u.fail(ctx, sink, err, false)
	}

	rev, err := src.Materialize(ctx, u.InstallRoot(), sink)
	if err != nil {
		repair := errors.Is(err, payload.ErrAmbiguousInstallation) ||
			errors.Is(err, payload.ErrEmptyInstallation)

		return u.fail(ctx, sink, errors.Wrap(err, "applying patch"), repair)
	}

	return u.commit(ctx, sink, rel, rev)
}

// commit persists the new revision and marks the installation current.
func (u *Updater) commit(ctx context.Context, sink progress.Sink, rel release.Release, rev release.Revision) error {
	u.stateMu.Lock()

	st, err := u.store.Load()
	if err == nil {
		st.Revision = rev
		st.Tag = rel.Tag
		st.InstallDir = u.installDir
		err = u.store.Save(st)
	}

	u.stateMu.Unlock()

	if err != nil {
		return u.fail(ctx, sink, errors.Wrap(err, "saving installed revision"), true)
	}

	u.mu.Lock()
	u.repair = false
	u.status = Status{
		State:             StateCurrent,
		Installed:         true,
		Reachable:         true,
		InstalledRevision: rev,
		InstalledTag:      rel.Tag,
		Latest:            rel,
	}
	u.mu.Unlock()

	u.logger.Info("installation current", "tag", rel.Tag, "revision", rev.Short())
	u.reporter.UpdateVersion(ctx, st.ClientID, rel.Tag)
	sink.Done(nil)

	return nil
}

// fail records err, resets the sink to idle and reports the error.
func (u *Updater) fail(ctx context.Context, sink progress.Sink, err error, repair bool) error {
	u.mu.Lock()
	u.repair = u.repair || repair
	u.status.State = StateFailed
	u.status.Installed = dirHasEntries(u.InstallRoot())
	u.status.RepairRequired = u.repair
	u.status.LastError = err
	u.mu.Unlock()

	u.logger.Error("operation failed", "error", err, "repair", repair)

	sink.Done(err)
	sink.Percent(0)

	clientID := state.NoClientID
	if st, loadErr := u.loadState(); loadErr == nil {
		clientID = st.ClientID
	}

	u.reporter.ReportError(ctx, clientID, u.version, err.Error())

	return err
}

func (u *Updater) setState(s State) {
	u.mu.Lock()
	u.status.State = s
	u.status.LastError = nil
	u.mu.Unlock()
}

func (u *Updater) loadState() (*state.State, error) {
	u.stateMu.Lock()
	defer u.stateMu.Unlock()

	st, err := u.store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading state")
	}

	return st, nil
}

func (u *Updater) removeArchive() {
	if err := os.Remove(u.ArchivePath()); err != nil && !os.IsNotExist(err) {
		u.logger.Debug("removing archive", "path", u.ArchivePath(), "error", err)
	}
}

// dirHasEntries reports whether dir exists and is not empty.
func dirHasEntries(dir string) bool {
	f, err := os.Open(dir) //nolint:gosec // dir is the configured installation root
	if err != nil {
		return false
	}
	defer f.Close() //nolint:errcheck // read-only directory handle

	names, err := f.Readdirnames(1)

	return err == nil && len(names) > 0
}
