// Package state persists what is installed locally between runs.
package state

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/smykla-skalski/patchlaunch/internal/release"
	"github.com/smykla-skalski/patchlaunch/pkg/logger"
)

const (
	stateFilePermissions = 0o600
	stateDirPermissions  = 0o700

	// NoClientID is the ClientID of an installation that was never registered.
	NoClientID = -1
)

// ErrCorruptState is returned when the state file exists but cannot be decoded.
var ErrCorruptState = errors.New("state file is corrupt")

// State is the persisted installation state.
type State struct {
	// Revision is the installed head revision. Empty when nothing is installed.
	Revision release.Revision `toml:"revision"`

	// Tag is the installed release tag.
	Tag string `toml:"tag"`

	// InstallDir is the installation directory name.
	InstallDir string `toml:"install_dir"`

	// SaveSlot is the host's active save slot; carried through untouched.
	SaveSlot int `toml:"save_slot"`

	// ClientID is the telemetry id, NoClientID until assigned.
	ClientID int `toml:"client_id"`
}

// Store loads and saves State.
type Store interface {
	Load() (*State, error)
	Save(s *State) error
}

// Defaults returns the state of a fresh machine.
func Defaults(installDir string) *State {
	return &State{InstallDir: installDir, ClientID: NoClientID}
}

// FileStore keeps State in a TOML file, replacing it atomically on save.
type FileStore struct {
	mu         sync.Mutex
	path       string
	installDir string
	logger     logger.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithInstallDir sets the InstallDir used when no state file exists yet.
func WithInstallDir(dir string) FileStoreOption {
	return func(f *FileStore) {
		f.installDir = dir
	}
}

// WithLogger sets the store's logger.
func WithLogger(log logger.Logger) FileStoreOption {
	return func(f *FileStore) {
		if log != nil {
			f.logger = log
		}
	}
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	f := &FileStore{path: path, logger: logger.NewNoOpLogger()}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Path returns the state file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the state file. A missing file yields Defaults.
func (f *FileStore) Load() (*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path) //nolint:gosec // G304: path is from config
	if err != nil {
		if os.IsNotExist(err) {
			f.logger.Debug("state file does not exist, using defaults", "path", f.path)

			return Defaults(f.installDir), nil
		}

		return nil, errors.Wrap(err, "reading state file")
	}

	s := Defaults(f.installDir)
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decoding %s", f.path), ErrCorruptState)
	}

	if s.InstallDir == "" {
		s.InstallDir = f.installDir
	}

	f.logger.Debug("loaded state", "path", f.path, "revision", s.Revision.Short(), "tag", s.Tag)

	return s, nil
}

// Save writes s to a temp file next to the state file and renames it over.
func (f *FileStore) Save(s *State) error {
	if s == nil {
		return errors.New("state is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, stateDirPermissions); err != nil {
		return errors.Wrap(err, "creating state directory")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return errors.Wrap(err, "encoding state")
	}

	tmp, err := os.CreateTemp(dir, ".state-*.toml")
	if err != nil {
		return errors.Wrap(err, "creating temp state file")
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return errors.Wrap(err, "writing temp state file")
	}

	if err := tmp.Chmod(stateFilePermissions); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return errors.Wrap(err, "setting state file permissions")
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return errors.Wrap(err, "closing temp state file")
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)

		return errors.Wrap(err, "renaming state file")
	}

	f.logger.Debug("saved state", "path", f.path, "revision", s.Revision.Short(), "tag", s.Tag)

	return nil
}

// MemoryStore keeps State in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	state   State
	saves   int
	saveErr error
}

// NewMemoryStore creates a MemoryStore holding initial, or Defaults("") when nil.
func NewMemoryStore(initial *State) *MemoryStore {
	if initial == nil {
		initial = Defaults("")
	}

	return &MemoryStore{state: *initial}
}

// Load returns a copy of the held state.
func (m *MemoryStore) Load() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state

	return &s, nil
}

// Save replaces the held state, or returns the error set by FailSaves.
func (m *MemoryStore) Save(s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}

	m.state = *s
	m.saves++

	return nil
}

// FailSaves makes every following Save return err. A nil err clears it.
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

// Saves returns the number of successful saves.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saves
}
