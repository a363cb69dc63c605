package crashdump

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/internal/xdg"
)

const (
	dumpExt      = ".json"
	dumpFileMode = 0o600
	dumpDirMode  = 0o700
)

var (
	// ErrWriteFailed marks failures to persist a dump.
	ErrWriteFailed = errors.New("failed to write crash dump")

	// ErrInvalidDumpDir marks an unusable dump directory.
	ErrInvalidDumpDir = errors.New("invalid dump directory")
)

// Writer stores dumps as JSON files in one directory.
type Writer struct {
	dumpDir string
}

// NewWriter creates a writer for dumpDir. A leading "~" is expanded.
func NewWriter(dumpDir string) (*Writer, error) {
	dir, err := resolveDumpDir(dumpDir)
	if err != nil {
		return nil, err
	}

	return &Writer{dumpDir: dir}, nil
}

// Write stores info as <id>.json and returns its path. Readers never see a
// partial file.
func (w *Writer) Write(info *CrashInfo) (string, error) {
	if info == nil || info.ID == "" {
		return "", errors.Wrap(ErrWriteFailed, "crash info has no id")
	}

	if err := os.MkdirAll(w.dumpDir, dumpDirMode); err != nil {
		return "", errors.Mark(errors.Wrap(err, "creating dump directory"), ErrInvalidDumpDir)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "encoding crash info"), ErrWriteFailed)
	}

	target := filepath.Join(w.dumpDir, info.ID+dumpExt)
	if err := writeAtomic(target, data); err != nil {
		return "", errors.Mark(err, ErrWriteFailed)
	}

	return target, nil
}

// DumpDir returns the dump directory path.
func (w *Writer) DumpDir() string {
	return w.dumpDir
}

func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+"-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return errors.Wrap(err, "writing temp file")
	}

	if err := tmp.Chmod(dumpFileMode); err != nil {
		_ = tmp.Close()

		return errors.Wrap(err, "setting dump permissions")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}

	return errors.Wrap(os.Rename(tmp.Name(), target), "renaming dump into place")
}

func resolveDumpDir(dumpDir string) (string, error) {
	if dumpDir == "" {
		return "", errors.Wrap(ErrInvalidDumpDir, "dump directory cannot be empty")
	}

	dir, err := xdg.ExpandPath(dumpDir)
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "expanding dump directory"), ErrInvalidDumpDir)
	}

	return dir, nil
}
