package crashdump

import (
	"cmp"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// maxSummaryPanicLen bounds the panic value shown in listings.
const maxSummaryPanicLen = 80

// ErrDumpNotFound is returned when a crash dump is not found.
var ErrDumpNotFound = errors.New("crash dump not found")

// Storage lists, reads and prunes stored crash dumps.
type Storage struct {
	dumpDir string
	now     func() time.Time
}

// NewStorage creates a storage over dumpDir. A leading "~" is expanded.
func NewStorage(dumpDir string) (*Storage, error) {
	dir, err := resolveDumpDir(dumpDir)
	if err != nil {
		return nil, err
	}

	return &Storage{dumpDir: dir, now: time.Now}, nil
}

// List returns all readable dumps, newest first. Corrupted files are skipped.
func (s *Storage) List() ([]DumpSummary, error) {
	if !s.Exists() {
		return []DumpSummary{}, nil
	}

	entries, err := os.ReadDir(s.dumpDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read dump directory")
	}

	summaries := make([]DumpSummary, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), dumpExt) {
			continue
		}

		summary, err := s.loadSummary(entry.Name())
		if err != nil {
			continue
		}

		summaries = append(summaries, summary)
	}

	slices.SortFunc(summaries, func(a, b DumpSummary) int {
		return cmp.Compare(b.Timestamp.UnixNano(), a.Timestamp.UnixNano())
	})

	return summaries, nil
}

func (s *Storage) loadSummary(filename string) (DumpSummary, error) {
	filePath := filepath.Join(s.dumpDir, filename)

	info, err := loadFile(filePath)
	if err != nil {
		return DumpSummary{}, err
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return DumpSummary{}, errors.Wrap(err, "failed to stat file")
	}

	panicValue := info.PanicValue
	if len(panicValue) > maxSummaryPanicLen {
		panicValue = panicValue[:maxSummaryPanicLen] + "..."
	}

	return DumpSummary{
		ID:         info.ID,
		Timestamp:  info.Timestamp,
		PanicValue: panicValue,
		FilePath:   filePath,
		Size:       fileInfo.Size(),
	}, nil
}

// Get retrieves a crash dump by ID.
func (s *Storage) Get(id string) (*CrashInfo, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	return loadFile(filepath.Join(s.dumpDir, id+dumpExt))
}

func loadFile(filePath string) (*CrashInfo, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // path is built from the dump dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrDumpNotFound, "file: %s", filePath)
		}

		return nil, errors.Wrap(err, "failed to read dump file")
	}

	var info CrashInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal dump file")
	}

	return &info, nil
}

// Delete removes a crash dump by ID.
func (s *Storage) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dumpDir, id+dumpExt)); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrDumpNotFound, "ID: %s", id)
		}

		return errors.Wrap(err, "failed to delete dump file")
	}

	return nil
}

// PlanPrune returns the dumps Prune would remove: those older than maxAge
// (when positive) and those beyond the newest maxDumps.
func PlanPrune(summaries []DumpSummary, maxDumps int, maxAge time.Duration, now time.Time) []DumpSummary {
	var remove, keep []DumpSummary

	for _, summary := range summaries {
		if maxAge > 0 && now.Sub(summary.Timestamp) > maxAge {
			remove = append(remove, summary)

			continue
		}

		keep = append(keep, summary)
	}

	if maxDumps >= 0 && len(keep) > maxDumps {
		remove = append(remove, keep[maxDumps:]...)
	}

	return remove
}

// Prune removes old dumps and returns how many were removed. Failed
// deletions are skipped.
func (s *Storage) Prune(maxDumps int, maxAge time.Duration) (int, error) {
	summaries, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, summary := range PlanPrune(summaries, maxDumps, maxAge, s.now()) {
		if err := s.Delete(summary.ID); err != nil {
			continue
		}

		removed++
	}

	return removed, nil
}

// Exists checks if the storage directory exists.
func (s *Storage) Exists() bool {
	info, err := os.Stat(s.dumpDir)

	return err == nil && info.IsDir()
}

// DumpDir returns the dump directory path.
func (s *Storage) DumpDir() string {
	return s.dumpDir
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return errors.Wrapf(ErrDumpNotFound, "invalid ID: %q", id)
	}

	return nil
}
