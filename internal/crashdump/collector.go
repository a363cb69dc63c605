package crashdump

import (
	"crypto/sha256"
	"fmt"
	"os"
	"os/user"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/patchlaunch/pkg/config"
)

const idHashLength = 8

// Scene is what the launcher was doing when it panicked. Every field is
// optional.
type Scene struct {
	Operation string
	Config    *config.Config
	Install   *InstallInfo
}

// Collector turns a recovered panic into a CrashInfo.
type Collector struct {
	version   string
	now       func() time.Time
	sanitizer *Sanitizer
}

// NewCollector creates a collector stamping dumps with the launcher version.
func NewCollector(version string) *Collector {
	return &Collector{version: version, now: time.Now, sanitizer: NewSanitizer()}
}

// Collect captures the stack of the calling goroutine together with scene.
// The config is stored with secrets redacted.
func (c *Collector) Collect(recovered any, scene Scene) *CrashInfo {
	now := c.now()
	value := panicValue(recovered)

	info := &CrashInfo{
		ID:         crashID(now, value),
		Timestamp:  now,
		PanicValue: value,
		StackTrace: string(debug.Stack()),
		Operation:  scene.Operation,
		Install:    scene.Install,
		Runtime: RuntimeInfo{
			GOOS:         runtime.GOOS,
			GOARCH:       runtime.GOARCH,
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
		},
		Metadata: c.metadata(),
	}

	if scene.Config != nil {
		info.Config = c.sanitizer.SanitizeConfig(scene.Config)
	}

	return info
}

func (c *Collector) metadata() DumpMetadata {
	meta := DumpMetadata{Version: c.version}

	if u, err := user.Current(); err == nil {
		meta.User = u.Username
	}

	meta.Hostname, _ = os.Hostname()
	meta.WorkingDir, _ = os.Getwd()

	return meta
}

// panicValue renders a recovered value; panic(nil) becomes "panic(nil)".
func panicValue(v any) string {
	if v == nil {
		return "panic(nil)"
	}

	err, ok := v.(error)
	if !ok {
		return fmt.Sprint(v)
	}

	var nilPanic *runtime.PanicNilError
	if errors.As(err, &nilPanic) {
		return "panic(nil)"
	}

	return err.Error()
}

// crashID is "crash-<UTC time>-<hash>", sortable by time and unique per panic.
func crashID(ts time.Time, value string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d\x00%s", ts.UnixNano(), value))

	return fmt.Sprintf("crash-%s-%x", ts.UTC().Format("20060102T150405"), sum[:idHashLength/2])
}
