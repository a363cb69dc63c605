// Package progress defines how long-running operations report progress.
package progress

//go:generate mockgen -source=sink.go -destination=sink_mock.go -package=progress

import (
	"fmt"
)

// Phase names a stage of an install or update.
type Phase int

const (
	// PhaseIdle is the state before any phase was announced.
	PhaseIdle Phase = iota
	// PhaseResolving covers release resolution.
	PhaseResolving
	// PhaseComparing covers diff resolution between two revisions.
	PhaseComparing
	// PhaseDeleting covers removal of stale files.
	PhaseDeleting
	// PhaseDownloading covers every payload transfer.
	PhaseDownloading
	// PhaseExtracting covers archive expansion.
	PhaseExtracting
)

var phaseNames = map[Phase]string{
	PhaseIdle:        "idle",
	PhaseResolving:   "resolving",
	PhaseComparing:   "comparing",
	PhaseDeleting:    "deleting",
	PhaseDownloading: "downloading",
	PhaseExtracting:  "extracting",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}

	return fmt.Sprintf("Phase(%d)", int(p))
}

// Sink receives progress from long-running operations. Calls are made
// synchronously from the worker; a sink that drives a UI thread must
// marshal them itself.
type Sink interface {
	// Phase announces a new phase.
	Phase(p Phase)

	// Percent reports determinate progress in the range 0 to 100.
	Percent(pct float64)

	// SizeUnknown reports that the current transfer has no advertised length.
	SizeUnknown()

	// Transferred reports the running byte count of an unknown-size transfer.
	Transferred(received int64)

	// Done reports the terminal status. A nil error means success.
	Done(err error)
}

// UnknownSizeCap is the soft cap shown next to the byte counter of an
// unknown-size transfer.
const UnknownSizeCap = "2GB"

const (
	bytesPerMB = 1024 * 1024
	mbPerGB    = 1024
)

// FormatTransferred formats a byte count in MB with two decimals, switching
// to GB above 1024 MB.
func FormatTransferred(received int64) string {
	mb := float64(received) / bytesPerMB
	if mb > mbPerGB {
		return fmt.Sprintf("%.2f GB", mb/mbPerGB)
	}

	return fmt.Sprintf("%.2f MB", mb)
}

// Percentage returns done/total*100, or 0 when total is 0.
func Percentage(done, total int) float64 {
	if total <= 0 {
		return 0
	}

	return float64(done) / float64(total) * 100
}

// Nop discards all progress.
type Nop struct{}

// Phase does nothing.
func (Nop) Phase(Phase) {}

// Percent does nothing.
func (Nop) Percent(float64) {}

// SizeUnknown does nothing.
func (Nop) SizeUnknown() {}

// Transferred does nothing.
func (Nop) Transferred(int64) {}

// Done does nothing.
func (Nop) Done(error) {}

// OrNop returns s, or Nop when s is nil.
//
//nolint:ireturn // callers store the sink behind the interface
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}

	return s
}

// tee fans every call out to several sinks in order.
type tee []Sink

// Tee returns a sink forwarding every call to all non-nil sinks.
//
//nolint:ireturn // composed sink
func Tee(sinks ...Sink) Sink {
	out := make(tee, 0, len(sinks))

	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}

	return out
}

func (t tee) Phase(p Phase) {
	for _, s := range t {
		s.Phase(p)
	}
}

func (t tee) Percent(pct float64) {
	for _, s := range t {
		s.Percent(pct)
	}
}

func (t tee) SizeUnknown() {
	for _, s := range t {
		s.SizeUnknown()
	}
}

func (t tee) Transferred(received int64) {
	for _, s := range t {
		s.Transferred(received)
	}
}

func (t tee) Done(err error) {
	for _, s := range t {
		s.Done(err)
	}
}
