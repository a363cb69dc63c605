package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
)

// Writer renders progress as a single rewritten terminal line per phase.
type Writer struct {
	mu      sync.Mutex
	out     io.Writer
	now     func() time.Time
	started time.Time
	phase   Phase
	lastPct int
	dirty   bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock overrides the time source used for the elapsed summary.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

// NewWriter creates a Writer printing to out.
func NewWriter(out io.Writer, opts ...WriterOption) *Writer {
	w := &Writer{out: out, now: time.Now, lastPct: -1}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Phase starts a new line for the phase.
func (w *Writer) Phase(p Phase) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started.IsZero() {
		w.started = w.now()
	}

	w.endLine()
	w.phase = p
	w.lastPct = -1

	fmt.Fprintf(w.out, "%s...", capitalize(p.String()))
	w.dirty = true
}

// Percent rewrites the current line when the whole percentage changes.
func (w *Writer) Percent(pct float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	whole := int(pct)
	if whole == w.lastPct {
		return
	}

	w.lastPct = whole

	fmt.Fprintf(w.out, "\r%s... %3d%%", capitalize(w.phase.String()), whole)
	w.dirty = true
}

// SizeUnknown switches the line to a byte counter.
func (w *Writer) SizeUnknown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprintf(w.out, "\r%s... size unknown", capitalize(w.phase.String()))
	w.dirty = true
}

// Transferred rewrites the byte counter.
func (w *Writer) Transferred(received int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Fprintf(
		w.out,
		"\r%s... %s of ~%s (%s)",
		capitalize(w.phase.String()),
		FormatTransferred(received),
		UnknownSizeCap,
		humanize.IBytes(uint64(max(received, 0))),
	)
	w.dirty = true
}

// Done prints the outcome and the elapsed time.
func (w *Writer) Done(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.endLine()

	elapsed := time.Duration(0)
	if !w.started.IsZero() {
		elapsed = w.now().Sub(w.started).Round(time.Second)
	}

	took := durafmt.Parse(elapsed).LimitFirstN(2).String()

	if err != nil {
		fmt.Fprintf(w.out, "Failed after %s: %v\n", took, err)

		return
	}

	fmt.Fprintf(w.out, "Done in %s\n", took)
}

func (w *Writer) endLine() {
	if w.dirty {
		fmt.Fprintln(w.out)
		w.dirty = false
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
