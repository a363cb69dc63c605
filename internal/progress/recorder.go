package progress

import "sync"

// EventKind identifies which Sink method produced an Event.
type EventKind int

// Event kinds, one per Sink method.
const (
	EventPhase EventKind = iota
	EventPercent
	EventSizeUnknown
	EventTransferred
	EventDone
)

// Event is a single recorded Sink call.
type Event struct {
	Kind    EventKind
	Phase   Phase
	Percent float64
	Bytes   int64
	Err     error
}

// Snapshot is the most recent state reported to a Recorder.
type Snapshot struct {
	Phase         Phase
	Percent       float64
	Indeterminate bool
	Transferred   int64
	Finished      bool
	Err           error
}

// Recorder keeps every event and the latest snapshot. It is safe for
// concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	last   Snapshot
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Phase records a phase change and resets the per-phase counters.
func (r *Recorder) Phase(p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{Kind: EventPhase, Phase: p})
	r.last = Snapshot{Phase: p}
}

// Percent records determinate progress.
func (r *Recorder) Percent(pct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{Kind: EventPercent, Phase: r.last.Phase, Percent: pct})
	r.last.Percent = pct
	r.last.Indeterminate = false
}

// SizeUnknown records an unknown-size transfer.
func (r *Recorder) SizeUnknown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{Kind: EventSizeUnknown, Phase: r.last.Phase})
	r.last.Indeterminate = true
}

// Transferred records a byte counter update.
func (r *Recorder) Transferred(received int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{Kind: EventTransferred, Phase: r.last.Phase, Bytes: received})
	r.last.Transferred = received
}

// Done records the terminal status.
func (r *Recorder) Done(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{Kind: EventDone, Phase: r.last.Phase, Err: err})
	r.last.Finished = true
	r.last.Err = err
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)

	return out
}

// Last returns the latest snapshot.
func (r *Recorder) Last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.last
}

// Percents returns every reported percentage in order.
func (r *Recorder) Percents() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []float64

	for _, e := range r.events {
		if e.Kind == EventPercent {
			out = append(out, e.Percent)
		}
	}

	return out
}

// Phases returns every announced phase in order.
func (r *Recorder) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Phase

	for _, e := range r.events {
		if e.Kind == EventPhase {
			out = append(out, e.Phase)
		}
	}

	return out
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
	r.last = Snapshot{}
}
