package trace

import (
	"errors"
	"sync"
)

// Event kinds.
const (
	KindResolve = "resolve"
	KindInvoke  = "invoke"
)

// Event is a single recorded chain step.
//
// Args, Kwargs and Result hold Snapshot values, never live Go objects.
type Event struct {
	Session    string `json:"session"`
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	Kind       string `json:"kind"` // "resolve" or "invoke"
	Key        string `json:"key,omitempty"`
	Args       any    `json:"args,omitempty"`
	Kwargs     any    `json:"kwargs,omitempty"`
	Result     any    `json:"result,omitempty"`
	Bypass     bool   `json:"bypass,omitempty"`
	Error      string `json:"error,omitempty"`
	ProxyDepth int    `json:"proxy_depth"`
}

// Recorder receives chain steps as they happen.
type Recorder interface {
	Record(ev Event) error
}

// MemoryRecorder keeps events in memory, in the order they were recorded.
//
// Thread-safety: MemoryRecorder is safe for concurrent use.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{events: []Event{}}
}

// Record appends the event.
func (r *MemoryRecorder) Record(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *MemoryRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset drops all recorded events.
func (r *MemoryRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = []Event{}
}

// MultiRecorder fans an event out to several recorders.
// Every recorder sees the event; failures are joined.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(ev Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
