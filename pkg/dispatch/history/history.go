// Package history keeps a bounded, in-memory audit trail of published events
// and the outcome of every handler that saw them.
//
// The log is a FIFO ring buffer: once capacity is reached, appending evicts
// the oldest record. Nothing is persisted; history is lost on restart.
package history

import (
	"sync"
	"time"

	"github.com/randalmurphal/eventdispatch/pkg/dispatch/event"
)

// DefaultCapacity is the number of records kept when none is configured.
const DefaultCapacity = 10000

// Outcome is the result of delivering one event to one handler.
type Outcome struct {
	HandlerName string        `json:"handler_name"`
	Success     bool          `json:"success"`
	Latency     time.Duration `json:"latency"`
	Attempts    int           `json:"attempts"`
	Error       string        `json:"error,omitempty"`

	// Skipped is set when the handler's CanHandle rejected the event.
	Skipped bool `json:"skipped,omitempty"`
}

// Record is the audit entry for one Publish call.
type Record struct {
	Event        event.Event   `json:"event"`
	PublishedAt  time.Time     `json:"published_at"`
	Outcomes     []Outcome     `json:"outcomes"`
	TotalLatency time.Duration `json:"total_latency"`
}

// Failed returns the outcomes that did not succeed.
func (r Record) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.Success {
			failed = append(failed, o)
		}
	}
	return failed
}

// Succeeded reports whether every handler succeeded (or was skipped).
func (r Record) Succeeded() bool {
	for _, o := range r.Outcomes {
		if !o.Success {
			return false
		}
	}
	return true
}

func (r Record) clone() Record {
	if r.Outcomes != nil {
		outcomes := make([]Outcome, len(r.Outcomes))
		copy(outcomes, r.Outcomes)
		r.Outcomes = outcomes
	}
	return r
}

// Filter selects records for replay. Zero-valued fields match everything;
// set fields are AND-combined. From and To are inclusive and compare against
// the event's OccurredAt.
type Filter struct {
	EventType   string
	AggregateID string
	From        time.Time
	To          time.Time
}

// Matches reports whether evt satisfies every set field.
func (f Filter) Matches(evt event.Event) bool {
	if f.EventType != "" && evt.Type() != f.EventType {
		return false
	}
	if f.AggregateID != "" && evt.AggregateID() != f.AggregateID {
		return false
	}
	at := evt.OccurredAt()
	if !f.From.IsZero() && at.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && at.After(f.To) {
		return false
	}
	return true
}

// IsEmpty returns true when the filter matches everything.
func (f Filter) IsEmpty() bool {
	return f == Filter{}
}

// Log is a fixed-capacity ring buffer of records. Safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	buf   []Record
	start int // index of the oldest record
	size  int
}

// NewLog creates a log holding at most capacity records.
// Non-positive capacities fall back to DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]Record, capacity)}
}

// Append stores rec, evicting the oldest record when full.
func (l *Log) Append(rec Record) {
	rec = rec.clone()

	l.mu.Lock()
	defer l.mu.Unlock()

	capacity := len(l.buf)
	if l.size < capacity {
		l.buf[(l.start+l.size)%capacity] = rec
		l.size++
		return
	}

	// Full: overwrite the oldest slot and advance.
	l.buf[l.start] = rec
	l.start = (l.start + 1) % capacity
}

// Records returns a copy of all records, oldest first.
func (l *Log) Records() []Record {
	return l.Select(Filter{})
}

// Select returns a copy of the records whose event matches f, oldest first.
func (l *Log) Select(f Filter) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	capacity := len(l.buf)
	out := make([]Record, 0, l.size)
	for i := 0; i < l.size; i++ {
		rec := l.buf[(l.start+i)%capacity]
		if f.Matches(rec.Event) {
			out = append(out, rec.clone())
		}
	}
	return out
}

// Len returns the number of records held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Cap returns the configured capacity.
func (l *Log) Cap() int {
	return len(l.buf)
}

// Clear drops every record.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.buf {
		l.buf[i] = Record{}
	}
	l.start = 0
	l.size = 0
}
