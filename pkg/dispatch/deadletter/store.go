// Package deadletter records handler deliveries that failed after every
// retry, so operators can inspect or re-drive them.
package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/eventdispatch/pkg/dispatch/event"
)

// Store persists failed deliveries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put records a failed delivery. The entry ID is assigned if empty.
	Put(ctx context.Context, entry *Entry) error

	// Get retrieves one entry. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns up to limit entries, oldest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Entry, error)

	// ListByHandler returns entries for one handler, oldest first.
	ListByHandler(ctx context.Context, handler string, limit int) ([]*Entry, error)

	// Delete removes an entry. Returns nil if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Close releases any resources.
	Close() error
}

// Entry is one failed delivery of one event to one handler.
type Entry struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Handler     string          `json:"handler"`
	Error       string          `json:"error"`
	Attempts    int             `json:"attempts"`
	FailedAt    time.Time       `json:"failed_at"`
}

// NewEntry builds an entry from a failed delivery.
// Payloads that cannot be encoded as JSON are dropped.
func NewEntry(evt event.Event, handler string, attempts int, err error) *Entry {
	entry := &Entry{
		ID:          uuid.New().String(),
		EventID:     evt.ID(),
		EventType:   evt.Type(),
		AggregateID: evt.AggregateID(),
		OccurredAt:  evt.OccurredAt(),
		Handler:     handler,
		Attempts:    attempts,
		FailedAt:    time.Now().UTC(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if raw, mErr := json.Marshal(evt.Data()); mErr == nil {
		entry.Payload = raw
	}
	return entry
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates an entry doesn't exist.
	ErrNotFound = errors.New("dead letter not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("dead letter store closed")

	// ErrStoreFull indicates the store reached its size limit.
	ErrStoreFull = errors.New("dead letter store full")
)
