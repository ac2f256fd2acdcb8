package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope every published message must satisfy.
// Events are immutable once created - any modification creates a new event.
type Event interface {
	// Identity
	ID() string          // Unique event identifier
	Type() string        // Routing discriminator (e.g., "assessment.completed")
	AggregateID() string // Entity that raised the event

	// Correlation for tracing chains of events
	CorrelationID() string // Groups related events
	CausationID() string   // ID of event that directly caused this one

	// OccurredAt is when the event happened. Used for ordering and replay filters.
	OccurredAt() time.Time

	// Data returns the payload. Opaque to the dispatcher.
	Data() any
}

// Metadata contains the envelope fields shared by all events.
type Metadata struct {
	EventID       string    `json:"id"`
	EventType     string    `json:"type"`
	AggregateID   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id"`
	CausationID   string    `json:"causation_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// MetadataOf extracts the envelope fields from any Event.
func MetadataOf(evt Event) Metadata {
	return Metadata{
		EventID:       evt.ID(),
		EventType:     evt.Type(),
		AggregateID:   evt.AggregateID(),
		CorrelationID: evt.CorrelationID(),
		CausationID:   evt.CausationID(),
		OccurredAt:    evt.OccurredAt(),
	}
}

// BaseEvent provides a generic event implementation.
// T is the payload type for type-safe access by producers and consumers.
type BaseEvent[T any] struct {
	Meta    Metadata `json:"metadata"`
	Payload T        `json:"payload"`
}

// ID returns the unique event identifier.
func (e *BaseEvent[T]) ID() string {
	return e.Meta.EventID
}

// Type returns the event type.
func (e *BaseEvent[T]) Type() string {
	return e.Meta.EventType
}

// AggregateID returns the id of the originating entity.
func (e *BaseEvent[T]) AggregateID() string {
	return e.Meta.AggregateID
}

// CorrelationID returns the correlation ID.
func (e *BaseEvent[T]) CorrelationID() string {
	return e.Meta.CorrelationID
}

// CausationID returns the ID of the event that caused this one.
func (e *BaseEvent[T]) CausationID() string {
	return e.Meta.CausationID
}

// OccurredAt returns when the event occurred.
func (e *BaseEvent[T]) OccurredAt() time.Time {
	return e.Meta.OccurredAt
}

// Data returns the event payload.
func (e *BaseEvent[T]) Data() any {
	return e.Payload
}

// TypedData returns the strongly-typed payload.
func (e *BaseEvent[T]) TypedData() T {
	return e.Payload
}

// MarshalJSON implements json.Marshaler.
func (e *BaseEvent[T]) MarshalJSON() ([]byte, error) {
	type alias BaseEvent[T]
	return json.Marshal((*alias)(e))
}

// EventOption configures event creation.
type EventOption func(*eventConfig)

type eventConfig struct {
	id            string
	correlationID string
	causationID   string
	occurredAt    time.Time
}

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) EventOption {
	return func(cfg *eventConfig) {
		cfg.id = id
	}
}

// WithCorrelationID sets the correlation ID.
func WithCorrelationID(id string) EventOption {
	return func(cfg *eventConfig) {
		cfg.correlationID = id
	}
}

// WithCausationID sets the ID of the causing event.
func WithCausationID(id string) EventOption {
	return func(cfg *eventConfig) {
		cfg.causationID = id
	}
}

// WithOccurredAt sets a specific timestamp (default: time.Now()).
func WithOccurredAt(t time.Time) EventOption {
	return func(cfg *eventConfig) {
		cfg.occurredAt = t
	}
}

// New creates a new event with the given type, aggregate, and payload.
func New[T any](
	eventType string,
	aggregateID string,
	payload T,
	opts ...EventOption,
) *BaseEvent[T] {
	cfg := &eventConfig{
		id:         uuid.New().String(),
		occurredAt: time.Now(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	// If no correlation ID, use event ID as the root
	if cfg.correlationID == "" {
		cfg.correlationID = cfg.id
	}

	return &BaseEvent[T]{
		Meta: Metadata{
			EventID:       cfg.id,
			EventType:     eventType,
			AggregateID:   aggregateID,
			CorrelationID: cfg.correlationID,
			CausationID:   cfg.causationID,
			OccurredAt:    cfg.occurredAt,
		},
		Payload: payload,
	}
}

// NewFromParent creates a new event caused by a parent event.
// It inherits the correlation ID and sets the causation ID.
func NewFromParent[T any](
	parent Event,
	eventType string,
	aggregateID string,
	payload T,
	opts ...EventOption,
) *BaseEvent[T] {
	parentOpts := []EventOption{
		WithCorrelationID(parent.CorrelationID()),
		WithCausationID(parent.ID()),
	}
	return New(eventType, aggregateID, payload, append(parentOpts, opts...)...)
}

// NewAny creates a new event with an untyped payload.
func NewAny(eventType, aggregateID string, payload any, opts ...EventOption) *BaseEvent[any] {
	return New(eventType, aggregateID, payload, opts...)
}
