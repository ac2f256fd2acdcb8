package event_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventdispatch/pkg/dispatch/event"
)

type assessmentCompleted struct {
	PersonID string `json:"person_id"`
	Score    int    `json:"score"`
}

func TestNew(t *testing.T) {
	before := time.Now()
	evt := event.New("assessment.completed", "asm-1", assessmentCompleted{PersonID: "p-1", Score: 87})

	assert.NotEmpty(t, evt.ID())
	assert.Equal(t, "assessment.completed", evt.Type())
	assert.Equal(t, "asm-1", evt.AggregateID())
	assert.Equal(t, evt.ID(), evt.CorrelationID(), "root event correlates to itself")
	assert.Empty(t, evt.CausationID())
	assert.False(t, evt.OccurredAt().Before(before))
	assert.Equal(t, 87, evt.TypedData().Score)
	assert.Equal(t, evt.TypedData(), evt.Data())
}

func TestNew_UniqueIDs(t *testing.T) {
	a := event.NewAny("x", "agg", nil)
	b := event.NewAny("x", "agg", nil)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestNew_Options(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	evt := event.NewAny("level.achieved", "person-9", map[string]any{"level": 3},
		event.WithEventID("evt-1"),
		event.WithOccurredAt(at),
		event.WithCorrelationID("corr-1"),
		event.WithCausationID("cause-1"),
	)

	assert.Equal(t, "evt-1", evt.ID())
	assert.Equal(t, at, evt.OccurredAt())
	assert.Equal(t, "corr-1", evt.CorrelationID())
	assert.Equal(t, "cause-1", evt.CausationID())
}

func TestNewFromParent(t *testing.T) {
	parent := event.NewAny("assessment.completed", "asm-1", nil)
	child := event.NewFromParent(parent, "level.achieved", "person-1", 2)

	assert.NotEqual(t, parent.ID(), child.ID())
	assert.Equal(t, parent.CorrelationID(), child.CorrelationID())
	assert.Equal(t, parent.ID(), child.CausationID())
	assert.Equal(t, 2, child.TypedData())
}

func TestMetadataOf(t *testing.T) {
	evt := event.NewAny("x", "agg", nil, event.WithEventID("id-1"))
	meta := event.MetadataOf(evt)

	assert.Equal(t, "id-1", meta.EventID)
	assert.Equal(t, "x", meta.EventType)
	assert.Equal(t, "agg", meta.AggregateID)
	assert.Equal(t, evt.OccurredAt(), meta.OccurredAt)
}

func TestValidate(t *testing.T) {
	var typedNil *event.BaseEvent[any]

	tests := []struct {
		name  string
		evt   event.Event
		field string
	}{
		{"valid", event.NewAny("x", "agg", nil), ""},
		{"nil", nil, ""},
		{"typed nil", typedNil, ""},
		{"empty id", event.NewAny("x", "agg", nil, event.WithEventID("")), "id"},
		{"blank type", event.NewAny("  ", "agg", nil), "type"},
		{"empty aggregate", event.NewAny("x", "", nil), "aggregate_id"},
		{"zero time", event.NewAny("x", "agg", nil, event.WithOccurredAt(time.Time{})), "occurred_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := event.Validate(tt.evt)
			if tt.name == "valid" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var verr *event.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestIsNil(t *testing.T) {
	var typedNil *event.BaseEvent[any]
	assert.True(t, event.IsNil(nil))
	assert.True(t, event.IsNil(typedNil))
	assert.False(t, event.IsNil(event.NewAny("x", "agg", nil)))
}

func TestValidationError_Message(t *testing.T) {
	err := &event.ValidationError{Field: "id", Message: "must not be empty"}
	assert.Equal(t, "validation error on id: must not be empty", err.Error())

	err = &event.ValidationError{Message: "event is nil"}
	assert.Equal(t, "validation error: event is nil", err.Error())
}
