package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventdispatch/pkg/dispatch"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/event"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/history"
)

// seedHistory publishes three events at fixed times: two completions and
// one level-up in between.
func seedHistory(t *testing.T, pub *dispatch.Publisher) time.Time {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	events := []event.Event{
		event.NewAny(assessmentCompleted, "asm-1", nil, event.WithOccurredAt(base)),
		event.NewAny(levelAchieved, "p-1", nil, event.WithOccurredAt(base.Add(time.Minute))),
		event.NewAny(assessmentCompleted, "asm-2", nil, event.WithOccurredAt(base.Add(2*time.Minute))),
	}
	_, err := pub.PublishAll(context.Background(), events, false)
	require.NoError(t, err)
	return base
}

func TestReplay_RepublishesSelection(t *testing.T) {
	pub := newPublisher()
	h, calls := countingHandler("audit", assessmentCompleted, nil)
	require.NoError(t, pub.Subscribe(assessmentCompleted, h))
	seedHistory(t, pub)
	require.Equal(t, int32(2), calls.Load())

	results, err := pub.Replay(context.Background(), history.Filter{EventType: assessmentCompleted}, nil)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "asm-1", results[0].Event.AggregateID())
	assert.Equal(t, "asm-2", results[1].Event.AggregateID())
	assert.Equal(t, int32(4), calls.Load())
	assert.Len(t, pub.History(), 5, "replayed publishes are recorded")
}

func TestReplay_TimeWindow(t *testing.T) {
	pub := newPublisher()
	base := seedHistory(t, pub)

	results, err := pub.Replay(context.Background(), history.Filter{
		From: base.Add(time.Minute),
		To:   base.Add(2 * time.Minute),
	}, nil)
	require.NoError(t, err)

	require.Len(t, results, 2, "bounds are inclusive")
	assert.Equal(t, levelAchieved, results[0].Event.Type())
	assert.Equal(t, "asm-2", results[1].Event.AggregateID())
}

func TestReplay_EmptyFilterSelectsAll(t *testing.T) {
	pub := newPublisher()
	seedHistory(t, pub)

	results, err := pub.Replay(context.Background(), history.Filter{}, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestReplay_NothingMatches(t *testing.T) {
	pub := newPublisher()
	seedHistory(t, pub)

	results, err := pub.Replay(context.Background(), history.Filter{AggregateID: "nobody"}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReplay_TargetHandler(t *testing.T) {
	pub := newPublisher()
	seedHistory(t, pub)

	var mu sync.Mutex
	var seen []string
	target := event.NewHandler("backfill", assessmentCompleted, func(_ context.Context, evt event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, evt.AggregateID())
		if evt.AggregateID() == "asm-2" {
			return errors.New("warehouse unavailable")
		}
		return nil
	})

	results, err := pub.Replay(context.Background(), history.Filter{EventType: assessmentCompleted}, target)
	require.NoError(t, err, "target failures are reported per event")

	assert.Equal(t, []string{"asm-1", "asm-2"}, seen, "invoked once per event, no retry")
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)

	var herr *dispatch.HandlerExecutionError
	require.ErrorAs(t, results[1].Err, &herr)
	assert.Equal(t, "backfill", herr.Handler)
	assert.Equal(t, 1, herr.Attempts)

	assert.Len(t, pub.History(), 3, "direct replay leaves history alone")
}

func TestReplay_TargetPanicIsContained(t *testing.T) {
	pub := newPublisher()
	seedHistory(t, pub)

	target := event.NewHandler("backfill", levelAchieved, func(context.Context, event.Event) error {
		panic("bad row")
	})

	results, err := pub.Replay(context.Background(), history.Filter{EventType: levelAchieved}, target)
	require.NoError(t, err)
	require.Len(t, results, 1)

	var perr *dispatch.PanicError
	assert.ErrorAs(t, results[0].Err, &perr)
}
