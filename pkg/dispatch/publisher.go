package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/randalmurphal/eventdispatch/pkg/dispatch/event"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/history"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/observability"
)

// Publisher routes events to subscribed handlers.
//
// Publish validates the event, looks up its handlers, runs them through the
// scheduler and records the outcome in the audit log. Handler failures are
// absorbed: they show up in History and the logs, not as errors.
//
// A Publisher is safe for concurrent use.
type Publisher struct {
	cfg      Config
	registry *event.Registry
	history  *history.Log
	breakers *breakers
	critical map[string]bool
	counters counters

	mu         sync.RWMutex
	middleware []event.MiddlewareFunc
}

// New creates a Publisher.
//
// Example:
//
//	pub := dispatch.New(
//	    dispatch.WithLogger(logger),
//	    dispatch.WithMaxConcurrentHandlers(4),
//	)
func New(opts ...Option) *Publisher {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	critical := make(map[string]bool, len(cfg.CriticalEventTypes))
	for _, t := range cfg.CriticalEventTypes {
		critical[t] = true
	}

	return &Publisher{
		cfg:      cfg,
		registry: event.NewRegistry(),
		history:  history.NewLog(cfg.HistoryCapacity),
		breakers: newBreakers(cfg.BreakerFailures, cfg.BreakerCooldown, cfg.Logger),
		critical: critical,
	}
}

// Subscribe registers handler for eventType.
// Subscribing the same handler twice makes it run twice.
func (p *Publisher) Subscribe(eventType string, handler event.Handler) error {
	return p.registry.Subscribe(eventType, handler)
}

// Unsubscribe removes the first registration of handler for eventType.
func (p *Publisher) Unsubscribe(eventType string, handler event.Handler) bool {
	return p.registry.Unsubscribe(eventType, handler)
}

// Use adds middleware around every handler invocation.
// First added is outermost.
func (p *Publisher) Use(middleware ...event.MiddlewareFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware...)
}

// Publish dispatches evt to every handler subscribed to its type.
//
// It returns an *EventPublishingError only when the event is malformed, ctx
// is already done before routing, or a handler of a critical event type
// failed. Once routing begins every matched handler is attempted, even if
// ctx is cancelled meanwhile.
func (p *Publisher) Publish(ctx context.Context, evt event.Event) error {
	start := time.Now()

	// Validating
	if err := event.Validate(evt); err != nil {
		return p.fail(ctx, evt, StageValidation, err)
	}

	// Routing
	if err := ctx.Err(); err != nil {
		return p.fail(ctx, evt, StageRouting, err)
	}
	handlers := p.registry.Lookup(evt.Type())

	ctx, span := p.cfg.Spans.StartPublishSpan(ctx, evt.Type(), evt.ID())
	logger := observability.EnrichLogger(p.cfg.Logger, evt.ID(), evt.Type())

	// Dispatching
	var (
		outcomes []history.Outcome
		errs     []error
	)
	if len(handlers) == 0 {
		observability.LogNoHandlers(p.cfg.Logger, evt.ID(), evt.Type())
	} else {
		observability.LogPublishStart(p.cfg.Logger, evt.ID(), evt.Type(), len(handlers))
		outcomes, errs = p.dispatch(context.WithoutCancel(ctx), evt, handlers, logger)
	}

	// Recording
	total := time.Since(start)
	p.history.Append(history.Record{
		Event:        evt,
		PublishedAt:  time.Now(),
		Outcomes:     outcomes,
		TotalLatency: total,
	})

	if len(errs) > 0 && p.critical[evt.Type()] {
		err := fmt.Errorf("%w: %w", ErrCriticalHandlerFailed, errors.Join(errs...))
		p.cfg.Spans.EndSpanWithError(span, err)
		return p.fail(ctx, evt, StageDispatch, err)
	}

	p.counters.recordSuccess(total)
	p.cfg.Metrics.RecordPublish(ctx, evt.Type(), true, total)
	observability.LogPublishComplete(p.cfg.Logger, evt.ID(), evt.Type(), float64(total.Microseconds())/1000.0, len(errs))
	p.cfg.Spans.EndSpanWithError(span, nil)
	return nil
}

func (p *Publisher) fail(ctx context.Context, evt event.Event, stage Stage, err error) error {
	perr := &EventPublishingError{Stage: stage, Err: err}
	if !event.IsNil(evt) {
		perr.EventID = evt.ID()
		perr.EventType = evt.Type()
	}

	p.counters.recordFailure()
	p.cfg.Metrics.RecordPublish(ctx, perr.EventType, false, 0)
	observability.LogPublishError(p.cfg.Logger, perr.EventID, perr.EventType, perr)
	return perr
}

// PublishAll publishes events in order.
//
// With stopOnFirstFailure, the first Publish error is returned as is and
// the remaining events are never attempted. Otherwise every event is
// attempted and a *BatchEventPublishingError summarizes the failures.
// The results slice covers every attempted event in both modes.
func (p *Publisher) PublishAll(ctx context.Context, events []event.Event, stopOnFirstFailure bool) ([]PublishResult, error) {
	results := make([]PublishResult, 0, len(events))
	var failures []PublishResult

	for _, evt := range events {
		err := p.Publish(ctx, evt)
		res := PublishResult{Event: evt, Success: err == nil, Err: err}
		results = append(results, res)

		if err == nil {
			continue
		}
		if stopOnFirstFailure {
			return results, err
		}
		failures = append(failures, res)
	}

	if len(failures) > 0 {
		return results, &BatchEventPublishingError{Total: len(events), Failures: failures}
	}
	return results, nil
}

// Replay re-runs recorded events matching filter, oldest first.
// An empty filter selects the whole history.
//
// With a nil target the selected events go through PublishAll again and
// produce fresh history records. Otherwise target is invoked directly, once
// per event, without retry; its failures are logged and reported in the
// results but do not make Replay fail.
func (p *Publisher) Replay(ctx context.Context, filter history.Filter, target event.Handler) ([]PublishResult, error) {
	records := p.history.Select(filter)
	events := make([]event.Event, len(records))
	for i, rec := range records {
		events[i] = rec.Event
	}

	if target == nil {
		return p.PublishAll(ctx, events, false)
	}

	results := make([]PublishResult, 0, len(events))
	for _, evt := range events {
		res := PublishResult{Event: evt, Success: true}
		if err := p.invokeOnce(ctx, target.Handle, evt); err != nil {
			observability.LogReplayFailure(p.cfg.Logger, evt.ID(), target.Name(), err)
			res.Success = false
			res.Err = &HandlerExecutionError{
				Handler:   target.Name(),
				EventID:   evt.ID(),
				EventType: evt.Type(),
				Attempts:  1,
				Err:       err,
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// Metrics returns a snapshot of the counters and the registry.
func (p *Publisher) Metrics() Metrics {
	m := p.counters.snapshot()
	m.EventTypes = p.registry.Types()
	m.HandlerCount = p.registry.HandlerCount()
	m.HistorySize = p.history.Len()
	return m
}

// History returns the audit records, oldest first.
func (p *Publisher) History() []history.Record {
	return p.history.Records()
}

// ClearHistory drops every audit record. Counters are kept.
func (p *Publisher) ClearHistory() {
	p.history.Clear()
}

// CircuitState reports the breaker state of a handler. Handlers that never
// ran, or a Publisher without breakers, report closed.
func (p *Publisher) CircuitState(handler string) gobreaker.State {
	state, _ := p.breakers.state(handler)
	return state
}
