/*
Package dispatch provides an in-process domain event publisher.

Aggregates publish events; independent handlers (notification, audit,
analytics) react to them. The Publisher routes each event to the handlers
subscribed to its type, runs them with bounded parallelism and bounded
retry, and keeps an audit log of every handler outcome.

# Quick Start

	pub := dispatch.New(dispatch.WithLogger(logger))

	notify := event.TypedHandler("notify", "assessment.completed",
	    func(ctx context.Context, a Assessment, meta event.Metadata) error {
	        return mailer.Send(ctx, a.PersonEmail, "Assessment complete")
	    })
	if err := pub.Subscribe("assessment.completed", notify); err != nil {
	    return err
	}

	evt := event.New("assessment.completed", assessment.ID, assessment)
	if err := pub.Publish(ctx, evt); err != nil {
	    // malformed event, or a critical handler failed
	}

# Delivery Model

Delivery is best-effort. Each handler gets up to Retry.MaxAttempts attempts
with linear backoff (Delay * attempt). A handler that still fails is
logged, recorded in History and optionally dead-lettered; it never stops
sibling handlers and never reaches the producer. Publish returns an error
only for structural failures:

  - the event fails validation (StageValidation)
  - ctx is already done before routing (StageRouting)
  - a handler of a type given to WithCriticalEventTypes failed (StageDispatch)

# Scheduling

Handlers run in descending Priority order (registration order breaks ties).
Handlers implementing event.Filter are skipped when CanHandle returns false.
With AsyncProcessing, handlers start in batches of MaxConcurrentHandlers;
each batch completes before the next begins. Without it, or with a single
handler, they run one after another.

# Batches and Replay

PublishAll publishes a slice in order, either stopping at the first failure
or collecting failures into a *BatchEventPublishingError. Replay re-runs
events from the audit log selected by a history.Filter, either through the
whole pipeline or against a single handler.

# Observability

Logs go through log/slog. Metrics and spans go through
observability.MetricsRecorder and observability.SpanManager, with
OpenTelemetry and Prometheus implementations. Metrics returns the running
counters.
*/
package dispatch
