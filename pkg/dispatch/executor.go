package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/eventdispatch/pkg/dispatch/deadletter"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/event"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/history"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/observability"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/retry"
)

// deliver runs one handler for one event with the full retry cycle and
// returns its outcome. The returned error is a *HandlerExecutionError and
// is never propagated to sibling handlers.
func (p *Publisher) deliver(ctx context.Context, evt event.Event, h event.Handler, logger *slog.Logger) (history.Outcome, error) {
	start := time.Now()
	name := h.Name()

	ctx, span := p.cfg.Spans.StartHandlerSpan(ctx, name, evt.Type())

	policy := p.retryFor(h)
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		observability.LogHandlerRetry(logger, name, attempt, delay, err)
		p.cfg.Spans.AddSpanEvent(ctx, "retry",
			attribute.Int("attempt", attempt),
			attribute.String("error", err.Error()),
		)
	}

	invoke := p.chain(h)
	attemptFn := func(ctx context.Context, _ int) error {
		return p.invokeOnce(ctx, invoke, evt)
	}

	var res retry.Result
	if cb := p.breakers.get(name); cb != nil {
		_, err := cb.Execute(func() (interface{}, error) {
			res = retry.Do(ctx, policy, attemptFn)
			return nil, res.Err
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			res = retry.Result{Err: err}
		}
	} else {
		res = retry.Do(ctx, policy, attemptFn)
	}

	latency := time.Since(start)
	p.cfg.Metrics.RecordHandler(ctx, evt.Type(), name, latency, res.Attempts, res.Err)

	outcome := history.Outcome{
		HandlerName: name,
		Success:     res.Err == nil,
		Latency:     latency,
		Attempts:    res.Attempts,
	}
	if res.Err == nil {
		p.cfg.Spans.EndSpanWithError(span, nil)
		return outcome, nil
	}

	herr := &HandlerExecutionError{
		Handler:   name,
		EventID:   evt.ID(),
		EventType: evt.Type(),
		Attempts:  res.Attempts,
		Err:       res.Err,
	}
	outcome.Error = herr.Error()

	observability.LogHandlerFailure(logger, evt.ID(), name, res.Attempts, res.Err)
	p.deadLetter(ctx, evt, name, res, logger)
	p.cfg.Spans.EndSpanWithError(span, herr)

	return outcome, herr
}

// retryFor applies a handler's RetryPolicy to the default policy.
func (p *Publisher) retryFor(h event.Handler) retry.Config {
	policy := p.cfg.Retry
	rp, ok := h.(event.RetryPolicy)
	if !ok {
		return policy
	}
	if !rp.SupportsRetry() {
		return policy.WithAttempts(1)
	}
	if n := rp.MaxRetries(); n > 0 {
		return policy.WithAttempts(n)
	}
	return policy
}

// chain wraps h.Handle in the middleware registered with Use.
func (p *Publisher) chain(h event.Handler) event.HandleFunc {
	p.mu.RLock()
	middleware := p.middleware
	p.mu.RUnlock()

	if len(middleware) == 0 {
		return h.Handle
	}
	return event.ChainMiddleware(h.Handle, middleware...)
}

// invokeOnce runs a single attempt with the per-attempt timeout and turns
// panics into *PanicError.
func (p *Publisher) invokeOnce(ctx context.Context, fn event.HandleFunc, evt event.Event) (err error) {
	if p.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.HandlerTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()

	return fn(ctx, evt)
}

func (p *Publisher) deadLetter(ctx context.Context, evt event.Event, handler string, res retry.Result, logger *slog.Logger) {
	if p.cfg.DeadLetters == nil {
		return
	}
	// An open circuit never ran the handler.
	if res.Attempts == 0 {
		return
	}

	entry := deadletter.NewEntry(evt, handler, res.Attempts, res.Err)
	if err := p.cfg.DeadLetters.Put(ctx, entry); err != nil {
		observability.LogDeadLetterError(logger, evt.ID(), handler, err)
		return
	}
	p.cfg.Metrics.RecordDeadLetter(ctx, evt.Type(), handler)
}
