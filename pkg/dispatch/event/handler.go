package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Handler is a unit of side-effect work bound to one event type.
//
// Handle may be invoked more than once for the same event (retries, replay,
// duplicate subscriptions). Idempotency is the handler author's concern.
type Handler interface {
	// Handle processes an event.
	Handle(ctx context.Context, evt Event) error

	// Name identifies the handler in logs, metrics and history records.
	Name() string

	// EventType is the type the handler declares it consumes.
	// The registry does not enforce it; subscribers are expected to honor it.
	EventType() string
}

// Filter is implemented by handlers that want a second look at events
// routed to them. Events for which CanHandle returns false are skipped.
type Filter interface {
	CanHandle(evt Event) bool
}

// Prioritized is implemented by handlers that want to run ahead of others.
// Higher priorities run first; ties keep registration order.
type Prioritized interface {
	Priority() int
}

// RetryPolicy overrides the dispatcher's retry defaults for one handler.
type RetryPolicy interface {
	// SupportsRetry reports whether failed invocations may be retried.
	SupportsRetry() bool

	// MaxRetries is the total attempt budget. Zero means use the default.
	MaxRetries() int
}

// HandleFunc is the bare invocation signature used by middleware.
type HandleFunc func(ctx context.Context, evt Event) error

// FuncHandler adapts a function to the Handler interface and implements
// every optional capability.
type FuncHandler struct {
	name       string
	eventType  string
	fn         HandleFunc
	priority   int
	filter     func(Event) bool
	maxRetries int
	noRetry    bool
}

// HandlerOption configures a FuncHandler.
type HandlerOption func(*FuncHandler)

// WithPriority sets the handler priority.
func WithPriority(p int) HandlerOption {
	return func(h *FuncHandler) {
		h.priority = p
	}
}

// WithFilter sets the CanHandle predicate.
func WithFilter(fn func(Event) bool) HandlerOption {
	return func(h *FuncHandler) {
		h.filter = fn
	}
}

// WithMaxRetries overrides the attempt budget for this handler.
func WithMaxRetries(n int) HandlerOption {
	return func(h *FuncHandler) {
		h.maxRetries = n
	}
}

// WithoutRetry makes every failure final after one attempt.
func WithoutRetry() HandlerOption {
	return func(h *FuncHandler) {
		h.noRetry = true
	}
}

// NewHandler creates a handler from a function.
func NewHandler(name, eventType string, fn HandleFunc, opts ...HandlerOption) *FuncHandler {
	h := &FuncHandler{
		name:      name,
		eventType: eventType,
		fn:        fn,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle implements Handler.
func (h *FuncHandler) Handle(ctx context.Context, evt Event) error {
	return h.fn(ctx, evt)
}

// Name implements Handler.
func (h *FuncHandler) Name() string {
	return h.name
}

// EventType implements Handler.
func (h *FuncHandler) EventType() string {
	return h.eventType
}

// CanHandle implements Filter. Without a predicate every event is accepted.
func (h *FuncHandler) CanHandle(evt Event) bool {
	if h.filter == nil {
		return true
	}
	return h.filter(evt)
}

// Priority implements Prioritized.
func (h *FuncHandler) Priority() int {
	return h.priority
}

// SupportsRetry implements RetryPolicy.
func (h *FuncHandler) SupportsRetry() bool {
	return !h.noRetry
}

// MaxRetries implements RetryPolicy.
func (h *FuncHandler) MaxRetries() int {
	return h.maxRetries
}

// TypedHandler wraps a function handling a specific payload type.
func TypedHandler[T any](
	name string,
	eventType string,
	fn func(ctx context.Context, payload T, meta Metadata) error,
	opts ...HandlerOption,
) *FuncHandler {
	return NewHandler(name, eventType, func(ctx context.Context, evt Event) error {
		payload, err := decodePayload[T](evt)
		if err != nil {
			return err
		}
		return fn(ctx, payload, MetadataOf(evt))
	}, opts...)
}

func decodePayload[T any](evt Event) (T, error) {
	var payload T

	switch d := evt.Data().(type) {
	case T:
		return d, nil
	case map[string]any:
		// JSON round-trip for loosely typed producers
		raw, err := json.Marshal(d)
		if err != nil {
			return payload, fmt.Errorf("marshal payload of event %s: %w", evt.ID(), err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return payload, fmt.Errorf("decode payload of event %s: %w", evt.ID(), err)
		}
		return payload, nil
	default:
		return payload, fmt.Errorf("event %s: unexpected payload type %T", evt.ID(), evt.Data())
	}
}

// MiddlewareFunc wraps an invocation to add cross-cutting concerns.
// It wraps the call, never the registered handler, so subscriptions keep
// their identity.
type MiddlewareFunc func(next HandleFunc) HandleFunc

// ChainMiddleware applies middleware in order, with first middleware outermost.
func ChainMiddleware(fn HandleFunc, middleware ...MiddlewareFunc) HandleFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		fn = middleware[i](fn)
	}
	return fn
}

// LoggingMiddleware reports every invocation to logFn.
func LoggingMiddleware(logFn func(eventType string, duration time.Duration, err error)) MiddlewareFunc {
	return func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, evt Event) error {
			start := time.Now()
			err := next(ctx, evt)
			logFn(evt.Type(), time.Since(start), err)
			return err
		}
	}
}

// RecoveryMiddleware converts handler panics into errors.
func RecoveryMiddleware() MiddlewareFunc {
	return func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, evt Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(ctx, evt)
		}
	}
}
