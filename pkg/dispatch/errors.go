package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/randalmurphal/eventdispatch/pkg/dispatch/event"
)

// ErrCriticalHandlerFailed is wrapped by the EventPublishingError returned
// when a handler of a critical event type fails.
var ErrCriticalHandlerFailed = errors.New("critical event handler failed")

// Stage names the point of the publish cycle where a failure happened.
type Stage string

// Publish stages that can fail.
const (
	StageValidation Stage = "validation"
	StageRouting    Stage = "routing"
	StageDispatch   Stage = "dispatch"
)

// EventPublishingError wraps a structural failure of a single Publish call.
// Handler failures never produce one unless the event type is critical.
type EventPublishingError struct {
	// EventID is empty when the event itself was nil.
	EventID   string
	EventType string
	Stage     Stage
	Err       error
}

// Error implements the error interface.
func (e *EventPublishingError) Error() string {
	if e.EventID == "" && e.EventType == "" {
		return fmt.Sprintf("publish event failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("publish event %s (%s) failed at %s: %v", e.EventID, e.EventType, e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *EventPublishingError) Unwrap() error {
	return e.Err
}

// HandlerExecutionError reports a handler that failed after its whole
// attempt budget. It is recorded and logged, not returned to producers.
type HandlerExecutionError struct {
	Handler   string
	EventID   string
	EventType string
	Attempts  int
	Err       error
}

// Error implements the error interface.
func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("handler %s failed on event %s after %d attempt(s): %v",
		e.Handler, e.EventID, e.Attempts, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HandlerExecutionError) Unwrap() error {
	return e.Err
}

// PanicError is produced when a handler panics.
type PanicError struct {
	Value any
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// PublishResult is the per-event outcome of PublishAll and Replay.
type PublishResult struct {
	Event   event.Event
	Success bool
	Err     error
}

// BatchEventPublishingError summarizes the Publish failures of a PublishAll
// call that did not stop on the first failure.
type BatchEventPublishingError struct {
	Total    int
	Failures []PublishResult
}

// Error implements the error interface.
func (e *BatchEventPublishingError) Error() string {
	counts := e.FailureTypes()
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	parts := make([]string, len(kinds))
	for i, kind := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", kind, counts[kind])
	}
	return fmt.Sprintf("batch publish: %d of %d events failed (%s)",
		len(e.Failures), e.Total, strings.Join(parts, ", "))
}

// FailureTypes counts failures by the Go type of their cause.
func (e *BatchEventPublishingError) FailureTypes() map[string]int {
	counts := make(map[string]int)
	for _, f := range e.Failures {
		cause := f.Err
		var perr *EventPublishingError
		if errors.As(cause, &perr) && perr.Err != nil {
			cause = perr.Err
		}
		counts[fmt.Sprintf("%T", cause)]++
	}
	return counts
}

// Unwrap exposes every failure for errors.Is/As support.
func (e *BatchEventPublishingError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}
