package event

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidationError reports a malformed event or subscription argument.
// It always blocks dispatch.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Validate checks the envelope invariants: id, type and aggregate id are
// non-blank and OccurredAt is a real timestamp.
func Validate(evt Event) error {
	if isNil(evt) {
		return &ValidationError{Message: "event is nil"}
	}
	if strings.TrimSpace(evt.ID()) == "" {
		return &ValidationError{Field: "id", Message: "must not be empty"}
	}
	if strings.TrimSpace(evt.Type()) == "" {
		return &ValidationError{Field: "type", Message: "must not be empty"}
	}
	if strings.TrimSpace(evt.AggregateID()) == "" {
		return &ValidationError{Field: "aggregate_id", Message: "must not be empty"}
	}
	if evt.OccurredAt().IsZero() {
		return &ValidationError{Field: "occurred_at", Message: "must be a valid timestamp"}
	}
	return nil
}

// IsNil reports whether evt is nil or a typed nil pointer.
func IsNil(evt Event) bool {
	return isNil(evt)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Func, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
