package event

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Registry maps event types to their ordered handler lists.
// Order is registration order; the registry never reorders.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe appends handler to the list for eventType.
// The same handler may be subscribed more than once and will then be
// invoked once per subscription.
func (r *Registry) Subscribe(eventType string, handler Handler) error {
	if strings.TrimSpace(eventType) == "" {
		return &ValidationError{Field: "event_type", Message: "must not be empty"}
	}
	if isNil(handler) {
		return &ValidationError{Field: "handler", Message: "must not be nil"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[eventType] = append(r.handlers[eventType], handler)
	return nil
}

// Unsubscribe removes the first subscription of handler to eventType.
// It reports whether a subscription was removed. When the last handler of a
// type is removed the type itself is forgotten.
func (r *Registry) Unsubscribe(eventType string, handler Handler) bool {
	if isNil(handler) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.handlers[eventType]
	if !ok {
		return false
	}

	for i, h := range list {
		if !sameHandler(h, handler) {
			continue
		}
		// Copy so that slices handed out by Lookup stay untouched
		next := make([]Handler, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(r.handlers, eventType)
		} else {
			r.handlers[eventType] = next
		}
		return true
	}
	return false
}

// Lookup returns the handlers subscribed to eventType.
// Returns nil (not an error) when there are none.
func (r *Registry) Lookup(eventType string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.handlers[eventType]
	if len(list) == 0 {
		return nil
	}
	out := make([]Handler, len(list))
	copy(out, list)
	return out
}

// Has returns true if at least one handler is subscribed to eventType.
func (r *Registry) Has(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[eventType]
	return ok
}

// Types returns all event types with subscribers, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// HandlerCount returns the number of subscriptions across all types.
func (r *Registry) HandlerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, list := range r.handlers {
		count += len(list)
	}
	return count
}

// sameHandler compares by identity. Values of non-comparable dynamic types
// never match instead of panicking.
func sameHandler(a, b Handler) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
