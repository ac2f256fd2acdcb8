package dispatch

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// breakers lazily creates one circuit breaker per handler name.
type breakers struct {
	failures uint32
	cooldown time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	byName map[string]*gobreaker.CircuitBreaker
}

func newBreakers(failures int, cooldown time.Duration, logger *slog.Logger) *breakers {
	if failures <= 0 {
		return nil
	}
	return &breakers{
		failures: uint32(failures),
		cooldown: cooldown,
		logger:   logger,
		byName:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

// get returns the breaker for handler, or nil when breakers are disabled.
func (b *breakers) get(handler string) *gobreaker.CircuitBreaker {
	if b == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.byName[handler]; ok {
		return cb
	}

	threshold := b.failures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        handler,
		MaxRequests: 1,
		Timeout:     b.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if b.logger != nil {
				b.logger.Warn("circuit breaker state changed",
					slog.String("handler", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			}
		},
	})
	b.byName[handler] = cb
	return cb
}

// state reports the breaker state for handler.
func (b *breakers) state(handler string) (gobreaker.State, bool) {
	if b == nil {
		return gobreaker.StateClosed, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cb, ok := b.byName[handler]
	if !ok {
		return gobreaker.StateClosed, false
	}
	return cb.State(), true
}
