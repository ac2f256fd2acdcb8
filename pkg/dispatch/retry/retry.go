// Package retry runs an operation with a bounded number of attempts and a
// backoff delay between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backoff selects how the delay grows between attempts.
type Backoff int

const (
	// BackoffLinear waits Delay * n after the n-th failed attempt.
	BackoffLinear Backoff = iota

	// BackoffConstant always waits Delay.
	BackoffConstant

	// BackoffExponential waits Delay * 2^(n-1) after the n-th failed attempt.
	BackoffExponential
)

// String returns the backoff name.
func (b Backoff) String() string {
	switch b {
	case BackoffLinear:
		return "linear"
	case BackoffConstant:
		return "constant"
	case BackoffExponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// ParseBackoff converts a name from configuration into a Backoff.
func ParseBackoff(s string) (Backoff, error) {
	switch s {
	case "", "linear":
		return BackoffLinear, nil
	case "constant":
		return BackoffConstant, nil
	case "exponential":
		return BackoffExponential, nil
	default:
		return BackoffLinear, fmt.Errorf("unknown backoff %q", s)
	}
}

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	// Delay is the base delay between attempts.
	Delay time.Duration

	// Backoff controls how Delay grows. Default: BackoffLinear.
	Backoff Backoff

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration

	// RetryableFunc optionally decides whether an error is worth retrying.
	// Default: everything except errors marked with Permanent.
	RetryableFunc func(error) bool

	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Default is the standard configuration: three attempts, linear backoff
// starting at one second.
var Default = Config{
	MaxAttempts: 3,
	Delay:       1 * time.Second,
	Backoff:     BackoffLinear,
}

// None disables retries.
var None = Config{
	MaxAttempts: 1,
}

// DelayFor returns the wait after the given failed attempt (1-based).
func (c Config) DelayFor(attempt int) time.Duration {
	if attempt < 1 || c.Delay <= 0 {
		return 0
	}

	var d time.Duration
	switch c.Backoff {
	case BackoffConstant:
		d = c.Delay
	case BackoffExponential:
		d = c.Delay
		for i := 1; i < attempt; i++ {
			d *= 2
			if c.MaxDelay > 0 && d > c.MaxDelay {
				break
			}
		}
	default:
		d = c.Delay * time.Duration(attempt)
	}

	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// WithAttempts returns a copy of c with a different attempt budget.
func (c Config) WithAttempts(n int) Config {
	c.MaxAttempts = n
	return c
}

// Result describes the outcome of Do.
type Result struct {
	// Err is the last error if every attempt failed.
	Err error

	// Attempts is the number of attempts made.
	Attempts int

	// Duration is the total time spent, waits included.
	Duration time.Duration
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempt
// budget is spent, or ctx is done.
//
// Waiting happens on a timer selected against ctx, so it only parks the
// calling goroutine.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context, attempt int) error) Result {
	start := time.Now()

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	isRetryable := cfg.RetryableFunc
	if isRetryable == nil {
		isRetryable = func(err error) bool {
			return !IsPermanent(err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return Result{Err: lastErr, Attempts: attempt - 1, Duration: time.Since(start)}
		}

		err := fn(ctx, attempt)
		if err == nil {
			return Result{Attempts: attempt, Duration: time.Since(start)}
		}
		lastErr = err

		if !isRetryable(err) || attempt == maxAttempts {
			return Result{Err: err, Attempts: attempt, Duration: time.Since(start)}
		}

		delay := cfg.DelayFor(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, err)
		}
		if delay <= 0 {
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Err: err, Attempts: attempt, Duration: time.Since(start)}
		case <-timer.C:
		}
	}

	return Result{Err: lastErr, Attempts: maxAttempts, Duration: time.Since(start)}
}

// PermanentError marks an error that retrying will not fix.
type PermanentError struct {
	Err error
}

// Error implements the error interface.
func (e *PermanentError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so that Do stops after the current attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
