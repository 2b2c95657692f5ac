package verifier

import (
	"context"
	"net/http"
	"time"
)

const DefaultRetryAttempts = 3

// AttemptFunc is one try against the remote API. It returns the observed
// value, the HTTP status (0 when no response was received) and any error.
type AttemptFunc[T any] func(ctx context.Context) (T, int, error)

// RetryPolicy retries an AttemptFunc with exponential backoff. Statuses the
// short-circuit predicate declines to retry are returned immediately; after
// the final attempt the last outcome is returned as-is, response or error.
type RetryPolicy struct {
	// Attempts is the total number of tries. Defaults to 3.
	Attempts int

	// BaseDelay is the first backoff delay; each retry doubles it
	// (1s, 2s, 4s with the default). Defaults to 1s.
	BaseDelay time.Duration

	// ShouldRetry decides whether an outcome is worth another attempt.
	// Defaults to DefaultShouldRetry.
	ShouldRetry func(status int, err error) bool

	// Sleep is the delay function, injectable for tests. Defaults to
	// time.Sleep. The retry loop deliberately carries no deadline of its
	// own; callers needing an upper bound wrap the entry point.
	Sleep func(d time.Duration)
}

// DefaultShouldRetry retries transport errors, 5xx and 429. Everything else,
// including 401/403/404, is a definitive answer.
func DefaultShouldRetry(status int, err error) bool {
	if status == 0 && err != nil {
		return true
	}
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = DefaultShouldRetry
	}
	if p.Sleep == nil {
		p.Sleep = time.Sleep
	}
	return p
}

// Retry runs fn under the policy and returns the final outcome.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn AttemptFunc[T]) (T, int, error) {
	p := policy.withDefaults()

	var (
		value  T
		status int
		err    error
	)
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 {
			p.Sleep(p.BaseDelay << (attempt - 1))
		}
		value, status, err = fn(ctx)
		if !p.ShouldRetry(status, err) {
			return value, status, err
		}
	}
	return value, status, err
}
