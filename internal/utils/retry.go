package utils

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds an outbound call: every attempt gets its own timeout and
// failed attempts are retried after a doubling backoff.
type RetryPolicy struct {
	Attempts int
	Timeout  time.Duration
	Backoff  time.Duration
}

// SingleRetry is one retry after a short backoff.
func SingleRetry(timeout time.Duration) RetryPolicy {
	return RetryPolicy{Attempts: 2, Timeout: timeout, Backoff: 500 * time.Millisecond}
}

// NewBackOff doubles from initial with no jitter and allows at most attempts
// calls in total. It stops as soon as ctx is done.
func NewBackOff(ctx context.Context, attempts int, initial time.Duration) backoff.BackOff {
	if attempts < 1 {
		attempts = 1
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initial
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// Do runs fn until it succeeds, attempts run out, or ctx is done.
func Do[T any](ctx context.Context, p RetryPolicy, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	var lastErr error
	op := func() (T, error) {
		attempt++
		out, err := runAttempt(ctx, p.Timeout, fn)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return out, backoff.Permanent(err)
		}
		slog.Warn("[Retry] Attempt failed",
			slog.String("call", name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()))
		return out, err
	}

	out, err := backoff.RetryWithData(op, NewBackOff(ctx, attempts, p.Backoff))
	if err != nil {
		var zero T
		// Cancellation while waiting reports only ctx.Err(); keep the cause.
		if lastErr != nil && !errors.Is(err, lastErr) {
			err = errors.Join(lastErr, err)
		}
		return zero, err
	}
	return out, nil
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}
