package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func TestDoRetriesOnce(t *testing.T) {
	calls := 0
	out, err := Do(context.Background(), RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, "test",
		func(context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
	if err != nil || out != "ok" {
		t.Fatalf("expected ok, got %q %v", out, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDoGivesUp(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, "test",
		func(context.Context) (int, error) {
			calls++
			return 0, errors.New("down")
		})
	if err == nil || calls != 2 {
		t.Fatalf("expected failure after 2 calls, got %v after %d", err, calls)
	}
}

func TestDoAppliesAttemptTimeout(t *testing.T) {
	_, err := Do(context.Background(), RetryPolicy{Attempts: 1, Timeout: 10 * time.Millisecond}, "test",
		func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, RetryPolicy{Attempts: 3, Backoff: time.Second}, "test",
		func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, errors.New("failed")
		})
	if err == nil || calls != 1 {
		t.Fatalf("expected a single call before cancellation, got %d (%v)", calls, err)
	}
}

func TestNewBackOffDoublesAndStops(t *testing.T) {
	b := NewBackOff(context.Background(), 3, 10*time.Millisecond)
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Fatalf("wait %d: expected %v, got %v", i, w, got)
		}
	}
	if got := b.NextBackOff(); got != backoff.Stop {
		t.Fatalf("expected stop after the last attempt, got %v", got)
	}
}

func TestDoKeepsCauseWhenCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cause := errors.New("upstream down")
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := Do(ctx, RetryPolicy{Attempts: 3, Backoff: time.Second}, "test",
		func(context.Context) (int, error) {
			return 0, cause
		})
	if !errors.Is(err, cause) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected both the cause and cancellation, got %v", err)
	}
}

func TestBatchBuffer(t *testing.T) {
	b := NewBatchBuffer[int](2)
	if full := b.Add(1); full {
		t.Fatalf("buffer should not be full after one item")
	}
	if full := b.Add(2); !full {
		t.Fatalf("buffer should be full after two items")
	}
	batch := b.GetAndClear()
	if len(batch) != 2 || b.Size() != 0 {
		t.Fatalf("unexpected drain %v size=%d", batch, b.Size())
	}
	if b.GetAndClear() != nil {
		t.Fatalf("expected nil from empty buffer")
	}
}
