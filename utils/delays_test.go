package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLinearDelay_Wait_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		delay   LinearDelay
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{
			name:    "first retry waits one step",
			delay:   LinearDelay{Step: 50 * time.Millisecond},
			attempt: 1,
			min:     45 * time.Millisecond,
			max:     500 * time.Millisecond,
		},
		{
			name:    "second retry waits two steps",
			delay:   LinearDelay{Step: 50 * time.Millisecond},
			attempt: 2,
			min:     95 * time.Millisecond,
			max:     600 * time.Millisecond,
		},
		{
			name:    "jitter only adds",
			delay:   LinearDelay{Step: 20 * time.Millisecond, Jitter: 20 * time.Millisecond},
			attempt: 1,
			min:     18 * time.Millisecond,
			max:     500 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			start := time.Now()
			if err := tt.delay.Wait(context.Background(), "task", tt.attempt); err != nil {
				t.Fatalf("Wait err: %v", err)
			}
			elapsed := time.Since(start)
			// Allow some timing variance.
			if elapsed < tt.min || elapsed > tt.max {
				t.Fatalf("elapsed=%v want within [%v,%v]", elapsed, tt.min, tt.max)
			}
		})
	}
}

func TestLinearDelay_Backoff_Golden(t *testing.T) {
	t.Parallel()

	d := LinearDelay{Step: time.Second}
	for attempt, want := range map[int]time.Duration{0: time.Second, 1: time.Second, 2: 2 * time.Second, 3: 3 * time.Second} {
		if got := d.Backoff(attempt); got != want {
			t.Fatalf("Backoff(%d)=%v want %v", attempt, got, want)
		}
	}
}

func TestLinearDelay_WaitCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := LinearDelay{Step: time.Hour}.Wait(ctx, "task", 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("canceled wait should return immediately")
	}
}
