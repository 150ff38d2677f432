package utils

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryDelay pauses between attempts. Wait returns early with the context
// error when ctx is done.
type RetryDelay interface {
	Wait(ctx context.Context, taskName string, attempt int) error
}

// LinearDelay waits attempt*Step, plus up to Jitter of random slack.
type LinearDelay struct {
	Step   time.Duration
	Jitter time.Duration
}

func (d LinearDelay) Wait(ctx context.Context, taskName string, attempt int) error {
	if attempt < 1 {
		attempt = 1
	}
	wait := time.Duration(attempt) * d.Step
	if d.Jitter > 0 {
		wait += rand.N(d.Jitter)
	}
	return sleep(ctx, wait)
}

// Backoff reports the pause LinearDelay applies before the given attempt,
// without jitter.
func (d LinearDelay) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * d.Step
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
