package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/cloudtun/cloudtun/pkg/cloud"
)

// backoff bounds a polling loop. The delay doubles after each attempt up
// to the cap.
type backoff struct {
	attempts int
	initial  time.Duration
	cap      time.Duration
}

var (
	runningBackoff = backoff{attempts: 30, initial: 2 * time.Second, cap: 20 * time.Second}
	bootBackoff    = backoff{attempts: 24, initial: 5 * time.Second, cap: 30 * time.Second}
)

// poll invokes fn until it reports done, the attempt budget runs out or
// ctx is cancelled. Transient provider errors are retried like a not-done
// result; any other error stops the loop immediately. Cancellation leaves
// whatever state the last completed attempt persisted.
func (e *Engine) poll(ctx context.Context, b backoff, fn func(context.Context) (bool, error)) (bool, error) {
	delay := b.initial
	for attempt := 1; attempt <= b.attempts; attempt++ {
		done, err := fn(ctx)
		if err != nil {
			var transient *cloud.TransientError
			if !errors.As(err, &transient) {
				return false, err
			}
			e.logger.Warn().Err(err).Int("attempt", attempt).Msg("Transient provider error, retrying")
		}
		if done {
			return true, nil
		}
		if attempt == b.attempts {
			break
		}
		if err := e.sleep(ctx, delay); err != nil {
			return false, err
		}
		delay *= 2
		if delay > b.cap {
			delay = b.cap
		}
	}
	return false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
