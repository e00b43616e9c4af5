// Package clock provides waits that end early on context cancellation or an external wake-up.
package clock

import (
	"context"
	"time"
)

// Wait blocks for d, until wake delivers a value, or until ctx ends, whichever comes first.
// A nil wake channel never fires. Only context cancellation produces an error.
func Wait(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wake:
		return nil
	case <-timer.C:
		return nil
	}
}

// Waiter returns Wait bound to wake.
func Waiter(wake <-chan struct{}) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		return Wait(ctx, d, wake)
	}
}
