package dispatch

import (
	"context"
	"time"

	"github.com/gochang/agri-notify/internal/retry"
)

// Retrying retries transient failures of the wrapped sink with exponential
// backoff. Sinks mark unrecoverable errors with retry.Permanent.
type Retrying struct {
	next         Dispatcher
	maxRetries   int
	initialDelay time.Duration
	attempt      time.Duration
}

// NewRetrying wraps next. attemptTimeout bounds each single attempt.
func NewRetrying(next Dispatcher, maxRetries int, initialDelay, attemptTimeout time.Duration) *Retrying {
	return &Retrying{next: next, maxRetries: maxRetries, initialDelay: initialDelay, attempt: attemptTimeout}
}

func (d *Retrying) Name() string { return d.next.Name() }

func (d *Retrying) Dispatch(ctx context.Context, r Reminder) error {
	return retry.Do(ctx, d.maxRetries, d.initialDelay, func(ctx context.Context) error {
		if d.attempt > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.attempt)
			defer cancel()
		}
		return d.next.Dispatch(ctx, r)
	})
}
