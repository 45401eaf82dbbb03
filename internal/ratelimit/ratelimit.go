// Package ratelimit provides token bucket limiters for outgoing LINE API
// calls and per-user webhook commands.
package ratelimit

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket. It is safe for concurrent use.
type Limiter struct {
	bucket *rate.Limiter
	now    func() time.Time
}

// New creates a full bucket holding maxTokens that refills at refillRate
// tokens per second. maxTokens is rounded up to a whole token.
func New(maxTokens, refillRate float64) *Limiter {
	return newWithClock(maxTokens, refillRate, time.Now)
}

func newWithClock(maxTokens, refillRate float64, now func() time.Time) *Limiter {
	burst := max(1, int(math.Ceil(maxTokens)))
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(refillRate), burst),
		now:    now,
	}
}

// Allow consumes a token if one is available.
func (l *Limiter) Allow() bool {
	return l.bucket.AllowN(l.now(), 1)
}

// Wait blocks until a token is available or ctx is done. It fails fast
// when ctx expires before the token would be available.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := l.bucket.ReserveN(l.now(), 1)
	if !r.OK() {
		return context.DeadlineExceeded
	}
	delay := r.DelayFrom(l.now())
	if delay <= 0 {
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && l.now().Add(delay).After(deadline) {
		r.CancelAt(l.now())
		return context.DeadlineExceeded
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.CancelAt(l.now())
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Available returns the current token count.
func (l *Limiter) Available() float64 {
	return l.bucket.TokensAt(l.now())
}

// IsFull reports whether the bucket is back at capacity, i.e. idle.
func (l *Limiter) IsFull() bool {
	return l.Available() >= float64(l.bucket.Burst())
}
