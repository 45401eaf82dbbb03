package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTemporary = errors.New("temporary")

func TestDoSucceedsAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := Do(context.Background(), 5, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts == 3 {
			return nil
		}
		return errTemporary
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoMaxRetriesExceeded(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := Do(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		return errTemporary
	})

	assert.ErrorIs(t, err, errTemporary)
	assert.Equal(t, 4, attempts, "initial attempt plus three retries")
}

func TestDoStopsOnPermanent(t *testing.T) {
	t.Parallel()
	attempts := 0
	cause := errors.New("invalid token")

	err := Do(context.Background(), 5, time.Millisecond, func(context.Context) error {
		attempts++
		return Permanent(cause)
	})

	assert.Equal(t, cause, err)
	assert.Equal(t, 1, attempts)
}

func TestDoContextCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(ctx, 5, 50*time.Millisecond, func(context.Context) error {
		attempts++
		cancel()
		return errTemporary
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestBackoffRange(t *testing.T) {
	t.Parallel()
	for attempt := range 4 {
		base := time.Duration(100*(1<<attempt)) * time.Millisecond
		for range 20 {
			d := Backoff(100*time.Millisecond, attempt)
			assert.GreaterOrEqual(t, d, base*3/4)
			assert.LessOrEqual(t, d, base*5/4)
		}
	}
}

func TestPermanentHelpers(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Permanent(nil))
	assert.True(t, IsPermanent(Permanent(errTemporary)))
	assert.False(t, IsPermanent(errTemporary))
	assert.ErrorIs(t, Permanent(errTemporary), errTemporary)
}
