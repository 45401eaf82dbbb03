package sentry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDisabledWithoutToken(t *testing.T) {
	assert.NoError(t, Initialize(Config{Token: ""}))
}

func TestInitializeRequiresHost(t *testing.T) {
	assert.Error(t, Initialize(Config{Token: "test-token", Host: ""}))
}

func TestInitializeValidConfig(t *testing.T) {
	err := Initialize(Config{
		Token:       "test-token",
		Host:        "errors.betterstack.com",
		Environment: "test",
	})
	require.NoError(t, err)
	assert.True(t, IsEnabled())
	Flush(time.Second)
}

type recorder struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (r *recorder) hubContext(t *testing.T) context.Context {
	t.Helper()
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			r.mu.Lock()
			r.events = append(r.events, e)
			r.mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())
	return sentry.SetHubOnContext(context.Background(), hub)
}

func TestCaptureWithTags(t *testing.T) {
	rec := &recorder{}
	ctx := rec.hubContext(t)

	CaptureWithTags(ctx, errors.New("dispatch failed"), map[string]string{
		"project_id": "agr001",
		"stage":      "dispatch",
	})
	CaptureWithTags(ctx, nil, nil)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.events, 1)
	assert.Equal(t, "agr001", rec.events[0].Tags["project_id"])
	assert.Equal(t, "dispatch", rec.events[0].Tags["stage"])
}

func TestCaptureExceptionUsesContextHub(t *testing.T) {
	rec := &recorder{}
	ctx := rec.hubContext(t)

	CaptureException(ctx, errors.New("boom"))
	CaptureException(ctx, nil)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.events, 1)
}
