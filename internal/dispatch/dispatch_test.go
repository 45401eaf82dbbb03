package dispatch

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/retry"
)

func testLogger() *logger.Logger {
	return logger.NewWithWriter("debug", io.Discard)
}

func sampleReminder() Reminder {
	return Reminder{
		Channel:     ChannelProject,
		Title:       "🔔 🌾 중소농기계 지원",
		Body:        "신청 기간이 시작되었습니다!",
		LongBody:    "🌾 중소농기계 지원\n\n📅 신청기간: 2025.03.01~2025.03.31",
		DedupeKey:   DedupeKey("agr001"),
		ProjectID:   "agr001",
		ProjectName: "중소농기계 지원",
		Period:      "2025.03.01~2025.03.31",
		Category:    project.CategoryAgriculture,
		Date:        "2025.03.01",
	}
}

type funcDispatcher struct {
	name  string
	calls atomic.Int32
	fn    func(int) error
}

func (f *funcDispatcher) Name() string { return f.name }

func (f *funcDispatcher) Dispatch(context.Context, Reminder) error {
	n := int(f.calls.Add(1))
	if f.fn == nil {
		return nil
	}
	return f.fn(n)
}

func TestDedupeKeyIsStableFNV(t *testing.T) {
	// FNV-1a 32-bit of "a" is 0xe40c292c.
	assert.Equal(t, "e40c292c", DedupeKey("a"))
	assert.Equal(t, DedupeKey("agr001"), DedupeKey("agr001"))
	assert.NotEqual(t, DedupeKey("agr001"), DedupeKey("agr002"))
}

func TestMultiSendsToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &funcDispatcher{name: "ok"}
	bad := &funcDispatcher{name: "bad", fn: func(int) error { return boom }}

	m := NewMulti(ok, nil, bad)
	assert.Equal(t, 2, m.Len())

	err := m.Dispatch(context.Background(), sampleReminder())
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, ok.calls.Load())
	assert.EqualValues(t, 1, bad.calls.Load())

	assert.NoError(t, NewMulti().Dispatch(context.Background(), sampleReminder()))
}

func TestMultiNamesFailingSinksInOrder(t *testing.T) {
	first := &funcDispatcher{name: "line", fn: func(int) error { return errors.New("quota") }}
	second := &funcDispatcher{name: "fcm", fn: func(int) error { return errors.New("token") }}

	err := NewMulti(first, &funcDispatcher{name: "log"}, second).Dispatch(context.Background(), sampleReminder())
	require.Error(t, err)
	assert.Equal(t, "line: quota\nfcm: token", err.Error())
}

func TestRetryingRetriesTransientErrors(t *testing.T) {
	flaky := &funcDispatcher{name: "flaky", fn: func(n int) error {
		if n < 3 {
			return errors.New("503")
		}
		return nil
	}}

	d := NewRetrying(flaky, 3, time.Millisecond, time.Second)
	assert.Equal(t, "flaky", d.Name())
	require.NoError(t, d.Dispatch(context.Background(), sampleReminder()))
	assert.EqualValues(t, 3, flaky.calls.Load())
}

func TestRetryingStopsOnPermanent(t *testing.T) {
	cause := apperrors.NewDispatchError("line", "agr001", errors.New("status 401"))
	denied := &funcDispatcher{name: "line", fn: func(int) error { return retry.Permanent(cause) }}

	err := NewRetrying(denied, 3, time.Millisecond, 0).Dispatch(context.Background(), sampleReminder())
	assert.ErrorIs(t, err, apperrors.ErrDispatch)
	var de *apperrors.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "line", de.Sink)
	assert.EqualValues(t, 1, denied.calls.Load())
}

func TestLogDispatcher(t *testing.T) {
	d := NewLogDispatcher(testLogger())
	assert.Equal(t, "log", d.Name())
	assert.NoError(t, d.Dispatch(context.Background(), sampleReminder()))
}
