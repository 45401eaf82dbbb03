package r2client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPutGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewWithAPI(newFakeS3(), "bucket")

	etag, err := c.Put(ctx, "a.txt", strings.NewReader("hello"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "etag-1", etag, "quotes are trimmed")

	body, got, err := c.Get(ctx, "a.txt")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, etag, got)

	require.NoError(t, c.Delete(ctx, "a.txt"))
	_, _, err = c.Get(ctx, "a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientConditionalWrites(t *testing.T) {
	ctx := context.Background()
	c := NewWithAPI(newFakeS3(), "bucket")

	created, etag, err := c.PutIfAbsent(ctx, "k", strings.NewReader("1"), "")
	require.NoError(t, err)
	assert.True(t, created)

	created, _, err = c.PutIfAbsent(ctx, "k", strings.NewReader("2"), "")
	require.NoError(t, err)
	assert.False(t, created)

	updated, _, err := c.PutIfMatch(ctx, "k", strings.NewReader("3"), "stale", "")
	require.NoError(t, err)
	assert.False(t, updated)

	updated, next, err := c.PutIfMatch(ctx, "k", strings.NewReader("4"), etag, "")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NotEqual(t, etag, next)
}

func TestClientListPaginates(t *testing.T) {
	ctx := context.Background()
	c := NewWithAPI(newFakeS3(), "bucket")
	for _, k := range []string{"imports/3", "imports/1", "other/x", "imports/2"} {
		_, err := c.Put(ctx, k, strings.NewReader(k), "")
		require.NoError(t, err)
	}

	keys, err := c.List(ctx, "imports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"imports/1", "imports/2", "imports/3"}, keys)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isPreconditionFailed(fmt.Errorf("wrapped: %w", preconditionFailed())))
	assert.False(t, isPreconditionFailed(errors.New("PreconditionFailed in text only")))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{BucketName: "b"})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{AccessKeyID: "id", SecretKey: "s", BucketName: "b"})
	assert.Error(t, err, "account id or endpoint needed")
}

func TestDistributedLock(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	c := NewWithAPI(fake, "bucket")

	a := NewDistributedLock(c, "locks/notify.lock", time.Minute)
	b := NewDistributedLock(c, "locks/notify.lock", time.Minute)
	assert.NotEqual(t, a.ownerID, b.ownerID)
	assert.Equal(t, time.Minute, a.TTL())

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, a.etag)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "lease still valid")

	renewed, err := a.Renew(ctx)
	require.NoError(t, err)
	assert.True(t, renewed)

	// b releasing a lock it does not own leaves it in place.
	require.NoError(t, b.Release(ctx))
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx))
	assert.Empty(t, a.etag)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDistributedLockTakesOverExpiredLease(t *testing.T) {
	ctx := context.Background()
	c := NewWithAPI(newFakeS3(), "bucket")

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	a := NewDistributedLock(c, "lock", time.Minute)
	a.now = func() time.Time { return now }
	b := NewDistributedLock(c, "lock", time.Minute)
	b.now = func() time.Time { return now.Add(2 * time.Minute) }

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease can be taken over")

	renewed, err := a.Renew(ctx)
	require.NoError(t, err)
	assert.False(t, renewed, "previous owner lost the lease")
	assert.Empty(t, a.etag)
}

func TestDistributedLockCorruptBodyCountsAsExpired(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.overwrite("lock", []byte("not json"))
	l := NewDistributedLock(NewWithAPI(fake, "bucket"), "lock", time.Minute)

	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	body, _, err := l.client.Get(ctx, "lock")
	require.NoError(t, err)
	defer body.Close()
	var info LockInfo
	require.NoError(t, json.NewDecoder(body).Decode(&info))
	assert.Equal(t, l.ownerID, info.Owner)
}
