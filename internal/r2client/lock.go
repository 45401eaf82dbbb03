package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

const lockContentType = "application/json"

// LockInfo is the body of the lock object.
type LockInfo struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DistributedLock is a lease held as an object in R2. Creation uses
// If-None-Match and takeover of an expired lease uses If-Match, so only one
// owner wins each race.
type DistributedLock struct {
	client  *Client
	key     string
	ttl     time.Duration
	ownerID string
	now     func() time.Time

	mu   sync.Mutex
	etag string
}

// NewDistributedLock creates a lock with a fresh owner id.
func NewDistributedLock(client *Client, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client:  client,
		key:     key,
		ttl:     ttl,
		ownerID: uuid.NewString(),
		now:     time.Now,
	}
}

// TTL returns the lease length written on Acquire and Renew.
func (l *DistributedLock) TTL() time.Duration { return l.ttl }

// Acquire tries once to take the lock. It returns false without error when
// another owner holds an unexpired lease.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	body, err := l.lease()
	if err != nil {
		return false, err
	}
	created, etag, err := l.client.PutIfAbsent(ctx, l.key, bytes.NewReader(body), lockContentType)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	info, current, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		// Released between our two calls; the next tick will retry.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if info != nil && l.now().Before(info.ExpiresAt) {
		return false, nil
	}

	taken, etag, err := l.client.PutIfMatch(ctx, l.key, bytes.NewReader(body), current, lockContentType)
	if err != nil {
		return false, fmt.Errorf("acquire lock: take over: %w", err)
	}
	if taken {
		l.etag = etag
	}
	return taken, nil
}

// Renew extends the lease if this owner still holds it.
func (l *DistributedLock) Renew(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.etag == "" {
		return false, nil
	}
	body, err := l.lease()
	if err != nil {
		return false, err
	}
	updated, etag, err := l.client.PutIfMatch(ctx, l.key, bytes.NewReader(body), l.etag, lockContentType)
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	if !updated {
		l.etag = ""
		return false, nil
	}
	l.etag = etag
	return true, nil
}

// Release deletes the lock object if this owner still holds it.
func (l *DistributedLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, _, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		l.etag = ""
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if info != nil && info.Owner != l.ownerID {
		l.etag = ""
		return nil
	}
	l.etag = ""
	return l.client.Delete(ctx, l.key)
}

func (l *DistributedLock) lease() ([]byte, error) {
	data, err := json.Marshal(LockInfo{Owner: l.ownerID, ExpiresAt: l.now().Add(l.ttl)})
	if err != nil {
		return nil, fmt.Errorf("marshal lock: %w", err)
	}
	return data, nil
}

// read returns the current lease. A nil info means the body is unreadable
// and the lease counts as expired.
func (l *DistributedLock) read(ctx context.Context) (*LockInfo, string, error) {
	body, etag, err := l.client.Get(ctx, l.key)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read lock: %w", err)
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, etag, nil
	}
	return &info, etag, nil
}
