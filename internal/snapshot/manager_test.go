package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/r2client"
	"github.com/gochang/agri-notify/internal/storage"
)

type memStore struct {
	objects map[string][]byte
	getErr  error
}

func (s *memStore) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return "etag", nil
}

func (s *memStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	if s.getErr != nil {
		return nil, "", s.getErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, "", r2client.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "etag", nil
}

func newManager(store ObjectStore, t *testing.T) *Manager {
	return New(store, "snapshots/subsidy.db.zst", t.TempDir(), logger.NewWithWriter("error", io.Discard))
}

func TestUploadThenRestore(t *testing.T) {
	ctx := context.Background()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, db.ReplaceProjects(ctx, project.Samples()))

	store := &memStore{}
	m := newManager(store, t)
	size, err := m.Upload(ctx, db)
	require.NoError(t, err)
	assert.Positive(t, size)
	assert.Len(t, store.objects[m.Key()], int(size))

	dest := filepath.Join(t.TempDir(), "data", "subsidy.db")
	restored, err := m.RestoreIfMissing(ctx, dest)
	require.NoError(t, err)
	assert.True(t, restored)

	copied, err := storage.New(ctx, dest)
	require.NoError(t, err)
	defer func() { _ = copied.Close() }()
	n, err := copied.CountProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(project.Samples()), n)

	restored, err = m.RestoreIfMissing(ctx, dest)
	require.NoError(t, err)
	assert.False(t, restored, "an existing database is never overwritten")
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	ctx := context.Background()
	m := newManager(&memStore{}, t)
	dest := filepath.Join(t.TempDir(), "subsidy.db")

	require.ErrorIs(t, m.Restore(ctx, dest), ErrNotFound)

	restored, err := m.RestoreIfMissing(ctx, dest)
	require.NoError(t, err)
	assert.False(t, restored)
	_, err = os.Stat(dest)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRestoreCorruptSnapshotLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store := &memStore{objects: map[string][]byte{"snapshots/subsidy.db.zst": []byte("not zstd")}}
	m := newManager(store, t)
	dest := filepath.Join(t.TempDir(), "subsidy.db")

	require.Error(t, m.Restore(ctx, dest))
	_, err := os.Stat(dest)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(dest + ".restore")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRestoreDownloadError(t *testing.T) {
	m := newManager(&memStore{getErr: errors.New("timeout")}, t)
	_, err := m.RestoreIfMissing(context.Background(), filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
