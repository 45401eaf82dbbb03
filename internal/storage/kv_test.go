package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gochang/agri-notify/internal/state"
)

var _ state.Store = (*DB)(nil)

func TestKVStore(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	_, ok, err := db.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Set(ctx, "user_name", "홍길동"))
	require.NoError(t, db.Set(ctx, "user_name", "김농부"))
	v, ok, err := db.Get(ctx, "user_name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "김농부", v)

	require.NoError(t, db.Delete(ctx, "user_name"))
	require.NoError(t, db.Delete(ctx, "user_name"))
	_, ok, err = db.Get(ctx, "user_name")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVKeysLiteralPrefix(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	for _, k := range []string{"notify_opt_in_b", "notify_opt_in_a", "notifyXopt_in_c", "user_name"} {
		require.NoError(t, db.Set(ctx, k, "true"))
	}

	keys, err := db.Keys(ctx, "notify_opt_in_")
	require.NoError(t, err)
	assert.Equal(t, []string{"notify_opt_in_a", "notify_opt_in_b"}, keys)

	all, err := db.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestKVBacksTracker(t *testing.T) {
	ctx := context.Background()
	tr := state.NewTracker(setupTestDB(t))

	require.NoError(t, tr.MarkDeadlineSent(ctx, "agr001", "2025.03.31"))
	sent, err := tr.DeadlineSent(ctx, "agr001", "2025.03.31")
	require.NoError(t, err)
	assert.True(t, sent)
}
