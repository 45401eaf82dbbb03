package state

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:"), mr
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	rs, _ := setupTestRedis(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "user_name", "김농부"))
			v, ok, err := s.Get(ctx, "user_name")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "김농부", v)

			require.NoError(t, s.Set(ctx, "notify_opt_in_b", "true"))
			require.NoError(t, s.Set(ctx, "notify_opt_in_a", "true"))
			keys, err := s.Keys(ctx, "notify_opt_in_")
			require.NoError(t, err)
			assert.Equal(t, []string{"notify_opt_in_a", "notify_opt_in_b"}, keys)

			require.NoError(t, s.Delete(ctx, "notify_opt_in_a"))
			require.NoError(t, s.Delete(ctx, "never_set"))
			keys, err = s.Keys(ctx, "notify_opt_in_")
			require.NoError(t, err)
			assert.Equal(t, []string{"notify_opt_in_b"}, keys)
		})
	}
}

func TestBoolHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v, err := GetBool(ctx, s, KeyFirstLaunch, true)
	require.NoError(t, err)
	assert.True(t, v, "absent key falls back to default")

	require.NoError(t, SetBool(ctx, s, KeyFirstLaunch, false))
	v, err = GetBool(ctx, s, KeyFirstLaunch, true)
	require.NoError(t, err)
	assert.False(t, v)

	require.NoError(t, s.Set(ctx, "garbage", "not-a-bool"))
	v, err = GetBool(ctx, s, "garbage", true)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestRedisStorePrefixAndGlob(t *testing.T) {
	ctx := context.Background()
	rs, mr := setupTestRedis(t)

	require.NoError(t, rs.Set(ctx, "line_recipient_U1", "true"))
	assert.True(t, mr.Exists("test:line_recipient_U1"))

	require.NoError(t, mr.Set("other:line_recipient_U2", "true"))
	require.NoError(t, mr.Set("test:line_recipient_[x]", "true"))

	keys, err := rs.Keys(ctx, "line_recipient_")
	require.NoError(t, err)
	assert.Equal(t, []string{"line_recipient_U1", "line_recipient_[x]"}, keys)

	keys, err = rs.Keys(ctx, "line_recipient_[")
	require.NoError(t, err)
	assert.Equal(t, []string{"line_recipient_[x]"}, keys)

	require.NoError(t, rs.Ping(ctx))
}

func TestRedisStoreDefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rs := NewRedisStore(client, "")
	require.NoError(t, rs.Set(context.Background(), "k", "v"))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"k"))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
