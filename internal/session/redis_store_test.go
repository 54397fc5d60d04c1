package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisStore connects to REDIS_ADDR or skips the test.
func setupRedisStore(t *testing.T, ttl time.Duration) *RedisStore {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis session store tests")
	}

	client, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)

	store := NewRedisStore(client, "phiguard:test:session:", ttl)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestRedisStore_CRUD(t *testing.T) {
	store := setupRedisStore(t, time.Minute)
	ctx := context.Background()
	sessionID := uuid.NewString()
	defer func() {
		_ = store.Destroy(ctx, sessionID)
	}()

	_, ok, err := store.Get(ctx, sessionID, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, sessionID, "b", []byte("2")))
	require.NoError(t, store.Set(ctx, sessionID, "a", []byte("1")))

	value, ok, err := store.Get(ctx, sessionID, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), value)

	keys, err := store.Keys(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, store.Delete(ctx, sessionID, "a"))
	_, ok, err = store.Get(ctx, sessionID, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Destroy(ctx, sessionID))
	keys, err = store.Keys(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisStore_TTL(t *testing.T) {
	store := setupRedisStore(t, 200*time.Millisecond)
	ctx := context.Background()
	sessionID := uuid.NewString()

	require.NoError(t, store.Set(ctx, sessionID, "k", []byte("v")))

	assert.Eventually(t, func() bool {
		_, ok, err := store.Get(ctx, sessionID, "k")
		return err == nil && !ok
	}, 2*time.Second, 50*time.Millisecond)
}

func TestRedisStore_ReadsRefreshTTL(t *testing.T) {
	store := setupRedisStore(t, 600*time.Millisecond)
	ctx := context.Background()
	sessionID := uuid.NewString()
	defer func() {
		_ = store.Destroy(ctx, sessionID)
	}()

	require.NoError(t, store.Set(ctx, sessionID, "k", []byte("v")))

	// Read-only access for longer than the TTL keeps the session alive.
	for i := 0; i < 6; i++ {
		time.Sleep(200 * time.Millisecond)
		_, ok, err := store.Get(ctx, sessionID, "k")
		require.NoError(t, err)
		require.True(t, ok, "read %d", i)
	}

	ttl, err := store.client.PTTL(ctx, store.key(sessionID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 300*time.Millisecond)
}

func TestRedisStore_Exists(t *testing.T) {
	store := setupRedisStore(t, time.Minute)
	ctx := context.Background()
	sessionID := uuid.NewString()
	defer func() {
		_ = store.Destroy(ctx, sessionID)
	}()

	exists, err := store.Exists(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Set(ctx, sessionID, "k", []byte("v")))
	exists, err = store.Exists(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Destroy(ctx, sessionID))
	exists, err = store.Exists(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, exists)
}
