package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redisv9.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redisv9.NewClient(&redisv9.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestIngestLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	lock := NewIngestLock(newTestRedis(t), time.Minute)
	key := "test:" + uuid.NewString()

	token, ok, err := lock.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = lock.Acquire(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	// A stale token must not free someone else's lock.
	require.NoError(t, lock.Release(ctx, key, "not-the-holder"))
	_, ok, err = lock.Acquire(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx, key, token))
	token, ok, err = lock.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lock.Release(ctx, key, token))
}
