package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache connects to REDIS_ADDR and skips when no server is reachable.
func newTestCache(t *testing.T) *Cache {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := New(ctx, WithAddress(addr), WithDB(15))
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_GetSetDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := "catsurvey:test:" + t.Name()

	type payload struct {
		Name  string
		Count int
	}

	require.NoError(t, c.Set(ctx, key, payload{Name: "Network", Count: 3}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, key, &got))
	assert.Equal(t, payload{Name: "Network", Count: 3}, got)

	require.NoError(t, c.Delete(ctx, key))
	err := c.Get(ctx, key, &got)
	assert.True(t, errors.Is(err, redis.Nil))
}

func TestCache_TryLock(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := "catsurvey:test:lock:" + t.Name()
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })

	lock, err := c.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = c.TryLock(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Release(ctx))

	again, err := c.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)

	// a stale holder must not free someone else's lock
	require.NoError(t, lock.Release(ctx))
	_, err = c.TryLock(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, again.Release(ctx))
}

func TestLock_Extend(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := "catsurvey:test:lock:" + t.Name()
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })

	lock, err := c.TryLock(ctx, key, time.Second)
	require.NoError(t, err)

	require.NoError(t, lock.Extend(ctx, time.Minute))
	ttl, err := c.client.PTTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)

	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Extend(ctx, time.Minute), ErrLockLost)
}
