package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set SCREENFLOW_TEST_REDIS=localhost:6379 to run against a live server.
func newTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("SCREENFLOW_TEST_REDIS")
	if addr == "" {
		t.Skip("SCREENFLOW_TEST_REDIS not set")
	}
	c, err := NewRedisCache(context.Background(), RedisOptions{
		Addr:   addr,
		Prefix: "screenflow-test:" + uuid.NewString() + ":",
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisCache(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	data, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("v"), data)

	require.NoError(t, c.Delete(ctx, "k"))
	_, hit, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheExpiry(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("x"), 50*time.Millisecond))
	time.Sleep(120 * time.Millisecond)
	_, hit, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, hit)
}
