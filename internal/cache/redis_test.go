package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisCache(client, "bw:")
}

func TestRedisCacheGetSet(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestRedis(t)

	_, ok, err := c.Get(ctx, "user:profile:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "user:profile:1", []byte("data"), time.Minute))
	assert.True(t, mr.Exists("bw:user:profile:1"))

	value, ok, err := c.Get(ctx, "user:profile:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "data", string(value))

	mr.FastForward(time.Minute)
	_, ok, err = c.Get(ctx, "user:profile:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheDeletePattern(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestRedis(t)

	require.NoError(t, c.Set(ctx, "products:list:1", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "products:list:2", []byte("b"), 0))
	require.NoError(t, c.Set(ctx, "product:9", []byte("c"), 0))

	require.NoError(t, c.DeletePattern(ctx, "products:list:*"))

	assert.False(t, mr.Exists("bw:products:list:1"))
	assert.False(t, mr.Exists("bw:products:list:2"))
	assert.True(t, mr.Exists("bw:product:9"))
}

func TestRedisCacheIncrement(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestRedis(t)

	for i := 1; i <= 3; i++ {
		n, err := c.Increment(ctx, "verify_attempts:a@b.c", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}

	ttl := mr.TTL("bw:verify_attempts:a@b.c")
	assert.True(t, ttl > 0 && ttl <= 15*time.Minute)

	mr.FastForward(15 * time.Minute)
	n, err := c.Increment(ctx, "verify_attempts:a@b.c", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
