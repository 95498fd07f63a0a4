package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/bulkwear-backend/internal/cache"
)

func TestWindowHitRejectsAfterLimit(t *testing.T) {
	ctx := context.Background()
	w := NewWindow(cache.NewMemoryCache(100), "forgot_password:", 30, 15*time.Minute)

	for i := 0; i < 30; i++ {
		ok, err := w.Hit(ctx, "buyer@example.com")
		require.NoError(t, err)
		require.True(t, ok, "request %d", i+1)
	}

	ok, err := w.Hit(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = w.Hit(ctx, "other@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWindowSubjectIsNormalised(t *testing.T) {
	ctx := context.Background()
	w := NewWindow(cache.NewMemoryCache(100), "verify_attempts:", 1, time.Minute)

	ok, err := w.Hit(ctx, "Buyer@Example.com ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.Hit(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWindowExceededAndReset(t *testing.T) {
	ctx := context.Background()
	w := NewWindow(cache.NewMemoryCache(100), "verify_attempts:", 2, time.Minute)

	exceeded, err := w.Exceeded(ctx, "a@b.c")
	require.NoError(t, err)
	assert.False(t, exceeded)

	require.NoError(t, w.Record(ctx, "a@b.c"))
	require.NoError(t, w.Record(ctx, "a@b.c"))

	exceeded, err = w.Exceeded(ctx, "a@b.c")
	require.NoError(t, err)
	assert.True(t, exceeded)

	require.NoError(t, w.Reset(ctx, "a@b.c"))
	exceeded, err = w.Exceeded(ctx, "a@b.c")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestWindowExpiresWithRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	w := NewWindow(cache.NewRedisCache(client, ""), "forgot_password_ip:", 1, time.Hour)

	ok, err := w.Hit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.Hit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Hour)

	ok, err = w.Hit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}
