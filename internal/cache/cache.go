// Package cache provides the shared key-value cache used for read-through
// response caching and for atomic rate-limit counters.
package cache

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/metrics"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob such as "products:list:*".
	DeletePattern(ctx context.Context, pattern string) error
	// Increment adds one to key and returns the new value. The ttl is
	// applied only when the increment creates the key.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Remember returns the cached JSON value for key, or calls load and caches
// its result for ttl. Cache failures fall back to load.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if raw, ok, err := c.Get(ctx, key); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Cache read failed")
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			metrics.RecordCacheLookup(true)
			return cached, nil
		}
	}
	metrics.RecordCacheLookup(false)

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Cache encode failed")
		return value, nil
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Cache write failed")
	}

	return value, nil
}

// Forget deletes keys and patterns, logging failures. Invalidation never
// fails the mutation that triggered it.
func Forget(ctx context.Context, c Cache, keys []string, patterns ...string) {
	if len(keys) > 0 {
		if err := c.Delete(ctx, keys...); err != nil {
			logrus.WithError(err).WithField("keys", keys).Warn("Cache invalidation failed")
		}
	}
	for _, pattern := range patterns {
		if err := c.DeletePattern(ctx, pattern); err != nil {
			logrus.WithError(err).WithField("pattern", pattern).Warn("Cache invalidation failed")
		}
	}
}

func matchPattern(pattern, key string) bool {
	prefix := strings.TrimSuffix(pattern, "*")
	if prefix != pattern && !strings.ContainsAny(prefix, "*?[") {
		return strings.HasPrefix(key, prefix)
	}
	ok, err := path.Match(pattern, key)
	return err == nil && ok
}
