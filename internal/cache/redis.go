package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementScript creates the counter with its expiry in one step so a
// crash between INCR and PEXPIRE cannot leave a counter without a ttl.
var incrementScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

type redisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache namespaces every key with prefix.
func NewRedisCache(client redis.UniversalClient, prefix string) Cache {
	return &redisCache{client: client, prefix: prefix}
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.prefix + key
	}
	return r.client.Del(ctx, prefixed...).Err()
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (r *redisCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return incrementScript.Run(ctx, r.client, []string{r.prefix + key}, ttl.Milliseconds()).Int64()
}
