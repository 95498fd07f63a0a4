package cache

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/javajoker/bulkwear-backend/internal/metrics"
)

// memoryCache is a bounded LRU with per-entry expiry. It is only shared
// within one process.
type memoryCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	queue    *list.List
	now      func() time.Time
}

type cacheItem struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func NewMemoryCache(capacity int) Cache {
	return newMemoryCache(capacity, time.Now)
}

func newMemoryCache(capacity int, now func() time.Time) *memoryCache {
	return &memoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		queue:    list.New(),
		now:      now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.lookup(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	c.put(key, stored, c.expiry(ttl))
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		c.remove(key)
	}
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if matchPattern(pattern, key) {
			c.remove(key)
		}
	}
	return nil
}

func (c *memoryCache) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.lookup(key)
	if !ok {
		c.put(key, []byte("1"), c.expiry(ttl))
		return 1, nil
	}

	n, err := strconv.ParseInt(string(item.value), 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	item.value = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (c *memoryCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

// lookup returns a live item and marks it recently used. Caller holds mu.
func (c *memoryCache) lookup(key string) (*cacheItem, bool) {
	element, exists := c.items[key]
	if !exists {
		return nil, false
	}
	item := element.Value.(*cacheItem)
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		c.queue.Remove(element)
		delete(c.items, key)
		return nil, false
	}
	c.queue.MoveToFront(element)
	return item, true
}

func (c *memoryCache) put(key string, value []byte, expiresAt time.Time) {
	if element, exists := c.items[key]; exists {
		c.queue.MoveToFront(element)
		item := element.Value.(*cacheItem)
		item.value = value
		item.expiresAt = expiresAt
		return
	}

	if c.capacity > 0 && c.queue.Len() >= c.capacity {
		c.removeOldest()
	}

	element := c.queue.PushFront(&cacheItem{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = element
}

func (c *memoryCache) remove(key string) {
	if element, exists := c.items[key]; exists {
		c.queue.Remove(element)
		delete(c.items, key)
	}
}

func (c *memoryCache) removeOldest() {
	element := c.queue.Back()
	if element != nil {
		item := c.queue.Remove(element).(*cacheItem)
		delete(c.items, item.key)
		metrics.CacheEvictions.Inc()
	}
}
