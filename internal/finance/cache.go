package finance

import (
	"sync"
	"time"
)

// DefaultCacheTTL matches the dashboard refresh period.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry[V any] struct {
	createdAt time.Time
	value     V
}

// Cache is a small TTL map safe for concurrent use. Values are returned as
// stored, so callers must treat them as read-only.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry[V]
	now     func() time.Time
}

func NewCache[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{ttl: ttl, entries: map[string]cacheEntry[V]{}, now: time.Now}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		if c.now().Before(e.createdAt.Add(c.ttl)) {
			return e.value, true
		}
		delete(c.entries, key)
	}
	var zero V
	return zero, false
}

func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{createdAt: c.now(), value: v}
	c.mu.Unlock()
}

// chartCache holds rendered PNGs keyed by chart kind and inputs.
var chartCache = NewCache[[]byte](60 * time.Second)

func chartGet(key string) ([]byte, bool) {
	img, ok := chartCache.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(img))
	copy(out, img)
	return out, true
}

func chartSet(key string, img []byte) {
	chartCache.Set(key, img)
}
