package expand

import (
	"sync"
	"time"
)

// rewriteCache stores successful expansions keyed by normalized query. It is
// the only mutable structure shared between in-flight queries; entries are
// evicted lazily on read once their TTL passes. Size is bounded: when full,
// an insert evicts the stalest entry.
type rewriteCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

type cacheEntry struct {
	variations []string
	storedAt   time.Time
}

func newRewriteCache(ttl time.Duration, maxSize int) *rewriteCache {
	return &rewriteCache{
		entries: make(map[string]cacheEntry, maxSize),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// get returns a live entry's variations, evicting the entry when expired.
func (c *rewriteCache) get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.variations, true
}

// put stores variations under key, evicting the stalest entry when the cache
// is at capacity.
func (c *rewriteCache) put(key string, variations []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		if _, exists := c.entries[key]; !exists {
			c.evictStalest()
		}
	}
	c.entries[key] = cacheEntry{variations: variations, storedAt: c.now()}
}

// evictStalest removes the oldest entry. Called with the lock held.
func (c *rewriteCache) evictStalest() {
	var stalest string
	var oldest time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.storedAt.Before(oldest) {
			stalest = key
			oldest = entry.storedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, stalest)
	}
}

// size returns the live entry count, for observability.
func (c *rewriteCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
