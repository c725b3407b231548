package snapshot

import (
	"sync"
	"time"

	"github.com/TylorMayfield/manifold-rollback/pkg/record"
)

// cacheEntry holds a decoded record set with its expiration time and
// insertion order.
type cacheEntry struct {
	records    []record.Record
	expiresAt  time.Time
	insertedAt time.Time
}

// recordCache is a thread-safe in-memory cache for decoded snapshot
// payloads. Diffing the same version pair repeatedly from the UI is the
// common access pattern, so recently read record sets are kept around.
// When the cache reaches maxSize, the oldest entry (by insertion time) is
// evicted. Expired entries are lazily evicted on Get.
type recordCache struct {
	mu      sync.Mutex
	items   map[string]*cacheEntry
	maxSize int
	ttl     time.Duration
}

// newRecordCache creates a cache with the given maximum size and TTL.
func newRecordCache(maxSize int, ttl time.Duration) *recordCache {
	if maxSize < 1 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &recordCache{
		items:   make(map[string]*cacheEntry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// get retrieves a cached record set by ref. Returns (nil, false) if the
// ref is missing or expired.
func (c *recordCache) get(ref string) ([]record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[ref]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.items, ref)
		return nil, false
	}
	return e.records, true
}

// put stores a record set, evicting the oldest entry if the cache is full.
func (c *recordCache) put(ref string, records []record.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if _, exists := c.items[ref]; !exists && len(c.items) >= c.maxSize {
		var oldestKey string
		var oldestTime time.Time
		for k, e := range c.items {
			if oldestKey == "" || e.insertedAt.Before(oldestTime) {
				oldestKey = k
				oldestTime = e.insertedAt
			}
		}
		delete(c.items, oldestKey)
	}

	c.items[ref] = &cacheEntry{
		records:    records,
		expiresAt:  now.Add(c.ttl),
		insertedAt: now,
	}
}

// drop removes a ref from the cache. Used when a payload is garbage
// collected.
func (c *recordCache) drop(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, ref)
}
