// Package dispatch orchestrates suggestion fetches across the registered
// providers: cache lookups, circuit-broken provider invocation, and
// multi-provider fan-out with per-provider failure isolation.
package dispatch

import (
	"container/list"
	"sync"
	"time"

	"github.com/kwlab/suggest-gateway/internal/provider"
)

type cacheEntry struct {
	key    string
	result *provider.Result
	ttl    time.Duration
	expiry time.Time
}

// Cache is a bounded in-memory TTL cache with LRU eviction. All values
// are deep-copied on both write and read: the dispatcher mutates returned
// results, and the cached originals must never be corrupted.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	lru     *list.List
}

// NewCache creates a cache bounded to maxSize entries.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &Cache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Get returns a copy of the fresh entry for key and its original TTL.
// Expired entries are evicted lazily here.
func (c *Cache) Get(key string) (*provider.Result, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, 0, false
	}

	entry := elem.Value.(*cacheEntry)
	if time.Now().After(entry.expiry) {
		c.remove(elem)
		return nil, 0, false
	}

	c.lru.MoveToFront(elem)
	return entry.result.Clone(), entry.ttl, true
}

// Set stores a copy of the result for ttl, evicting the least recently
// used entry when at capacity. A non-positive ttl is a no-op.
func (c *Cache) Set(key string, result *provider.Result, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{
		key:    key,
		result: result.Clone(),
		ttl:    ttl,
		expiry: time.Now().Add(ttl),
	}

	if elem, ok := c.entries[key]; ok {
		elem.Value = entry
		c.lru.MoveToFront(elem)
		return
	}

	if c.lru.Len() >= c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
	c.entries[key] = c.lru.PushFront(entry)
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

// Len reports the current entry count, expired entries included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) remove(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	delete(c.entries, entry.key)
}
