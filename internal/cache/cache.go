package cache

import (
	"sync"
	"time"
)

// Cache is a small in-process TTL cache for hot public listings
// (categories, compilations). Writes from admin handlers clear it.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]item
}

type item struct {
	val       any
	expiresAt time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl:     ttl,
		entries: make(map[string]item),
	}
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(it.expiresAt) {
		c.mu.Lock()
		// recheck under the write lock, a Set may have raced the expiry
		if cur, still := c.entries[key]; still && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return it.val, true
}

func (c *Cache) Set(key string, val any) {
	c.mu.Lock()
	c.entries[key] = item{val: val, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]item)
	c.mu.Unlock()
}
