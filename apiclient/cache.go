package apiclient

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one cached response payload together with the time it was stored.
type Entry struct {
	Value    any
	StoredAt time.Time
}

// Cache is an in-memory response cache keyed by request shape. Only GET
// responses are ever stored. Entries expire lazily against a per-request TTL
// and can be served past expiry as a last resort when every retry of a repeat
// request has failed.
//
// Known limitation: there is no targeted invalidation. A POST/PUT/DELETE to a
// resource does not evict a previously cached GET for the same resource; the
// only way to invalidate is Clear, which drops everything. Callers that need
// fresher data after a write must call Clear themselves.
//
// The cache is process-scoped and shared by every call made through a Client,
// so access is guarded by a mutex.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// NewCache creates an empty response cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// CacheKey derives the cache key for a request. Identical logical requests
// must collide and differing ones must not, so the key is a pure function of
// method, full URL and serialized body (empty string when there is none).
func CacheKey(method, url, body string) string {
	return fmt.Sprintf("%s %s %s", method, url, body)
}

// Get returns the entry stored under key, fresh or not.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Set stores value under key with the current timestamp, overwriting any
// prior entry.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Value: value, StoredAt: c.now()}
}

// IsFresh reports whether the entry is younger than ttl.
func (c *Cache) IsFresh(e Entry, ttl time.Duration) bool {
	return c.now().Sub(e.StoredAt) < ttl
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// evict removes a single expired entry on the cache-miss path.
func (c *Cache) evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
