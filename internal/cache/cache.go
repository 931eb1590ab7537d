// Package cache provides an in-memory TTL cache for backend API responses.
// Entries expire lazily on read; a scheduled sweep (see SweepJob) and an
// optional LRU bound keep a long-running process from growing without limit.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// Default TTLs for the cache instances the application creates.
// Quotes tolerate up to 5 minutes of staleness by design: the upstream is
// rate-limited, and repeated lookups for the same symbol within that window
// must not cost a network round-trip.
const (
	TTLQuote          = 5 * time.Minute
	TTLMarketOverview = 10 * time.Minute
)

// entry holds a cached value and its insertion time.
type entry struct {
	value    interface{}
	storedAt time.Time
	elem     *list.Element // position in the recency list, nil when unbounded
}

// Stats describes cache contents for diagnostics endpoints.
type Stats struct {
	Count int      `json:"count"`
	Keys  []string `json:"keys"`
}

// Cache is a keyed TTL cache with case-insensitive keys.
// An expired entry is treated as absent on read; it is not removed until
// Sweep runs or the LRU bound pushes it out.
type Cache struct {
	ttl     time.Duration
	maxSize int // 0 = unbounded
	mu      sync.RWMutex
	entries map[string]*entry
	recency *list.List // front = most recently used, only when maxSize > 0
	clock   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxSize bounds the cache to n entries, evicting the least recently
// used entry when full. n <= 0 leaves the cache unbounded.
func WithMaxSize(n int) Option {
	return func(c *Cache) {
		c.maxSize = n
	}
}

// WithClock overrides the time source. Used by tests to cross TTL boundaries
// without sleeping.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// New creates a cache whose entries are readable for ttl after insertion.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ttl:     ttl,
		entries: make(map[string]*entry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxSize > 0 {
		c.recency = list.New()
	}
	return c
}

// normalizeKey makes lookups case-insensitive ("aapl" and "AAPL" are the
// same symbol).
func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Get returns the value stored under key and true if the entry is still
// within its TTL. Absence is not an error.
func (c *Cache) Get(key string) (interface{}, bool) {
	k := normalizeKey(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if c.clock().Sub(e.storedAt) >= c.ttl {
		// Expired entries behave as absent. Removal is left to Sweep or
		// LRU eviction.
		return nil, false
	}
	if c.recency != nil {
		c.recency.MoveToFront(e.elem)
	}
	return e.value, true
}

// Put stores value under key, unconditionally replacing any prior entry and
// resetting its insertion time.
func (c *Cache) Put(key string, value interface{}) {
	k := normalizeKey(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[k]; ok {
		e.value = value
		e.storedAt = c.clock()
		if c.recency != nil {
			c.recency.MoveToFront(e.elem)
		}
		return
	}

	e := &entry{value: value, storedAt: c.clock()}
	if c.recency != nil {
		if c.maxSize > 0 && len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
		e.elem = c.recency.PushFront(k)
	}
	c.entries[k] = e
}

// evictOldest removes the least recently used entry. Caller holds the lock.
func (c *Cache) evictOldest() {
	back := c.recency.Back()
	if back == nil {
		return
	}
	k := back.Value.(string)
	c.recency.Remove(back)
	delete(c.entries, k)
}

// Clear empties the cache. Used for explicit user-triggered invalidation.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	if c.recency != nil {
		c.recency.Init()
	}
}

// Sweep removes entries past their TTL and returns the number removed.
// Readers already treat expired entries as absent; sweeping only reclaims
// memory.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			if e.elem != nil {
				c.recency.Remove(e.elem)
			}
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of cache contents for diagnostics. Expired
// entries that have not been swept yet are included in the count.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return Stats{Count: len(c.entries), Keys: keys}
}

// TTL returns the configured time-to-live for this cache instance.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
