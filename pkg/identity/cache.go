package identity

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultCacheCapacity is used when a cache is created with a non-positive
// capacity.
const DefaultCacheCapacity = 1000

// Lookup resolves an in-game identifier to a web application user id. ""
// means there is no link.
type Lookup interface {
	ResolveUserID(ctx context.Context, identifier string) string
}

// Invalidator is implemented by lookups that keep their own copies of
// resolved ids, such as RedisLookup.
type Invalidator interface {
	Invalidate(ctx context.Context, identifiers ...string)
}

// CacheObserver receives cache events. *observability.Metrics implements it.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
	CacheFlushed()
	CacheInvalidated()
	CacheSize(entries int)
}

// CacheStats is a point-in-time view of the cache counters
type CacheStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Flushes  int64 `json:"flushes"`
	Entries  int   `json:"entries"`
	Capacity int   `json:"capacity"`
}

// Cache maps in-game identifiers to user ids in front of a Lookup.
//
// Negative results ("") are cached like any other value. When an insert of a
// new key finds the cache at capacity, every entry is dropped first; there is
// no per-entry eviction. Concurrent misses for one key may each reach the
// lookup.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]string
	capacity int
	lookup   Lookup
	observer CacheObserver
	log      *logrus.Logger

	hits    atomic.Int64
	misses  atomic.Int64
	flushes atomic.Int64
}

// NewCache creates an empty cache. observer may be nil.
func NewCache(capacity int, lookup Lookup, observer CacheObserver, log *logrus.Logger) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if log == nil {
		log = logrus.New()
	}
	return &Cache{
		entries:  make(map[string]string, capacity),
		capacity: capacity,
		lookup:   lookup,
		observer: observer,
		log:      log,
	}
}

// Get returns the cached user id for identifier, resolving and caching it on
// a miss. A blank identifier resolves to "" without touching the cache.
func (c *Cache) Get(ctx context.Context, identifier string) string {
	if identifier == "" {
		return ""
	}

	c.mu.RLock()
	userID, ok := c.entries[identifier]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		if c.observer != nil {
			c.observer.CacheHit()
		}
		return userID
	}

	c.misses.Add(1)
	if c.observer != nil {
		c.observer.CacheMiss()
	}

	userID = c.lookup.ResolveUserID(ctx, identifier)
	c.store(identifier, userID)
	return userID
}

func (c *Cache) store(identifier, userID string) {
	c.mu.Lock()
	flushed := false
	if _, exists := c.entries[identifier]; !exists && len(c.entries) >= c.capacity {
		c.entries = make(map[string]string, c.capacity)
		flushed = true
	}
	c.entries[identifier] = userID
	size := len(c.entries)
	c.mu.Unlock()

	if flushed {
		c.flushes.Add(1)
		c.log.WithField("capacity", c.capacity).Debug("Identity cache reached capacity, flushed")
		if c.observer != nil {
			c.observer.CacheFlushed()
		}
	}
	if c.observer != nil {
		c.observer.CacheSize(size)
	}
}

// ReverseLookup scans the cached entries for userID and returns a matching
// identifier. When both aliases of a player are cached the UUID is returned.
// It only sees what is cached, so a miss says nothing about the database. The
// scan is O(entries).
func (c *Cache) ReverseLookup(userID string) (string, bool) {
	if userID == "" {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var match string
	found := false
	for identifier, cached := range c.entries {
		if cached != userID {
			continue
		}
		if _, err := uuid.Parse(identifier); err == nil {
			return identifier, true
		}
		if !found {
			match, found = identifier, true
		}
	}
	return match, found
}

// Invalidate removes the entries for both aliases of a player. Entries for
// other players are untouched.
func (c *Cache) Invalidate(ctx context.Context, uuid, name string) {
	c.mu.Lock()
	delete(c.entries, uuid)
	delete(c.entries, name)
	size := len(c.entries)
	c.mu.Unlock()

	if inv, ok := c.lookup.(Invalidator); ok {
		inv.Invalidate(ctx, uuid, name)
	}
	if c.observer != nil {
		c.observer.CacheInvalidated()
		c.observer.CacheSize(size)
	}
}

// Flush drops every entry. It is called when the owning service stops.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]string, c.capacity)
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.CacheSize(0)
	}
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Capacity returns the flush threshold
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns the cache counters
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Flushes:  c.flushes.Load(),
		Entries:  c.Len(),
		Capacity: c.capacity,
	}
}
