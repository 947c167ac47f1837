package ingest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/observability"
)

// CachedLoader wraps a Loader with an in-memory LRU of loaded fields. Entries
// are keyed by file identity (path, size, modification time) plus the flags
// that change the loaded values, so a rewritten file is read again.
type CachedLoader struct {
	inner   Loader
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedLoader creates a cache decorator around a loader. metrics may be nil.
func NewCachedLoader(inner Loader, maxEntries int, metrics *observability.Metrics) *CachedLoader {
	return &CachedLoader{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedLoader) Load(ctx context.Context, req Request) (*domain.Field, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", req.Path, err)
	}
	key := fmt.Sprintf("%s|%d|%d|strict=%t|elev=%t", req.Path, info.Size(), info.ModTime().UnixNano(), req.Strict, req.Elevation)

	if f, ok := c.cache.get(key); ok {
		c.observe("hit")
		return f, nil
	}
	c.observe("miss")

	f, err := c.inner.Load(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, f)
	return f, nil
}

func (c *CachedLoader) observe(result string) {
	if c.metrics != nil {
		c.metrics.FieldCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a simple thread-safe LRU cache for loaded fields.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *domain.Field
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: max(1, maxEntries),
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*domain.Field, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *domain.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
