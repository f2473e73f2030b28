package usgs

import (
	"context"
	"fmt"
	"sync"

	"github.com/ianastafeva/quake-parametric-risk/internal/domain"
	"github.com/ianastafeva/quake-parametric-risk/internal/observability"
)

// CachedFetcher wraps a CatalogueFetcher with an in-memory LRU cache.
// Requests for nearby assets repeat the same queries, and a 200-year
// catalogue does not change between batches.
type CachedFetcher struct {
	inner   domain.CatalogueFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a catalogue fetcher.
func NewCachedFetcher(inner domain.CatalogueFetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchCatalogue(ctx context.Context, q domain.CatalogueQuery) ([]domain.CatalogueEvent, error) {
	// A zero EndDate resolves to "now" inside the client; keying it as-is
	// would pin a stale window forever, so resolve before hashing.
	if q.EndDate.IsZero() {
		q.EndDate = clock.Now().UTC()
	}
	key := cacheKey(q)

	if events, ok := c.cache.get(key); ok {
		c.metrics.CatalogueCache.WithLabelValues("hit").Inc()
		return events, nil
	}
	c.metrics.CatalogueCache.WithLabelValues("miss").Inc()

	events, err := c.inner.FetchCatalogue(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, events)
	return events, nil
}

func cacheKey(q domain.CatalogueQuery) string {
	return fmt.Sprintf("%.4f,%.4f|%g|%g|%s",
		q.Center.Lat, q.Center.Lon, q.RadiusKm, q.MinMagnitude,
		q.EndDate.Format("2006-01-02"),
	)
}

// lruCache is a simple thread-safe LRU cache for catalogues.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.CatalogueEvent
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.CatalogueEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.CatalogueEvent) {
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
