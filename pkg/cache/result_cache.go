package cache

import (
	"container/list"
	"fmt"
	"sync"

	"banyu/routegraph/pkg/engine/routingalgorithm"

	"golang.org/x/sync/singleflight"
)

const DefaultCapacity = 128

// ComputeFunc produces a full single-source distance table on a cache miss.
type ComputeFunc func() (*routingalgorithm.DistanceTable, error)

type cacheKey struct {
	token  uint64
	source int64
}

type cacheEntry struct {
	key   cacheKey
	table *routingalgorithm.DistanceTable
}

// RouteCache memoizes single-source dijkstra tables keyed by
// (graph identity token, source node id) with bounded LRU eviction.
// Concurrent misses for the same key are deduplicated through singleflight so
// at most one computation runs per key; different keys compute independently.
//
// Tokens of temporary overlays are unique per request, so their lookups always
// miss. The service layer never stores overlay tables here, which preserves
// the conservative policy of recomputing any query that carries temporary
// graph data.
type RouteCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheKey]*list.Element
	lru      *list.List
	flight   singleflight.Group

	hits      uint64
	misses    uint64
	evictions uint64
}

func NewRouteCache(capacity int) *RouteCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RouteCache{
		capacity: capacity,
		entries:  make(map[cacheKey]*list.Element),
		lru:      list.New(),
	}
}

// GetOrCompute returns the cached table for (token, sourceID) or runs compute
// exactly once per key and stores the result. Eviction only affects latency,
// never correctness.
func (c *RouteCache) GetOrCompute(token uint64, sourceID int64, compute ComputeFunc) (*routingalgorithm.DistanceTable, error) {
	key := cacheKey{token: token, source: sourceID}

	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		c.hits++
		table := elem.Value.(*cacheEntry).table
		c.mu.Unlock()
		return table, nil
	}
	c.misses++
	c.mu.Unlock()

	flightKey := fmt.Sprintf("%d:%d", token, sourceID)
	v, err, _ := c.flight.Do(flightKey, func() (interface{}, error) {
		// a concurrent caller may have stored the entry while this one was
		// waiting on the flight group
		c.mu.Lock()
		if elem, ok := c.entries[key]; ok {
			c.lru.MoveToFront(elem)
			table := elem.Value.(*cacheEntry).table
			c.mu.Unlock()
			return table, nil
		}
		c.mu.Unlock()

		table, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(key, table)
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*routingalgorithm.DistanceTable), nil
}

func (c *RouteCache) store(key cacheKey, table *routingalgorithm.DistanceTable) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).table = table
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, table: table})
	c.entries[key] = elem

	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
		c.evictions++
	}
}

// Invalidate drops every entry of one graph identity, used when the base
// graph is reloaded.
func (c *RouteCache) Invalidate(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		entry := elem.Value.(*cacheEntry)
		if entry.key.token == token {
			c.lru.Remove(elem)
			delete(c.entries, entry.key)
		}
		elem = next
	}
}

func (c *RouteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns hit/miss/eviction counters for the metrics endpoint.
func (c *RouteCache) Stats() (hits, misses, evictions uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions
}
