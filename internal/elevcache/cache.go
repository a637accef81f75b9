// Package elevcache wraps the on-disk DEM store with a byte-budgeted
// in-memory cache of decompressed arrays, so a tile that needs the same
// source square as its neighbor doesn't re-read and re-decompress it.
// Concurrent requests for the same square are coalesced with
// singleflight instead of duplicating the decompression work.
package elevcache

import (
	"container/list"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cipher985/floodmap-tiles/internal/demstore"
)

// entry is one cached DEM array plus its position in the LRU list.
type entry struct {
	tileID string
	array  *demstore.ElevationArray
}

// Cache holds decompressed DEM arrays up to a total byte budget, evicting
// least-recently-used entries once the budget is exceeded. It never caches
// a "miss" — a load failure is never memoized, since the underlying file
// may appear later or a transient I/O error may clear up.
type Cache struct {
	store *demstore.Store

	mu        sync.Mutex
	budget    int64
	used      int64
	ll        *list.List
	items     map[string]*list.Element
	group     singleflight.Group
	hits      int64
	misses    int64
	evictions int64
}

// New creates a cache backed by store with the given byte budget. A zero
// or negative budget disables eviction (unlimited, used by tests).
func New(store *demstore.Store, byteBudget int64) *Cache {
	return &Cache{
		store:  store,
		budget: byteBudget,
		ll:     list.New(),
		items:  make(map[string]*list.Element),
	}
}

// Exists reports whether tileID has a source DEM on disk at all, without
// loading or caching it. The mosaic engine uses this to tell "this square
// genuinely has no data" (not a failure, skip quietly) apart from "this
// square exists but failed to load" (a real failure worth logging).
func (c *Cache) Exists(tileID string) bool {
	return c.store.Exists(tileID)
}

// Get returns the decompressed array for tileID, loading and caching it on
// a miss. Concurrent callers requesting the same tileID share one load via
// singleflight, but every one of them still counts toward hits+misses:
// the caller whose goroutine actually runs the load counts a miss; callers
// that instead piggyback on that in-flight load count a hit, since they
// never triggered a decompression of their own (spec: hits + misses ==
// total Get calls made, for any schedule).
func (c *Cache) Get(tileID string) (*demstore.ElevationArray, error) {
	c.mu.Lock()
	if el, ok := c.items[tileID]; ok {
		c.ll.MoveToFront(el)
		c.hits++
		arr := el.Value.(*entry).array
		c.mu.Unlock()
		return arr, nil
	}
	c.mu.Unlock()

	var loaded bool
	v, err, _ := c.group.Do(tileID, func() (interface{}, error) {
		loaded = true
		arr, err := c.store.Load(tileID)
		if err != nil {
			return nil, fmt.Errorf("elevcache: load %s: %w", tileID, err)
		}
		c.insert(tileID, arr)
		return arr, nil
	})

	c.mu.Lock()
	if loaded {
		c.misses++
	} else {
		c.hits++
	}
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return v.(*demstore.ElevationArray), nil
}

// insert adds a freshly loaded array to the cache. The caller (Get) has
// already accounted for the miss that triggered this load.
func (c *Cache) insert(tileID string, arr *demstore.ElevationArray) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[tileID]; ok {
		c.ll.MoveToFront(el)
		return
	}

	size := arr.EstimatedBytes()
	el := c.ll.PushFront(&entry{tileID: tileID, array: arr})
	c.items[tileID] = el
	c.used += size

	if c.budget <= 0 {
		return
	}
	for c.used > c.budget {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.evict(back)
	}
}

func (c *Cache) evict(el *list.Element) {
	e := el.Value.(*entry)
	c.ll.Remove(el)
	delete(c.items, e.tileID)
	c.used -= e.array.EstimatedBytes()
	c.evictions++
}

// Stats is a point-in-time snapshot of cache effectiveness, used for
// periodic diagnostics and tests.
type Stats struct {
	Entries   int
	UsedBytes int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// Stats reports the cache's current occupancy and lifetime counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.items),
		UsedBytes: c.used,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Clear drops every cached entry. Lifetime hit/miss/eviction counters are
// kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.used = 0
}
