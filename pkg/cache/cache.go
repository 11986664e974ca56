// Package cache provides a generic, bounded, thread-safe key/value
// cache with batched least-recently-accessed eviction. Access order is
// tracked with a logical clock instead of wall-clock time so that
// high-frequency concurrent accesses still get a strict ordering.
package cache

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Factory produces the value for an absent key. It is invoked at most
// once per race window for a given key.
type Factory[K comparable, V any] func(key K) (V, error)

// item wraps a stored value with its last-accessed logical timestamp.
// The ready channel is closed once the factory has run, so concurrent
// readers of an entry under construction block until it is usable.
type item[V any] struct {
	ready        chan struct{}
	value        V
	err          error
	lastAccessed atomic.Int64
}

// Cache is a bounded concurrent key/value store. The size bound is
// approximate: a transient overshoot under concurrent insertion is
// accepted, not prevented.
type Cache[K comparable, V any] struct {
	entries       sync.Map // K -> *item[V]
	clock         atomic.Int64
	count         atomic.Int64
	maximumSize   int
	reductionSize int

	evictMu sync.Mutex // serializes eviction sweeps
}

// New creates a cache holding at most maximumSize entries. When full,
// an insertion first evicts the reductionSize least-recently-accessed
// entries in one batch.
func New[K comparable, V any](maximumSize, reductionSize int) (*Cache[K, V], error) {
	if maximumSize < 1 {
		return nil, fmt.Errorf("cache maximum size must be at least 1, got %d", maximumSize)
	}
	if reductionSize < 1 {
		return nil, fmt.Errorf("cache reduction size must be at least 1, got %d", reductionSize)
	}
	return &Cache[K, V]{maximumSize: maximumSize, reductionSize: reductionSize}, nil
}

// MaximumSize returns the configured capacity bound.
func (c *Cache[K, V]) MaximumSize() int { return c.maximumSize }

// ReductionSize returns the configured eviction batch size.
func (c *Cache[K, V]) ReductionSize() int { return c.reductionSize }

// Get returns the value stored under key and marks it accessed. It
// fails if the key is absent.
func (c *Cache[K, V]) Get(key K) (V, error) {
	var zero V
	it, ok := c.load(key)
	if !ok {
		return zero, fmt.Errorf("cache entry '%v' not found", key)
	}
	c.touch(it)
	return it.value, nil
}

// TryGet returns the value stored under key and true, or the zero value
// and false if the key is absent. It never fails.
func (c *Cache[K, V]) TryGet(key K) (V, bool) {
	var zero V
	it, ok := c.load(key)
	if !ok {
		return zero, false
	}
	c.touch(it)
	return it.value, true
}

// ContainsKey reports whether the key is present.
func (c *Cache[K, V]) ContainsKey(key K) bool {
	_, ok := c.load(key)
	return ok
}

// Count returns the current number of entries.
func (c *Cache[K, V]) Count() int {
	return int(c.count.Load())
}

// GetOrAdd returns the value stored under key, or inserts the value
// produced by factory if the key is absent. Concurrent callers racing
// on the same absent key invoke the factory at most once and all
// observe the same value. A factory error is returned to every caller
// in the race and nothing is stored, so a later call retries.
func (c *Cache[K, V]) GetOrAdd(key K, factory Factory[K, V]) (V, error) {
	var zero V
	if factory == nil {
		return zero, fmt.Errorf("cache factory must not be nil")
	}

	if it, ok := c.load(key); ok {
		c.touch(it)
		return it.value, nil
	}

	// Make room before inserting. The capacity check and the following
	// insert are not one atomic step; a small transient overshoot under
	// concurrent pressure is fine.
	if c.Count() >= c.maximumSize {
		c.evict()
	}

	fresh := &item[V]{ready: make(chan struct{})}
	actual, loaded := c.entries.LoadOrStore(key, fresh)
	it := actual.(*item[V])
	if loaded {
		<-it.ready
		if it.err != nil {
			return zero, it.err
		}
		c.touch(it)
		return it.value, nil
	}

	c.count.Add(1)
	it.value, it.err = factory(key)
	if it.err != nil {
		if _, deleted := c.entries.LoadAndDelete(key); deleted {
			c.count.Add(-1)
		}
		close(it.ready)
		return zero, it.err
	}
	c.touch(it)
	close(it.ready)
	return it.value, nil
}

// load returns a usable entry for key, waiting out a concurrent
// construction. Entries whose factory failed count as absent.
func (c *Cache[K, V]) load(key K) (*item[V], bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	it := v.(*item[V])
	<-it.ready
	if it.err != nil {
		return nil, false
	}
	return it, true
}

// touch stamps the entry with the next tick of the logical clock.
func (c *Cache[K, V]) touch(it *item[V]) {
	it.lastAccessed.Store(c.clock.Add(1))
}

// evict removes the reductionSize least-recently-accessed entries (or
// all remaining if fewer exist) in a single batch. The snapshot, sort,
// remove sequence amortizes the cost of restoring headroom across
// multiple future insertions.
func (c *Cache[K, V]) evict() {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	type aged struct {
		key          K
		lastAccessed int64
	}

	var snapshot []aged
	c.entries.Range(func(k, v any) bool {
		it := v.(*item[V])
		select {
		case <-it.ready:
		default:
			return true // still under construction, never evict
		}
		if it.err != nil {
			return true
		}
		snapshot = append(snapshot, aged{key: k.(K), lastAccessed: it.lastAccessed.Load()})
		return true
	})

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].lastAccessed < snapshot[j].lastAccessed
	})

	n := c.reductionSize
	if n > len(snapshot) {
		n = len(snapshot)
	}
	for _, victim := range snapshot[:n] {
		if _, deleted := c.entries.LoadAndDelete(victim.key); deleted {
			c.count.Add(-1)
		}
	}
}
