package cache

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/assetpipe/pressure"
)

// DefaultCapacity is the weight budget used when NewLRU gets a non-positive
// capacity.
const DefaultCapacity = 1 << 20

// Weigher returns the weight an entry counts against the cache capacity.
// Weights should be positive and must not change while the entry is cached.
type Weigher[K comparable, V any] func(key K, value V) int64

// StringWeigher weighs a string entry by its byte length.
func StringWeigher(key, value string) int64 {
	return int64(len(key) + len(value))
}

// LRU is a thread-safe least-recently-used cache bounded by total weight.
//
// LRU implements pressure.Trimmable:
//   - Background, Complete, CriticalLow: evict everything
//   - Moderate: trim to 75% of capacity
//   - RunningLow: trim to 50% of capacity
//   - RunningModerate, UIHidden: no action
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*lruEntry[K, V]
	order    recencyList[K]
	weigh    Weigher[K, V]
	capacity int64
	size     int64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type lruEntry[K comparable, V any] struct {
	value  V
	weight int64
	node   *listNode[K]
}

// NewLRU creates a cache holding at most capacity total weight.
// If capacity <= 0, DefaultCapacity is used. A nil weigher counts every
// entry as 1, turning capacity into an entry count.
func NewLRU[K comparable, V any](capacity int64, weigh Weigher[K, V]) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if weigh == nil {
		weigh = func(K, V) int64 { return 1 }
	}
	return &LRU[K, V]{
		entries:  make(map[K]*lruEntry[K, V]),
		weigh:    weigh,
		capacity: capacity,
	}
}

// Get retrieves a value and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(entry.node)
	c.hits.Add(1)
	return entry.value, true
}

// Peek returns the value for key without touching recency or hit/miss
// counts.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Put stores a value, replacing any previous one, and evicts the oldest
// entries while the total weight exceeds capacity. An entry heavier than
// the whole capacity is evicted immediately.
func (c *LRU[K, V]) Put(key K, value V) {
	weight := c.weigh(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.size += weight - existing.weight
		existing.value = value
		existing.weight = weight
		c.order.MoveToFront(existing.node)
	} else {
		c.entries[key] = &lruEntry[K, V]{
			value:  value,
			weight: weight,
			node:   c.order.PushFront(key),
		}
		c.size += weight
	}

	c.trimLocked(c.capacity)
}

// Remove deletes an entry. Returns true if it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	c.order.Remove(entry.node)
	delete(c.entries, key)
	c.size -= entry.weight
	return true
}

// TrimToSize evicts least recently used entries until the total weight is
// at most maxSize.
func (c *LRU[K, V]) TrimToSize(maxSize int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trimLocked(maxSize)
}

// EvictAll removes every entry.
func (c *LRU[K, V]) EvictAll() {
	c.TrimToSize(-1)
}

// OnTrim implements pressure.Trimmable.
func (c *LRU[K, V]) OnTrim(level pressure.Level) {
	fraction := level.RetainFraction()
	switch {
	case fraction >= 1:
		return
	case fraction <= 0:
		c.EvictAll()
	default:
		c.TrimToSize(int64(float64(c.capacity) * fraction))
	}
}

// OnLowMemory implements pressure.Trimmable.
func (c *LRU[K, V]) OnLowMemory() {
	c.EvictAll()
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Size returns the total weight of all entries.
func (c *LRU[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity returns the weight budget.
func (c *LRU[K, V]) Capacity() int64 {
	return c.capacity
}

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	n, size := len(c.entries), c.size
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Len:       n,
		Size:      size,
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		Evictions: c.evictions.Load(),
	}
}

// trimLocked evicts from the tail until size <= maxSize.
// Caller must hold c.mu.
func (c *LRU[K, V]) trimLocked(maxSize int64) {
	for c.size > maxSize {
		key, ok := c.order.Oldest()
		if !ok {
			break
		}
		entry := c.entries[key]
		c.order.Remove(entry.node)
		delete(c.entries, key)
		c.size -= entry.weight
		c.evictions.Add(1)
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Size is the total weight of all entries (LRU only).
	Size int64
	// Capacity is the weight budget (LRU only).
	Capacity int64
	// Hits is the number of successful lookups.
	Hits uint64
	// Misses is the number of failed lookups.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of entries removed by capacity or trim pressure.
	Evictions uint64
}
