package cache

import (
	"hash/fnv"
	"sync"
)

const (
	// DefaultShardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	DefaultShardCount = 16

	// shardMask is used for fast shard selection (DefaultShardCount - 1).
	shardMask = DefaultShardCount - 1
)

// Hasher computes a hash for a key. Used for shard selection only.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// ShardedSet is a grow-only concurrent set.
//
// Members are never removed: the set records facts that stay true for the
// lifetime of the process, such as "this resource was already delivered".
// It deliberately does not implement pressure.Trimmable.
type ShardedSet[K comparable] struct {
	shards [DefaultShardCount]*setShard[K]
	hasher Hasher[K]
}

type setShard[K comparable] struct {
	mu      sync.RWMutex
	members map[K]struct{}
}

// NewShardedSet creates an empty set using hasher for shard selection.
func NewShardedSet[K comparable](hasher Hasher[K]) *ShardedSet[K] {
	s := &ShardedSet[K]{hasher: hasher}
	for i := range s.shards {
		s.shards[i] = &setShard[K]{members: make(map[K]struct{})}
	}
	return s
}

func (s *ShardedSet[K]) shard(key K) *setShard[K] {
	return s.shards[s.hasher(key)&shardMask]
}

// Add inserts key and reports whether it was absent. The test and the
// insert are a single atomic step: of many concurrent Add calls for one key
// exactly one returns true.
func (s *ShardedSet[K]) Add(key K) bool {
	sh := s.shard(key)

	// Fast path: already a member.
	sh.mu.RLock()
	_, exists := sh.members[key]
	sh.mu.RUnlock()
	if exists {
		return false
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.members[key]; exists {
		return false
	}
	sh.members[key] = struct{}{}
	return true
}

// Contains reports whether key is a member.
func (s *ShardedSet[K]) Contains(key K) bool {
	sh := s.shard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	_, ok := sh.members[key]
	return ok
}

// Len returns the number of members across all shards.
func (s *ShardedSet[K]) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.members)
		sh.mu.RUnlock()
	}
	return total
}

// ShardLen returns the number of members in each shard.
// Useful for debugging load distribution.
func (s *ShardedSet[K]) ShardLen() [DefaultShardCount]int {
	var lens [DefaultShardCount]int
	for i, sh := range s.shards {
		sh.mu.RLock()
		lens[i] = len(sh.members)
		sh.mu.RUnlock()
	}
	return lens
}
