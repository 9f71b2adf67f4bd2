// Package cache provides the concurrent lookup structures of the asset
// pipeline.
//
// # LRU[K, V]
//
// A thread-safe least-recently-used cache bounded by total weight rather
// than entry count. Each entry's weight comes from a Weigher; when the sum
// exceeds capacity the oldest entries are evicted. LRU implements
// pressure.Trimmable and shrinks to a fraction of its capacity on trim.
//
//	c := cache.NewLRU[string, string](1<<20, cache.StringWeigher)
//	c.Put("sig", "id")
//	id, ok := c.Get("sig")
//
// # ShardedSet[K]
//
// A grow-only set split into 16 independently locked shards, for
// membership checks that sit on a hot concurrent path.
//
//	s := cache.NewShardedSet[string](cache.StringHasher)
//	if s.Add("id") { /* first time */ }
//
// # Thread Safety
//
// Both types are safe for concurrent use and must not be copied after
// creation (they contain mutexes).
package cache
