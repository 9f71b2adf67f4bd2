package assetpipe

import (
	"github.com/gogpu/assetpipe/cache"
)

// SeenSet records identifiers already handed to the outbound queue. It only
// grows; memory pressure never clears it.
type SeenSet interface {
	// MarkIfAbsent adds id and reports whether it was absent.
	MarkIfAbsent(id string) bool

	// Contains reports whether id was marked.
	Contains(id string) bool
}

type shardedSeenSet struct {
	set *cache.ShardedSet[string]
}

// NewSeenSet returns a SeenSet safe for concurrent use.
func NewSeenSet() SeenSet {
	return shardedSeenSet{set: cache.NewShardedSet[string](cache.StringHasher)}
}

func (s shardedSeenSet) MarkIfAbsent(id string) bool { return s.set.Add(id) }

func (s shardedSeenSet) Contains(id string) bool { return s.set.Contains(id) }

// IdentifierCache maps asset signatures to resource identifiers.
// Implementations must be safe for concurrent use and should implement
// Trimmable so the memory coordinator can shrink them.
type IdentifierCache interface {
	Get(sig Signature) (string, bool)
	Put(sig Signature, id string)
}

// identifierPeeker is implemented by caches that can answer a lookup without
// counting it. The pipeline uses it for the second lookup of a request so a
// single miss is recorded once.
type identifierPeeker interface {
	Peek(sig Signature) (string, bool)
}

// peekIdentifier looks sig up in c, through Peek when c supports it.
func peekIdentifier(c IdentifierCache, sig Signature) (string, bool) {
	if pk, ok := c.(identifierPeeker); ok {
		return pk.Peek(sig)
	}
	return c.Get(sig)
}

// NewIdentifierCache returns an LRU bounded by the approximate bytes held by
// its keys and identifiers. A non-positive capacity uses cache.DefaultCapacity.
func NewIdentifierCache(capacity int64) *cache.LRU[Signature, string] {
	return cache.NewLRU[Signature, string](capacity, func(sig Signature, id string) int64 {
		return sig.weight() + int64(len(id))
	})
}

// OutboundQueue accepts new payloads for delivery. The pipeline calls
// Enqueue at most once per resource identifier.
type OutboundQueue interface {
	Enqueue(resourceID, applicationID string, payload []byte) error
}

// OutboundQueueFunc adapts a function to OutboundQueue.
type OutboundQueueFunc func(resourceID, applicationID string, payload []byte) error

// Enqueue implements OutboundQueue.
func (f OutboundQueueFunc) Enqueue(resourceID, applicationID string, payload []byte) error {
	return f(resourceID, applicationID, payload)
}
