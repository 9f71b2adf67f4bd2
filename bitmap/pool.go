package bitmap

import (
	"sync"

	"github.com/gogpu/assetpipe/pressure"
)

// Pool is a thread-safe pool of reusable buffers.
//
// Pool groups free buffers by dimensions and format and additionally tracks
// the buffers it handed out. Every buffer known to the pool is in exactly one
// of two states, free or in use, and every transition happens under a single
// lock, so a buffer can never be handed out twice.
//
// Pool implements pressure.Trimmable: trims drop free buffers and their
// memory; in-use buffers are never touched.
type Pool struct {
	mu        sync.Mutex
	buckets   map[poolKey][]*Buffer
	state     map[*Buffer]bufState
	maxSize   int // max free buffers per bucket
	freeBytes int
}

// poolKey identifies a bucket of identical buffer specifications.
type poolKey struct {
	width  int
	height int
	format Format
}

type bufState uint8

const (
	stateFree bufState = iota + 1
	stateInUse
)

// PoolStats is a point-in-time view of a Pool.
type PoolStats struct {
	// Free is the number of buffers available for reuse.
	Free int
	// FreeBytes is the pixel memory held by free buffers.
	FreeBytes int
	// InUse is the number of buffers currently checked out.
	InUse int
}

// NewPool creates a pool retaining at most maxPerBucket free buffers per
// size/format. A maxPerBucket of 0 or less means unlimited.
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[poolKey][]*Buffer),
		state:   make(map[*Buffer]bufState),
		maxSize: maxPerBucket,
	}
}

// Get checks out a free buffer with the given shape. The buffer is cleared.
// Returns nil when no matching buffer is free.
func (p *Pool) Get(width, height int, format Format) *Buffer {
	key := poolKey{width: width, height: height, format: format}

	p.mu.Lock()
	bucket := p.buckets[key]
	if len(bucket) == 0 {
		p.mu.Unlock()
		return nil
	}

	buf := bucket[0]
	bucket[0] = nil
	p.buckets[key] = bucket[1:]
	if len(p.buckets[key]) == 0 {
		delete(p.buckets, key)
	}
	p.freeBytes -= buf.ByteSize()
	p.state[buf] = stateInUse
	p.mu.Unlock()

	// The buffer is checked out, so nobody else can reach it while it is
	// zeroed.
	buf.Clear()
	return buf
}

// Acquire checks out a free buffer or allocates a new tracked one.
func (p *Pool) Acquire(width, height int, format Format) (*Buffer, error) {
	if buf := p.Get(width, height, format); buf != nil {
		return buf, nil
	}

	buf, err := New(width, height, format)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.state[buf] = stateInUse
	p.mu.Unlock()

	return buf, nil
}

// Put returns a buffer to the pool.
//
// Buffers that are immutable or recycled are never pooled; Put forgets them
// silently. Putting a buffer that is already free is a no-op. Buffers the
// pool never handed out are accepted as new free buffers.
func (p *Pool) Put(buf *Buffer) {
	if buf == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !buf.Mutable() || buf.Recycled() {
		delete(p.state, buf)
		return
	}
	if p.state[buf] == stateFree {
		return
	}

	key := poolKey{width: buf.width, height: buf.height, format: buf.format}
	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		// Bucket full; let GC reclaim it.
		delete(p.state, buf)
		return
	}

	p.buckets[key] = append(bucket, buf)
	p.state[buf] = stateFree
	p.freeBytes += buf.ByteSize()
}

// InUse reports whether buf is currently checked out.
func (p *Pool) InUse(buf *Buffer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state[buf] == stateInUse
}

// Clear drops every free buffer and releases its memory.
// Checked-out buffers stay tracked and usable.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, bucket := range p.buckets {
		for _, buf := range bucket {
			delete(p.state, buf)
			buf.release()
		}
		delete(p.buckets, key)
	}
	p.freeBytes = 0
}

// OnTrim implements pressure.Trimmable. Any actionable level empties the
// free lists.
func (p *Pool) OnTrim(level pressure.Level) {
	if level.Actionable() {
		p.Clear()
	}
}

// OnLowMemory implements pressure.Trimmable.
func (p *Pool) OnLowMemory() {
	p.Clear()
}

// Stats returns pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := PoolStats{FreeBytes: p.freeBytes}
	for _, st := range p.state {
		if st == stateInUse {
			s.InUse++
		} else {
			s.Free++
		}
	}
	return s
}
