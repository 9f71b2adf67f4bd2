package assetpipe

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/assetpipe/bitmap"
)

// Normalization errors.
var (
	// ErrBufferInvalidated reports that a source buffer was recycled or
	// rewritten between being read and being used. It is a benign race with
	// the platform; the pipeline retries once.
	ErrBufferInvalidated = errors.New("assetpipe: buffer invalidated")

	// ErrEmptyAsset is returned for assets with no pixels.
	ErrEmptyAsset = errors.New("assetpipe: asset has no pixels")
)

// Normalizer turns assets into canonical buffers sized to a byte budget.
//
// Buffers the normalizer allocates come from, and return to, its pool.
// Buffers owned by an asset are read in place when they already fit.
type Normalizer struct {
	pool   *bitmap.Pool
	format bitmap.Format
	scaler xdraw.Scaler
}

// NewNormalizer creates a normalizer producing FormatRGBA8 buffers from pool.
// A nil pool gets a private one.
func NewNormalizer(pool *bitmap.Pool) *Normalizer {
	if pool == nil {
		pool = bitmap.NewPool(0)
	}
	return &Normalizer{
		pool:   pool,
		format: bitmap.FormatRGBA8,
		scaler: xdraw.ApproxBiLinear,
	}
}

// Pool returns the buffer pool the normalizer draws from.
func (n *Normalizer) Pool() *bitmap.Pool { return n.pool }

// Normalize produces a canonical buffer for a. The caller must Release it.
func (n *Normalizer) Normalize(a Asset, budget int) (*Canonical, error) {
	return n.normalize(classify(a), budget)
}

func (n *Normalizer) normalize(a classified, budget int) (*Canonical, error) {
	if a.kind == kindBuffered {
		if src := a.buffered.Bitmap(); src != nil && !src.Recycled() {
			return n.fromBuffer(src, budget)
		}
	}
	return n.render(a, budget)
}

// fromBuffer reuses src when it fits the budget, or scales it into a pooled
// buffer when it does not.
func (n *Normalizer) fromBuffer(src *bitmap.Buffer, budget int) (*Canonical, error) {
	gen := src.Generation()
	if budget <= 0 || src.ByteSize() <= budget {
		return &Canonical{buf: src, gen: gen}, nil
	}

	w, h := bitmap.FitBudget(src.Width(), src.Height(), n.format, budget)

	var lease bufferLease
	defer lease.returnAll(n.pool)

	dst, err := lease.acquire(n.pool, w, h, n.format)
	if err != nil {
		return nil, err
	}
	if err := bitmap.Scale(dst, src, n.scaler); err != nil || src.Generation() != gen {
		return nil, ErrBufferInvalidated
	}
	return n.owned(lease.keep(dst)), nil
}

// render draws an asset into a pooled buffer at its natural size and
// downscales when that exceeds the budget.
func (n *Normalizer) render(a classified, budget int) (*Canonical, error) {
	w, h := a.Size()
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyAsset
	}

	// Asset and scaler code may panic; every buffer not handed to the
	// Canonical goes back to the pool on the way out.
	var lease bufferLease
	defer lease.returnAll(n.pool)

	buf, err := lease.acquire(n.pool, w, h, n.format)
	if err != nil {
		return nil, err
	}
	if err := a.Render(buf); err != nil {
		if errors.Is(err, ErrBufferInvalidated) {
			return nil, ErrBufferInvalidated
		}
		return nil, fmt.Errorf("assetpipe: render %s: %w", a.Signature(), err)
	}

	tw, th := bitmap.FitBudget(w, h, n.format, budget)
	if tw == w && th == h {
		return n.owned(lease.keep(buf)), nil
	}

	// The original goes back to the pool right away; the resized copy is
	// what gets encoded.
	resized, err := lease.acquire(n.pool, tw, th, n.format)
	if err != nil {
		return nil, err
	}
	err = bitmap.Scale(resized, buf, n.scaler)
	lease.release(n.pool, buf)
	if err != nil {
		return nil, ErrBufferInvalidated
	}
	return n.owned(lease.keep(resized)), nil
}

// bufferLease tracks the pool buffers a normalization holds until one of
// them is handed off.
type bufferLease struct {
	held []*bitmap.Buffer
}

func (l *bufferLease) acquire(pool *bitmap.Pool, w, h int, f bitmap.Format) (*bitmap.Buffer, error) {
	buf, err := pool.Acquire(w, h, f)
	if err != nil {
		return nil, fmt.Errorf("assetpipe: acquire %dx%d: %w", w, h, err)
	}
	l.held = append(l.held, buf)
	return buf, nil
}

// keep removes buf from the lease; the caller now owns it.
func (l *bufferLease) keep(buf *bitmap.Buffer) *bitmap.Buffer {
	l.held = slices.DeleteFunc(l.held, func(b *bitmap.Buffer) bool { return b == buf })
	return buf
}

// release returns buf to the pool now.
func (l *bufferLease) release(pool *bitmap.Pool, buf *bitmap.Buffer) {
	pool.Put(l.keep(buf))
}

func (l *bufferLease) returnAll(pool *bitmap.Pool) {
	for _, buf := range l.held {
		pool.Put(buf)
	}
	l.held = nil
}

func (n *Normalizer) owned(buf *bitmap.Buffer) *Canonical {
	return &Canonical{buf: buf, gen: buf.Generation(), pool: n.pool}
}

// Canonical is a normalized buffer ready for compression.
type Canonical struct {
	buf  *bitmap.Buffer
	gen  uint64
	pool *bitmap.Pool // nil when the buffer belongs to the asset

	once sync.Once
}

// Buffer returns the pixels to encode.
func (c *Canonical) Buffer() *bitmap.Buffer { return c.buf }

// Owned reports whether the buffer came from the pool.
func (c *Canonical) Owned() bool { return c.pool != nil }

// Valid reports whether the buffer is unchanged since normalization.
func (c *Canonical) Valid() bool {
	return !c.buf.Recycled() && c.buf.Generation() == c.gen
}

// Release hands an owned buffer back to the pool. It is safe to call more
// than once.
func (c *Canonical) Release() {
	c.once.Do(func() {
		if c.pool != nil {
			c.pool.Put(c.buf)
		}
	})
}
