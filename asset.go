package assetpipe

import (
	"fmt"

	"github.com/gogpu/assetpipe/bitmap"
)

// Signature is the cheap identity of a logical asset: two handles with the
// same signature are assumed to render the same content. It keys request
// coalescing and the identifier cache.
//
// A signature is derived from static properties only (a source key,
// intrinsic dimensions, variant state such as "pressed" or "dark"), never
// from pixels. The content hash is computed later and is the exact identity.
type Signature struct {
	Key    string
	Width  int
	Height int
	State  string
}

// String returns a compact form suitable for logs.
func (s Signature) String() string {
	if s.State == "" {
		return fmt.Sprintf("%s@%dx%d", s.Key, s.Width, s.Height)
	}
	return fmt.Sprintf("%s@%dx%d[%s]", s.Key, s.Width, s.Height, s.State)
}

// weight approximates the memory a cache entry keyed by s costs.
func (s Signature) weight() int64 {
	return int64(len(s.Key) + len(s.State) + 16)
}

// Asset is a handle to a visual asset the pipeline can capture. The
// pipeline does not own the asset; it may become invalid at any time.
type Asset interface {
	// Signature returns the asset's static identity.
	Signature() Signature

	// Size returns the intrinsic dimensions in pixels.
	Size() (width, height int)

	// Render draws the asset into dst, stretched to dst's dimensions.
	// Returning ErrBufferInvalidated reports a benign race with the
	// platform and causes a retry.
	Render(dst *bitmap.Buffer) error
}

// BufferedAsset is an Asset backed by an already decoded buffer that the
// pipeline may read directly instead of rendering.
type BufferedAsset interface {
	Asset

	// Bitmap returns the backing buffer, or nil if none is available.
	// The buffer may be recycled concurrently.
	Bitmap() *bitmap.Buffer
}

// assetKind is the capability an asset was classified with.
type assetKind uint8

const (
	kindOpaque assetKind = iota
	kindBuffered
)

// classified is an asset together with its capability, computed once per
// request so the normalizer never inspects types again.
type classified struct {
	Asset
	kind     assetKind
	buffered BufferedAsset
}

func classify(a Asset) classified {
	if b, ok := a.(BufferedAsset); ok {
		return classified{Asset: a, kind: kindBuffered, buffered: b}
	}
	return classified{Asset: a, kind: kindOpaque}
}

// BitmapAsset is a BufferedAsset over a caller-owned buffer.
type BitmapAsset struct {
	key   string
	state string
	buf   *bitmap.Buffer
}

// NewBitmapAsset wraps buf. key identifies the source (a resource name, a
// file path); state distinguishes variants of the same source.
func NewBitmapAsset(key, state string, buf *bitmap.Buffer) *BitmapAsset {
	return &BitmapAsset{key: key, state: state, buf: buf}
}

// Signature implements Asset.
func (a *BitmapAsset) Signature() Signature {
	return Signature{Key: a.key, Width: a.buf.Width(), Height: a.buf.Height(), State: a.state}
}

// Size implements Asset.
func (a *BitmapAsset) Size() (int, int) {
	return a.buf.Width(), a.buf.Height()
}

// Bitmap implements BufferedAsset.
func (a *BitmapAsset) Bitmap() *bitmap.Buffer {
	return a.buf
}

// Render implements Asset by scaling the backing buffer into dst.
func (a *BitmapAsset) Render(dst *bitmap.Buffer) error {
	gen := a.buf.Generation()
	if err := bitmap.Scale(dst, a.buf, nil); err != nil {
		return ErrBufferInvalidated
	}
	if a.buf.Generation() != gen {
		return ErrBufferInvalidated
	}
	return nil
}

// RenderFunc draws an asset into dst.
type RenderFunc func(dst *bitmap.Buffer) error

// DrawableAsset is an opaque Asset: it has no reusable buffer and must be
// rendered (vector drawables, shapes, composed layers).
type DrawableAsset struct {
	sig    Signature
	render RenderFunc
}

// NewDrawableAsset creates an opaque asset with the given signature. The
// signature's Width and Height are the intrinsic size.
func NewDrawableAsset(sig Signature, render RenderFunc) *DrawableAsset {
	return &DrawableAsset{sig: sig, render: render}
}

// Signature implements Asset.
func (a *DrawableAsset) Signature() Signature { return a.sig }

// Size implements Asset.
func (a *DrawableAsset) Size() (int, int) { return a.sig.Width, a.sig.Height }

// Render implements Asset.
func (a *DrawableAsset) Render(dst *bitmap.Buffer) error { return a.render(dst) }
