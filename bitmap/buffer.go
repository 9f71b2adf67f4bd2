// Package bitmap provides the mutable raster buffers the asset pipeline
// normalizes visual assets into, and the pool that recycles them.
package bitmap

import (
	"errors"
	"sync/atomic"
)

// Common errors for buffer operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("bitmap: invalid dimensions")

	// ErrInvalidFormat is returned when the format is not recognized.
	ErrInvalidFormat = errors.New("bitmap: invalid format")

	// ErrInvalidStride is returned when stride is less than minimum required.
	ErrInvalidStride = errors.New("bitmap: stride too small for width")

	// ErrDataTooSmall is returned when provided data is smaller than required.
	ErrDataTooSmall = errors.New("bitmap: data buffer too small")

	// ErrOutOfBounds is returned when pixel coordinates are outside bounds.
	ErrOutOfBounds = errors.New("bitmap: coordinates out of bounds")

	// ErrRecycled is returned when an operation needs pixels of a recycled buffer.
	ErrRecycled = errors.New("bitmap: buffer recycled")
)

// Buffer is a raster buffer with an ownership-relevant lifecycle.
//
// Besides pixels, a Buffer carries three pieces of state the pipeline relies
// on to detect concurrent invalidation:
//   - a generation marker, bumped whenever the owner declares the contents
//     replaced (Touch) or the buffer recycled;
//   - a recycled flag, set once the backing memory is handed back to the
//     platform and must no longer be read;
//   - a mutability flag; only mutable buffers may be pooled.
//
// Pixel access requires external synchronization. The lifecycle state is
// atomic and may be read from any goroutine.
type Buffer struct {
	data   []byte
	width  int
	height int
	stride int
	format Format

	gen      atomic.Uint64
	recycled atomic.Bool
	mutable  atomic.Bool
}

// New creates a zeroed, mutable buffer.
func New(width, height int, format Format) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}

	stride := format.RowBytes(width)
	b := &Buffer{
		data:   make([]byte, stride*height),
		width:  width,
		height: height,
		stride: stride,
		format: format,
	}
	b.mutable.Store(true)
	return b, nil
}

// FromRaw wraps existing pixel data without copying. The buffer is mutable.
// Stride must be at least format.RowBytes(width).
func FromRaw(data []byte, width, height int, format Format, stride int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}
	if stride < format.RowBytes(width) {
		return nil, ErrInvalidStride
	}
	if len(data) < stride*height {
		return nil, ErrDataTooSmall
	}

	b := &Buffer{
		data:   data[:stride*height],
		width:  width,
		height: height,
		stride: stride,
		format: format,
	}
	b.mutable.Store(true)
	return b, nil
}

// Width returns the width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the height in pixels.
func (b *Buffer) Height() int { return b.height }

// Stride returns the number of bytes per row.
func (b *Buffer) Stride() int { return b.stride }

// Format returns the pixel format.
func (b *Buffer) Format() Format { return b.format }

// Data returns the raw pixel data. It is nil once the pool released the
// backing memory.
func (b *Buffer) Data() []byte { return b.data }

// ByteSize returns the number of bytes the pixels occupy.
func (b *Buffer) ByteSize() int { return b.stride * b.height }

// Generation returns the current generation marker.
func (b *Buffer) Generation() uint64 { return b.gen.Load() }

// Touch declares the contents replaced by their owner. Anyone who captured
// the previous generation will see the buffer as changed.
func (b *Buffer) Touch() { b.gen.Add(1) }

// Recycle marks the buffer as returned to the platform. Pixels may still be
// present but must not be used for encoding anymore.
func (b *Buffer) Recycle() {
	if b.recycled.CompareAndSwap(false, true) {
		b.gen.Add(1)
	}
}

// Recycled reports whether Recycle was called.
func (b *Buffer) Recycled() bool { return b.recycled.Load() }

// Mutable reports whether the buffer may be written and pooled.
func (b *Buffer) Mutable() bool { return b.mutable.Load() }

// Freeze makes the buffer immutable. Immutable buffers are never pooled.
func (b *Buffer) Freeze() { b.mutable.Store(false) }

// SameShape reports whether o has the same dimensions and format.
func (b *Buffer) SameShape(o *Buffer) bool {
	return o != nil && b.width == o.width && b.height == o.height && b.format == o.format
}

// RowBytes returns the pixel bytes of row y, or nil if y is out of bounds.
func (b *Buffer) RowBytes(y int) []byte {
	if y < 0 || y >= b.height || b.data == nil {
		return nil
	}
	start := y * b.stride
	return b.data[start : start+b.format.RowBytes(b.width)]
}

// pixelOffset returns the byte offset of pixel (x, y), or -1 if out of bounds.
func (b *Buffer) pixelOffset(x, y int) int {
	if x < 0 || x >= b.width || y < 0 || y >= b.height || b.data == nil {
		return -1
	}
	return y*b.stride + x*b.format.BytesPerPixel()
}

// RGBA returns the color at (x, y). Gray pixels report r=g=b and a=255.
// Returns zeros if coordinates are out of bounds.
func (b *Buffer) RGBA(x, y int) (r, g, bl, a uint8) {
	off := b.pixelOffset(x, y)
	if off < 0 {
		return 0, 0, 0, 0
	}
	if b.format == FormatGray8 {
		v := b.data[off]
		return v, v, v, 255
	}
	return b.data[off], b.data[off+1], b.data[off+2], b.data[off+3]
}

// SetRGBA sets the color at (x, y). Gray buffers store luminance.
func (b *Buffer) SetRGBA(x, y int, r, g, bl, a uint8) error {
	off := b.pixelOffset(x, y)
	if off < 0 {
		return ErrOutOfBounds
	}
	if b.format == FormatGray8 {
		b.data[off] = byte((int(r)*299 + int(g)*587 + int(bl)*114) / 1000)
		return nil
	}
	b.data[off] = r
	b.data[off+1] = g
	b.data[off+2] = bl
	b.data[off+3] = a
	return nil
}

// Fill sets every pixel to the given color.
func (b *Buffer) Fill(r, g, bl, a uint8) {
	for y := range b.height {
		for x := range b.width {
			_ = b.SetRGBA(x, y, r, g, bl, a)
		}
	}
}

// Clear zeroes all pixels.
func (b *Buffer) Clear() {
	clear(b.data)
}

// release drops the backing memory. Only the pool calls this, and only for
// buffers it holds as free.
func (b *Buffer) release() {
	b.data = nil
	b.Recycle()
}
