package bitmap

import (
	"fmt"
	"image"
	"io"
	"math"

	// Decoders available to Decode.
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Image returns a standard library view of the buffer that shares its pixels.
// Writes through the view modify the buffer.
//
//   - FormatRGBA8 is exposed as *image.NRGBA
//   - FormatRGBAPremul as *image.RGBA
//   - FormatGray8 as *image.Gray
func (b *Buffer) Image() image.Image {
	rect := image.Rect(0, 0, b.width, b.height)
	switch b.format {
	case FormatRGBAPremul:
		return &image.RGBA{Pix: b.data, Stride: b.stride, Rect: rect}
	case FormatGray8:
		return &image.Gray{Pix: b.data, Stride: b.stride, Rect: rect}
	default:
		return &image.NRGBA{Pix: b.data, Stride: b.stride, Rect: rect}
	}
}

// drawable returns the buffer view as a writable draw target.
func (b *Buffer) drawable() xdraw.Image {
	return b.Image().(xdraw.Image)
}

// FromImage copies a standard library image into a new FormatRGBA8 buffer.
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	buf, err := New(bounds.Dx(), bounds.Dy(), FormatRGBA8)
	if err != nil {
		return nil, err
	}

	// Fast path: NRGBA with matching layout is a straight copy.
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == buf.stride && nrgba.Rect.Min == (image.Point{}) {
		copy(buf.data, nrgba.Pix)
		return buf, nil
	}

	xdraw.Draw(buf.drawable(), buf.Image().Bounds(), img, bounds.Min, xdraw.Src)
	return buf, nil
}

// Decode reads a PNG, JPEG or WebP image into a new FormatRGBA8 buffer.
func Decode(r io.Reader) (*Buffer, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("bitmap: decode: %w", err)
	}
	return FromImage(img)
}

// Scale resamples src into dst, stretching to dst's dimensions.
// A nil scaler uses bilinear approximation.
//
// Scale reads src pixels; callers racing against a platform that may recycle
// src must check src's generation afterwards.
func Scale(dst, src *Buffer, scaler xdraw.Scaler) error {
	if src.Recycled() || src.data == nil {
		return ErrRecycled
	}
	if dst.data == nil {
		return ErrRecycled
	}
	if scaler == nil {
		scaler = xdraw.ApproxBiLinear
	}

	out := dst.drawable()
	scaler.Scale(out, out.Bounds(), src.Image(), src.Image().Bounds(), xdraw.Src, nil)
	return nil
}

// FitBudget returns the largest dimensions with the same aspect ratio as
// (width, height) whose pixels fit into budget bytes. A non-positive budget
// means no limit. Dimensions never go below 1.
func FitBudget(width, height int, format Format, budget int) (int, int) {
	size := format.ImageBytes(width, height)
	if budget <= 0 || size <= budget {
		return width, height
	}

	// Scale both axes by sqrt(budget/size), then nudge down for rounding.
	ratio := float64(budget) / float64(size)
	s := math.Sqrt(ratio)
	w := max(1, int(float64(width)*s))
	h := max(1, int(float64(height)*s))
	for format.ImageBytes(w, h) > budget && (w > 1 || h > 1) {
		if w >= h && w > 1 {
			w--
		} else {
			h--
		}
	}
	return w, h
}
