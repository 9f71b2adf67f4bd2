package assetpipe

import (
	"bytes"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/gogpu/assetpipe/bitmap"
)

// Payload is a compressed asset.
type Payload struct {
	Data []byte
	MIME string
}

// Empty reports whether the compressor produced nothing. An empty payload
// is a failure signal, not an error.
func (p Payload) Empty() bool { return len(p.Data) == 0 }

// withMIME fills in a missing MIME type by sniffing the bytes.
func (p Payload) withMIME() Payload {
	if p.MIME == "" && !p.Empty() {
		p.MIME = mimetype.Detect(p.Data).String()
	}
	return p
}

// Compressor encodes a canonical buffer. Implementations must not retain
// buf and must return an empty payload when buf cannot be read.
type Compressor interface {
	Compress(buf *bitmap.Buffer) Payload
}

// CompressorFunc adapts a function to Compressor.
type CompressorFunc func(buf *bitmap.Buffer) Payload

// Compress implements Compressor.
func (f CompressorFunc) Compress(buf *bitmap.Buffer) Payload { return f(buf) }

// PNGCompressor encodes lossless PNG. The zero value uses default compression.
type PNGCompressor struct {
	Level png.CompressionLevel

	bufs encoderBuffers
}

// Compress implements Compressor.
func (c *PNGCompressor) Compress(buf *bitmap.Buffer) Payload {
	if buf == nil || buf.Recycled() {
		return Payload{}
	}

	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: c.Level, BufferPool: &c.bufs}
	if err := enc.Encode(&out, buf.Image()); err != nil {
		Logger().Debug("assetpipe: png encode failed", "err", err)
		return Payload{}
	}
	return Payload{Data: out.Bytes(), MIME: "image/png"}
}

// encoderBuffers shares png encoder scratch space between encodes.
type encoderBuffers struct {
	pool sync.Pool
}

func (b *encoderBuffers) Get() *png.EncoderBuffer {
	eb, _ := b.pool.Get().(*png.EncoderBuffer)
	return eb
}

func (b *encoderBuffers) Put(eb *png.EncoderBuffer) {
	b.pool.Put(eb)
}

// DefaultJPEGQuality is the quality used by a zero JPEGCompressor.
const DefaultJPEGQuality = 80

// JPEGCompressor encodes lossy JPEG. Alpha is dropped.
type JPEGCompressor struct {
	// Quality ranges from 1 to 100. Zero means DefaultJPEGQuality.
	Quality int
}

// Compress implements Compressor.
func (c JPEGCompressor) Compress(buf *bitmap.Buffer) Payload {
	if buf == nil || buf.Recycled() {
		return Payload{}
	}

	q := c.Quality
	if q <= 0 {
		q = DefaultJPEGQuality
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, buf.Image(), &jpeg.Options{Quality: min(q, 100)}); err != nil {
		Logger().Debug("assetpipe: jpeg encode failed", "err", err)
		return Payload{}
	}
	return Payload{Data: out.Bytes(), MIME: "image/jpeg"}
}
