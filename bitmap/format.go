package bitmap

// Format represents a pixel storage format.
type Format uint8

const (
	// FormatRGBA8 is 32-bit non-premultiplied RGBA (4 bytes per pixel).
	// This is the canonical format the pipeline encodes from.
	FormatRGBA8 Format = iota

	// FormatRGBAPremul is 32-bit RGBA with premultiplied alpha.
	FormatRGBAPremul

	// FormatGray8 is 8-bit grayscale (1 byte per pixel).
	FormatGray8

	formatCount
)

// formatInfo contains metadata about a pixel format.
type formatInfo struct {
	bytesPerPixel int
	hasAlpha      bool
	name          string
}

var formatInfoTable = [formatCount]formatInfo{
	FormatRGBA8:      {bytesPerPixel: 4, hasAlpha: true, name: "RGBA8"},
	FormatRGBAPremul: {bytesPerPixel: 4, hasAlpha: true, name: "RGBAPremul"},
	FormatGray8:      {bytesPerPixel: 1, hasAlpha: false, name: "Gray8"},
}

// IsValid returns true if the format is a valid known format.
func (f Format) IsValid() bool {
	return f < formatCount
}

// BytesPerPixel returns the number of bytes per pixel, or 0 for unknown formats.
func (f Format) BytesPerPixel() int {
	if !f.IsValid() {
		return 0
	}
	return formatInfoTable[f].bytesPerPixel
}

// HasAlpha returns true if this format has an alpha channel.
func (f Format) HasAlpha() bool {
	return f.IsValid() && formatInfoTable[f].hasAlpha
}

// RowBytes calculates the number of bytes needed for a row of the given width.
func (f Format) RowBytes(width int) int {
	return width * f.BytesPerPixel()
}

// ImageBytes calculates the total number of bytes needed for an image.
func (f Format) ImageBytes(width, height int) int {
	return f.RowBytes(width) * height
}

// String returns a string representation of the format.
func (f Format) String() string {
	if !f.IsValid() {
		return "Unknown"
	}
	return formatInfoTable[f].name
}

// ParseFormat converts a format name as returned by String into a Format.
func ParseFormat(s string) (Format, error) {
	for f := Format(0); f < formatCount; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, ErrInvalidFormat
}
