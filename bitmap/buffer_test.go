package bitmap

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		height  int
		format  Format
		wantErr error
	}{
		{"rgba", 10, 5, FormatRGBA8, nil},
		{"gray", 3, 3, FormatGray8, nil},
		{"zero width", 0, 5, FormatRGBA8, ErrInvalidDimensions},
		{"negative height", 5, -1, FormatRGBA8, ErrInvalidDimensions},
		{"bad format", 5, 5, formatCount, ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := New(tt.width, tt.height, tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got, want := len(buf.Data()), tt.format.ImageBytes(tt.width, tt.height); got != want {
				t.Errorf("len(Data()) = %d, want %d", got, want)
			}
			if !buf.Mutable() {
				t.Error("new buffer should be mutable")
			}
			if buf.Recycled() {
				t.Error("new buffer should not be recycled")
			}
		})
	}
}

func TestFromRaw(t *testing.T) {
	data := make([]byte, 4*4*2)
	if _, err := FromRaw(data, 4, 2, FormatRGBA8, 8); !errors.Is(err, ErrInvalidStride) {
		t.Errorf("short stride: err = %v, want ErrInvalidStride", err)
	}
	if _, err := FromRaw(data[:10], 4, 2, FormatRGBA8, 16); !errors.Is(err, ErrDataTooSmall) {
		t.Errorf("short data: err = %v, want ErrDataTooSmall", err)
	}

	buf, err := FromRaw(data, 4, 2, FormatRGBA8, 16)
	if err != nil {
		t.Fatalf("FromRaw() error: %v", err)
	}
	_ = buf.SetRGBA(1, 1, 1, 2, 3, 4)
	if data[16+4] != 1 {
		t.Error("FromRaw should share the caller's data")
	}
}

func TestBuffer_Lifecycle(t *testing.T) {
	buf, _ := New(2, 2, FormatRGBA8)

	g0 := buf.Generation()
	buf.Touch()
	if buf.Generation() == g0 {
		t.Error("Touch should bump the generation")
	}

	g1 := buf.Generation()
	buf.Recycle()
	if !buf.Recycled() {
		t.Error("Recycled() = false after Recycle")
	}
	if buf.Generation() == g1 {
		t.Error("Recycle should bump the generation")
	}

	g2 := buf.Generation()
	buf.Recycle()
	if buf.Generation() != g2 {
		t.Error("second Recycle should not bump the generation")
	}

	buf.Freeze()
	if buf.Mutable() {
		t.Error("Mutable() = true after Freeze")
	}
}

func TestBuffer_Pixels(t *testing.T) {
	buf, _ := New(3, 2, FormatRGBA8)
	if err := buf.SetRGBA(2, 1, 10, 20, 30, 40); err != nil {
		t.Fatalf("SetRGBA: %v", err)
	}
	r, g, b, a := buf.RGBA(2, 1)
	if r != 10 || g != 20 || b != 30 || a != 40 {
		t.Errorf("RGBA = (%d,%d,%d,%d), want (10,20,30,40)", r, g, b, a)
	}
	if err := buf.SetRGBA(3, 0, 0, 0, 0, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("out of bounds SetRGBA err = %v", err)
	}

	buf.Fill(255, 255, 255, 255)
	if _, _, _, a := buf.RGBA(0, 0); a != 255 {
		t.Errorf("after Fill alpha = %d, want 255", a)
	}
	buf.Clear()
	if _, _, _, a := buf.RGBA(0, 0); a != 0 {
		t.Errorf("after Clear alpha = %d, want 0", a)
	}

	gray, _ := New(1, 1, FormatGray8)
	_ = gray.SetRGBA(0, 0, 255, 255, 255, 255)
	if r, g, b, a := gray.RGBA(0, 0); r != 255 || g != 255 || b != 255 || a != 255 {
		t.Errorf("gray RGBA = (%d,%d,%d,%d)", r, g, b, a)
	}
}

func TestFormat(t *testing.T) {
	if FormatRGBA8.BytesPerPixel() != 4 || FormatGray8.BytesPerPixel() != 1 {
		t.Error("unexpected bytes per pixel")
	}
	if formatCount.BytesPerPixel() != 0 || formatCount.String() != "Unknown" {
		t.Error("invalid format should report zero bytes and Unknown")
	}
	if FormatGray8.HasAlpha() || !FormatRGBAPremul.HasAlpha() {
		t.Error("unexpected HasAlpha")
	}
	for f := Format(0); f < formatCount; f++ {
		got, err := ParseFormat(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v", f.String(), got, err)
		}
	}
	if _, err := ParseFormat("CMYK"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ParseFormat(CMYK) err = %v", err)
	}
}
