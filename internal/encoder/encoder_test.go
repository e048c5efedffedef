package encoder

import (
	"bytes"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/e7canasta/scansession/internal/types"
)

func testFrame(format types.PixelFormat, w, h int) *types.Frame {
	size := w * h * format.BytesPerPixel()
	if format == types.FormatNV21 {
		size = w*h + w*((h+1)/2)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	return &types.Frame{Width: w, Height: h, Format: format, Data: data}
}

func TestEncode_JPEG_AllFormats(t *testing.T) {
	enc := NewJPEG(80)

	formats := []types.PixelFormat{
		types.FormatGray8,
		types.FormatRGB24,
		types.FormatBGR24,
		types.FormatRGBA32,
		types.FormatNV21,
	}
	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			out, err := enc.Encode(testFrame(f, 32, 16))
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("output is not a JPEG: %v", err)
			}
			if cfg.Width != 32 || cfg.Height != 16 {
				t.Errorf("expected 32x16, got %dx%d", cfg.Width, cfg.Height)
			}
			t.Logf("✅ %s → %d bytes", f, len(out))
		})
	}

	encoded, failed := enc.Counts()
	if encoded != uint64(len(formats)) || failed != 0 {
		t.Errorf("counts = (%d, %d), want (%d, 0)", encoded, failed, len(formats))
	}
}

func TestEncode_PNG(t *testing.T) {
	enc, err := New(FormatPNG, DefaultQuality)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	out, err := enc.Encode(testFrame(types.FormatGray8, 8, 8))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(out)); err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
}

func TestEncode_RespectsStride(t *testing.T) {
	// 4x2 gray frame with 2 padding bytes per row
	frame := &types.Frame{
		Width:  4,
		Height: 2,
		Stride: 6,
		Format: types.FormatGray8,
		Data:   []byte{1, 2, 3, 4, 0xEE, 0xEE, 5, 6, 7, 8, 0xEE, 0xEE},
	}
	img, err := ToImage(frame)
	if err != nil {
		t.Fatalf("ToImage failed: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			want := uint32(y*4+x+1) * 0x101
			if r != want {
				t.Errorf("pixel (%d,%d) = %d, want %d", x, y, r, want)
			}
		}
	}
}

func TestEncode_Errors(t *testing.T) {
	enc := NewJPEG(DefaultQuality)

	tests := []struct {
		name  string
		frame *types.Frame
	}{
		{"empty", &types.Frame{}},
		{"short buffer", &types.Frame{Width: 10, Height: 10, Format: types.FormatRGB24, Data: make([]byte, 10)}},
		{"odd NV21 width", testFrame(types.FormatNV21, 7, 4)},
		{"unknown format", &types.Frame{Width: 1, Height: 1, Format: types.PixelFormat(99), Data: []byte{0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := enc.Encode(tt.frame); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, failed := enc.Counts(); failed != uint64(len(tests)) {
		t.Errorf("failed count = %d, want %d", failed, len(tests))
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("gif", 90); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := New(FormatJPEG, 0); err == nil {
		t.Error("expected error for quality 0")
	}
	if _, err := New(FormatJPEG, 101); err == nil {
		t.Error("expected error for quality 101")
	}
	if enc := NewJPEG(-5); enc.quality != DefaultQuality {
		t.Errorf("NewJPEG(-5) quality = %d, want %d", enc.quality, DefaultQuality)
	}
}
