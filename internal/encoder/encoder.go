// Package encoder converts raw camera frames into compressed images for the
// one-shot capture path.
package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sync/atomic"

	"github.com/e7canasta/scansession/internal/types"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 90

// Format names accepted by New.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// Encoder encodes frames as JPEG or PNG.
//
// Thread-safe: Encode may be called from multiple goroutines.
type Encoder struct {
	format  string
	quality int

	encoded atomic.Uint64
	failed  atomic.Uint64
}

// New returns an encoder for format ("jpeg" or "png").
// Quality is 1-100 and only used for JPEG.
func New(format string, quality int) (*Encoder, error) {
	if format != FormatJPEG && format != FormatPNG {
		return nil, fmt.Errorf("unsupported format: %s (must be jpeg or png)", format)
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("jpeg quality must be in range [1, 100], got %d", quality)
	}
	return &Encoder{format: format, quality: quality}, nil
}

// NewJPEG returns a JPEG encoder. Out-of-range quality falls back to
// DefaultQuality.
func NewJPEG(quality int) *Encoder {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Encoder{format: FormatJPEG, quality: quality}
}

// Encode implements types.FrameEncoder.
func (e *Encoder) Encode(frame *types.Frame) ([]byte, error) {
	img, err := ToImage(frame)
	if err != nil {
		e.failed.Add(1)
		return nil, err
	}

	var buf bytes.Buffer
	switch e.format {
	case FormatPNG:
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality})
	}
	if err != nil {
		e.failed.Add(1)
		return nil, fmt.Errorf("failed to encode %s: %w", e.format, err)
	}

	e.encoded.Add(1)
	return buf.Bytes(), nil
}

// Counts returns how many frames were encoded and how many failed.
func (e *Encoder) Counts() (encoded, failed uint64) {
	return e.encoded.Load(), e.failed.Load()
}

// ToImage converts frame pixels into an image.Image without touching
// frame.Data.
func ToImage(frame *types.Frame) (image.Image, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	w, h := frame.Width, frame.Height
	stride := frame.RowStride()
	rect := image.Rect(0, 0, w, h)

	switch frame.Format {
	case types.FormatGray8:
		img := image.NewGray(rect)
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+w], frame.Data[y*stride:])
		}
		return img, nil

	case types.FormatRGB24, types.FormatBGR24:
		img := image.NewRGBA(rect)
		ri, bi := 0, 2
		if frame.Format == types.FormatBGR24 {
			ri, bi = 2, 0
		}
		for y := 0; y < h; y++ {
			src := frame.Data[y*stride:]
			dst := img.Pix[y*img.Stride:]
			for x := 0; x < w; x++ {
				dst[x*4+0] = src[x*3+ri]
				dst[x*4+1] = src[x*3+1]
				dst[x*4+2] = src[x*3+bi]
				dst[x*4+3] = 255
			}
		}
		return img, nil

	case types.FormatRGBA32:
		img := image.NewRGBA(rect)
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+w*4], frame.Data[y*stride:])
		}
		return img, nil

	case types.FormatNV21:
		if w%2 != 0 {
			return nil, fmt.Errorf("NV21 frame width must be even, got %d", w)
		}
		img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)
		for y := 0; y < h; y++ {
			copy(img.Y[y*img.YStride:y*img.YStride+w], frame.Data[y*stride:])
		}
		chroma := frame.Data[stride*h:]
		cw, ch := (w+1)/2, (h+1)/2
		for y := 0; y < ch; y++ {
			row := chroma[y*stride:]
			for x := 0; x < cw; x++ {
				img.Cr[y*img.CStride+x] = row[x*2]
				img.Cb[y*img.CStride+x] = row[x*2+1]
			}
		}
		return img, nil

	default:
		return nil, fmt.Errorf("unsupported pixel format: %s", frame.Format)
	}
}
