package types

import (
	"fmt"
	"sync/atomic"
	"time"
)

// PixelFormat describes the layout of Frame.Data.
type PixelFormat int

const (
	// FormatGray8 is one luminance byte per pixel.
	FormatGray8 PixelFormat = iota
	// FormatRGB24 is packed R,G,B.
	FormatRGB24
	// FormatBGR24 is packed B,G,R (GStreamer / OpenCV default).
	FormatBGR24
	// FormatRGBA32 is packed R,G,B,A.
	FormatRGBA32
	// FormatNV21 is a full-resolution Y plane followed by interleaved V,U at
	// half resolution (mobile camera preview default).
	FormatNV21
)

func (p PixelFormat) String() string {
	switch p {
	case FormatGray8:
		return "GRAY8"
	case FormatRGB24:
		return "RGB24"
	case FormatBGR24:
		return "BGR24"
	case FormatRGBA32:
		return "RGBA32"
	case FormatNV21:
		return "NV21"
	default:
		return fmt.Sprintf("format(%d)", int(p))
	}
}

// BytesPerPixel returns the bytes per pixel of the first (or only) plane.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case FormatRGB24, FormatBGR24:
		return 3
	case FormatRGBA32:
		return 4
	default:
		return 1
	}
}

// Rect is a pixel rectangle.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Frame is a single camera image.
//
// Ownership contract:
//   - The camera adapter creates the frame and hands it to the router.
//   - Every path that keeps the frame beyond the routing decision calls
//     Retain and later Release; the adapter's release hook runs exactly once
//     when the last holder releases it.
//   - Data MUST NOT be modified after the frame is handed to the router.
type Frame struct {
	// Seq is the monotonic sequence number assigned by the adapter.
	Seq uint64
	// Timestamp is when the frame was captured.
	Timestamp time.Time
	// Width in pixels.
	Width int
	// Height in pixels.
	Height int
	// Stride is the byte length of one row of the first plane (0 = packed).
	Stride int
	// Format is the pixel layout of Data.
	Format PixelFormat
	// Data contains the pixels.
	Data []byte
	// Facing is the camera that produced the frame.
	Facing Facing
	// Orientation is the preview orientation at capture time.
	Orientation Orientation
	// Region is the area of the source image this frame covers. Equal to the
	// full frame unless the frame is a cropped decode input.
	Region Rect
	// TraceID identifies the frame across router, decoder and delegates.
	TraceID string

	extra    atomic.Int32
	released atomic.Bool
	onFree   func()
}

// SetReleaseHook installs the function run once the last holder releases
// the frame. Adapters use it to recycle pixel buffers.
func (f *Frame) SetReleaseHook(fn func()) {
	f.onFree = fn
}

// Retain adds a holder. Each Retain must be balanced by a Release.
func (f *Frame) Retain() {
	f.extra.Add(1)
}

// Release drops a holder. The first holder is implicit (the router), so a
// frame that was never retained is freed by its first Release.
func (f *Frame) Release() {
	if f.extra.Add(-1) >= 0 {
		return
	}
	if f.released.CompareAndSwap(false, true) && f.onFree != nil {
		f.onFree()
	}
}

// Released reports whether the release hook has run.
func (f *Frame) Released() bool {
	return f.released.Load()
}

// RowStride returns the effective row stride of the first plane.
func (f *Frame) RowStride() int {
	if f.Stride > 0 {
		return f.Stride
	}
	return f.Width * f.Format.BytesPerPixel()
}

// Validate checks the frame geometry against its buffer.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame %d: invalid size %dx%d", f.Seq, f.Width, f.Height)
	}
	need := f.RowStride() * f.Height
	if f.Format == FormatNV21 {
		need += f.RowStride() * ((f.Height + 1) / 2)
	}
	if len(f.Data) < need {
		return fmt.Errorf("frame %d: buffer too small for %dx%d %s (have %d bytes, need %d)",
			f.Seq, f.Width, f.Height, f.Format, len(f.Data), need)
	}
	return nil
}

// Band returns a zero-copy view of rows [top, top+rows) spanning the full
// width, clipped to the frame and its buffer. NV21 frames yield a GRAY8 view
// of the luminance plane. The view shares Data with f and carries no release
// hook; the holder of f keeps it alive.
func (f *Frame) Band(top, rows int) *Frame {
	stride := f.RowStride()
	limit := f.Height
	if stride > 0 {
		limit = min(limit, len(f.Data)/stride)
	} else {
		limit = 0
	}
	top = min(max(top, 0), limit)
	rows = min(max(rows, 0), limit-top)

	format := f.Format
	if format == FormatNV21 {
		format = FormatGray8
	}
	return &Frame{
		Seq:         f.Seq,
		Timestamp:   f.Timestamp,
		Width:       f.Width,
		Height:      rows,
		Stride:      stride,
		Format:      format,
		Data:        f.Data[top*stride : (top+rows)*stride],
		Facing:      f.Facing,
		Orientation: f.Orientation,
		Region:      Rect{X: 0, Y: f.Region.Y + top, Width: f.Width, Height: rows},
		TraceID:     f.TraceID,
	}
}
