package types

// Handle is an open camera, as returned by CameraDevice.Open.
type Handle interface {
	// Facing returns the facing the handle was opened for.
	Facing() Facing
}

// FrameFunc receives frames from a streaming camera. It is called from the
// adapter's producer goroutine and must not block.
type FrameFunc func(frame *Frame)

// CameraDevice is the only component that touches camera hardware.
//
// Implementations must guarantee:
//   - Open returns an error wrapping ErrUnsupportedCapability when the facing
//     is not available.
//   - StopStreaming returns only after the last FrameFunc call has returned.
//   - StopStreaming and Close are safe on a handle that is not streaming.
//   - SetTorch returns false when the torch is not available.
type CameraDevice interface {
	Supports(facing Facing) bool
	Open(facing Facing) (Handle, error)
	Close(h Handle) error
	StartStreaming(h Handle, onFrame FrameFunc) error
	StopStreaming(h Handle) error
	SetTorch(h Handle, on bool) bool
}

// Decoder recognizes barcodes in a frame.
//
// Called from the router's worker goroutine, never concurrently with itself
// for the same router. A nil result with a nil error means no code was found.
// The decoder must not retain or modify the frame.
type Decoder interface {
	Decode(frame *Frame, settings Settings) (*DecodeResult, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(frame *Frame, settings Settings) (*DecodeResult, error)

// Decode implements Decoder.
func (fn DecoderFunc) Decode(frame *Frame, settings Settings) (*DecodeResult, error) {
	return fn(frame, settings)
}

// ResultDelegate receives decode outcomes. The session references it but
// never owns it.
type ResultDelegate interface {
	// DidScan is called for each recognized code.
	DidScan(result *DecodeResult)
	// DecodeCancelled is called when an in-flight decode was abandoned.
	DecodeCancelled(reason CancelReason)
}

// NextFrameDelegate receives a single encoded camera frame.
type NextFrameDelegate interface {
	DidCaptureImage(image []byte, width, height int)
}

// NextFrameFunc adapts a function to the NextFrameDelegate interface.
type NextFrameFunc func(image []byte, width, height int)

// DidCaptureImage implements NextFrameDelegate.
func (fn NextFrameFunc) DidCaptureImage(image []byte, width, height int) {
	fn(image, width, height)
}

// FrameEncoder turns a frame into a compressed image.
type FrameEncoder interface {
	Encode(frame *Frame) ([]byte, error)
}
