// Package gstcam is a CameraDevice backed by GStreamer (go-gst).
//
// Pipeline per open facing:
//
//	v4l2src device=/dev/videoN → videoconvert → videoscale → videorate →
//	capsfilter (GRAY8, WxH, fps) → appsink (max-buffers=1, drop=true)
//
// Open moves the pipeline to READY, which claims the device node.
// StartStreaming moves it to PLAYING and StopStreaming back to READY. Frames
// are copied out of the GStreamer buffer, so the router may hold them past
// the callback. Torch control is not available through V4L2 and SetTorch
// always returns false.
//
// The adapter needs cgo and the GStreamer development packages and is built
// only with the gst tag:
//
//	go build -tags gst ./cmd/scand
package gstcam
