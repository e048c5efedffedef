package gstcam

import (
	"fmt"
	"strings"
)

// buildCaps builds the appsink caps: GRAY8 at the requested size and rate.
//
// Handles fractional framerates:
//   - fps >= 1: framerate = fps/1
//   - fps < 1: framerate = 1/(1/fps)
func buildCaps(width, height int, fps float64) string {
	numerator, denominator := 1, 1
	if fps > 0 && fps < 1.0 {
		denominator = int(1.0 / fps)
	} else if fps >= 1.0 {
		numerator = int(fps)
	}
	return fmt.Sprintf(
		"video/x-raw,format=GRAY8,width=%d,height=%d,framerate=%d/%d",
		width, height, numerator, denominator,
	)
}

// describePipeline renders the element chain for logs.
func describePipeline(source, device string) string {
	parts := []string{source}
	if device != "" {
		parts[0] = fmt.Sprintf("%s device=%s", source, device)
	}
	parts = append(parts, "videoconvert", "videoscale", "videorate", "capsfilter", "appsink")
	return strings.Join(parts, " ! ")
}

// rowStride returns the bytes per row of a GRAY8 buffer. GStreamer pads
// rows to 4 bytes, so it can exceed width.
func rowStride(size, width, height int) int {
	if height <= 0 {
		return width
	}
	if s := size / height; s > width {
		return s
	}
	return width
}
