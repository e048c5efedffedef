package gstcam

import "strings"

// ErrorCategory classifies GStreamer pipeline errors for telemetry.
type ErrorCategory int

const (
	// ErrCategoryDevice indicates the camera node is missing, busy or gone
	ErrCategoryDevice ErrorCategory = iota
	// ErrCategoryFormat indicates caps negotiation or pixel format failures
	ErrCategoryFormat
	// ErrCategoryPermission indicates the process may not open the device
	ErrCategoryPermission
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryFormat:
		return "format"
	case ErrCategoryPermission:
		return "permission"
	default:
		return "unknown"
	}
}

var (
	permissionKeywords = []string{
		"permission denied",
		"not permitted",
		"eacces",
		"access denied",
	}
	formatKeywords = []string{
		"not negotiated",
		"negotiation",
		"caps",
		"format",
		"pixel",
		"resolution",
		"framerate",
		"missing plugin",
		"no such element",
	}
	deviceKeywords = []string{
		"no such file",
		"no such device",
		"cannot identify device",
		"device or resource busy",
		"busy",
		"not a capture device",
		"disconnected",
		"failed to open",
		"could not open",
		"i/o error",
	}
)

// classifyError categorizes a GStreamer error from its message and debug
// string. Permission is checked first, then format, then device.
func classifyError(msg, debug string) ErrorCategory {
	combined := strings.ToLower(msg + " " + debug)
	switch {
	case containsAny(combined, permissionKeywords):
		return ErrCategoryPermission
	case containsAny(combined, formatKeywords):
		return ErrCategoryFormat
	case containsAny(combined, deviceKeywords):
		return ErrCategoryDevice
	default:
		return ErrCategoryUnknown
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
