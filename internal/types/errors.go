package types

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedCapability is returned when a facing or the torch is not
	// available on the device.
	ErrUnsupportedCapability = errors.New("unsupported camera capability")

	// ErrInvalidRange is returned by setters given values outside their bounds.
	ErrInvalidRange = errors.New("value out of range")

	// ErrStaleResult marks a decode or capture that finished after the state
	// that produced it was torn down. It is never delivered to a delegate.
	ErrStaleResult = errors.New("stale result")

	// ErrHardwareFailure marks a terminal camera failure.
	ErrHardwareFailure = errors.New("camera hardware failure")

	// ErrMissingAppKey is returned when no application key is given.
	ErrMissingAppKey = errors.New("app key is required")

	// ErrNoDevice is returned when no camera device is given.
	ErrNoDevice = errors.New("camera device is required")

	// ErrNoDecoder is returned when no decoder engine is given.
	ErrNoDecoder = errors.New("decoder is required")

	// ErrClosed is returned by lifecycle calls on a closed session.
	ErrClosed = errors.New("scan session closed")
)

// HardwareOp is the camera operation that failed.
type HardwareOp int

const (
	OpOpen HardwareOp = iota
	OpStream
	OpStopStream
	OpClose
)

func (o HardwareOp) String() string {
	switch o {
	case OpOpen:
		return "open"
	case OpStream:
		return "stream"
	case OpStopStream:
		return "stop_stream"
	case OpClose:
		return "close"
	default:
		return "unknown"
	}
}

// HardwareError describes a failed camera operation.
// errors.Is(err, ErrHardwareFailure) holds for every HardwareError.
type HardwareError struct {
	Op     HardwareOp
	Facing Facing
	Err    error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("camera %s (%s): %v", e.Op, e.Facing, e.Err)
}

func (e *HardwareError) Unwrap() error {
	return e.Err
}

// Is reports ErrHardwareFailure as a match.
func (e *HardwareError) Is(target error) bool {
	return target == ErrHardwareFailure
}

// NewHardwareError wraps err unless it is nil.
func NewHardwareError(op HardwareOp, facing Facing, err error) error {
	if err == nil {
		return nil
	}
	return &HardwareError{Op: op, Facing: facing, Err: err}
}
