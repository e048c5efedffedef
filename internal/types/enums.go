// Package types holds the value types shared by the scan session, the frame
// router and the camera adapters.
//
// This package is INTERNAL - clients use the aliases re-exported by the
// parent scansession package.
package types

import (
	"fmt"
	"strings"
)

// Facing is the direction a camera points.
type Facing int

const (
	// FacingBack faces away from the user (default).
	FacingBack Facing = iota
	// FacingFront faces the user.
	FacingFront
)

// Opposite returns the other facing direction.
func (f Facing) Opposite() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

func (f Facing) String() string {
	switch f {
	case FacingBack:
		return "back"
	case FacingFront:
		return "front"
	default:
		return fmt.Sprintf("facing(%d)", int(f))
	}
}

// ParseFacing parses "back" or "front" (case-insensitive).
func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "back":
		return FacingBack, nil
	case "front":
		return FacingFront, nil
	default:
		return FacingBack, fmt.Errorf("unknown camera facing %q (must be back or front)", s)
	}
}

// State is the lifecycle state of a scan session.
type State int

const (
	// StateUnprepared means no camera resources are held.
	StateUnprepared State = iota
	// StatePrepared means the camera is open but has never streamed.
	StatePrepared
	// StateActive means the camera streams and frames are routed to the decoder.
	StateActive
	// StateStandby means the camera is open and warm but not streaming.
	StateStandby
	// StateReleased means all camera resources have been released.
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUnprepared:
		return "unprepared"
	case StatePrepared:
		return "prepared"
	case StateActive:
		return "active"
	case StateStandby:
		return "standby"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// HoldsCamera reports whether a camera handle is open in this state.
func (s State) HoldsCamera() bool {
	return s == StatePrepared || s == StateActive || s == StateStandby
}

// Orientation is the orientation of the camera preview.
type Orientation int

const (
	OrientationPortrait Orientation = iota
	OrientationPortraitUpsideDown
	OrientationLandscapeLeft
	OrientationLandscapeRight
)

func (o Orientation) String() string {
	switch o {
	case OrientationPortrait:
		return "portrait"
	case OrientationPortraitUpsideDown:
		return "portrait_upside_down"
	case OrientationLandscapeLeft:
		return "landscape_left"
	case OrientationLandscapeRight:
		return "landscape_right"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// ParseOrientation parses the String form of an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "portrait":
		return OrientationPortrait, nil
	case "portrait_upside_down":
		return OrientationPortraitUpsideDown, nil
	case "landscape_left":
		return OrientationLandscapeLeft, nil
	case "landscape_right":
		return OrientationLandscapeRight, nil
	default:
		return OrientationPortrait, fmt.Errorf("unknown preview orientation %q", s)
	}
}

// MsiChecksum is the checksum scheme expected on MSI Plessey codes.
type MsiChecksum int

const (
	MsiChecksumNone MsiChecksum = iota
	// MsiChecksumMod10 is the default.
	MsiChecksumMod10
	MsiChecksumMod1010
	MsiChecksumMod11
	MsiChecksumMod1110
)

func (m MsiChecksum) String() string {
	switch m {
	case MsiChecksumNone:
		return "none"
	case MsiChecksumMod10:
		return "mod10"
	case MsiChecksumMod1010:
		return "mod1010"
	case MsiChecksumMod11:
		return "mod11"
	case MsiChecksumMod1110:
		return "mod1110"
	default:
		return fmt.Sprintf("msi_checksum(%d)", int(m))
	}
}

// Valid reports whether m is one of the declared checksum schemes.
func (m MsiChecksum) Valid() bool {
	return m >= MsiChecksumNone && m <= MsiChecksumMod1110
}

// ParseMsiChecksum parses the String form of an MsiChecksum.
func ParseMsiChecksum(s string) (MsiChecksum, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return MsiChecksumNone, nil
	case "", "mod10":
		return MsiChecksumMod10, nil
	case "mod1010":
		return MsiChecksumMod1010, nil
	case "mod11":
		return MsiChecksumMod11, nil
	case "mod1110":
		return MsiChecksumMod1110, nil
	default:
		return MsiChecksumMod10, fmt.Errorf("unknown msi checksum %q", s)
	}
}

// CancelReason explains why an in-flight decode was abandoned.
type CancelReason int

const (
	// CancelFacingSwitch means the camera was rebuilt for another facing.
	CancelFacingSwitch CancelReason = iota
)

func (r CancelReason) String() string {
	switch r {
	case CancelFacingSwitch:
		return "facing_switch"
	default:
		return fmt.Sprintf("cancel(%d)", int(r))
	}
}
