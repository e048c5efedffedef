package scansession

import (
	"context"

	"github.com/e7canasta/scansession/internal/retry"
	"github.com/e7canasta/scansession/internal/types"
)

// SupportsCameraFacing reports whether the device has a camera for f.
func (s *Session) SupportsCameraFacing(f Facing) bool {
	return s.dev.Supports(f)
}

// CameraFacing returns the current (or preferred, when no camera is held)
// facing.
func (s *Session) CameraFacing() Facing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

// ChangeToCameraFacing rebuilds the camera for f, preserving the lifecycle
// state, the active flag and the torch request.
//
//   - Unsupported facing: (false, nil), nothing changes
//   - Same facing: (true, nil)
//   - Unprepared or Released: only the preferred facing changes
//   - Otherwise the old handle is closed (one retry on failure) and f is
//     opened. A decode in flight is abandoned and reported to the result
//     delegate as DecodeCancelled(CancelFacingSwitch).
//
// Hardware failures are terminal and returned as (false, *HardwareError).
func (s *Session) ChangeToCameraFacing(f Facing) (bool, error) {
	ok, cancelled, delegate, err := s.changeFacing(f)
	if cancelled && delegate != nil {
		delegate.DecodeCancelled(CancelFacingSwitch)
	}
	return ok, err
}

// SwitchCameraFacing toggles between back and front.
func (s *Session) SwitchCameraFacing() (bool, error) {
	return s.ChangeToCameraFacing(s.CameraFacing().Opposite())
}

// changeFacing runs the switch under s.mu and reports whether an in-flight
// decode was abandoned, so the caller can notify the delegate unlocked.
func (s *Session) changeFacing(f Facing) (ok, cancelled bool, delegate ResultDelegate, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, false, nil, ErrClosed
	}
	if s.err != nil {
		return false, false, nil, s.err
	}
	if !s.dev.Supports(f) {
		s.logger.Warn("scansession: camera facing not supported", "facing", f.String())
		return false, false, nil, nil
	}
	if f == s.facing {
		return true, false, nil, nil
	}
	if s.handle == nil {
		s.facing = f
		s.logger.Info("scansession: preferred facing changed", "facing", f.String())
		return true, false, nil, nil
	}

	delegate = s.delegate
	wasActive := s.state == StateActive
	state := s.state
	torch := s.torchOn
	old := s.handle
	from := s.facing

	if wasActive {
		cancelled = s.router.Disable()
		if err := s.dev.StopStreaming(old); err != nil {
			return false, cancelled, delegate,
				s.failLocked(types.NewHardwareError(types.OpStopStream, from, err))
		}
	}
	if torch {
		s.dev.SetTorch(old, false)
	}

	closeErr := retry.Do(context.Background(), "close camera", s.closeRetry, func(ctx context.Context) error {
		return s.dev.Close(old)
	})
	if closeErr != nil {
		s.handle = nil
		return false, cancelled, delegate,
			s.failLocked(types.NewHardwareError(types.OpClose, from, closeErr))
	}
	s.handle = nil
	s.torchOn = false

	h, err := s.openLocked(f)
	if err != nil {
		return false, cancelled, delegate,
			s.failLocked(types.NewHardwareError(types.OpOpen, f, err))
	}
	s.handle = h
	s.facing = f
	s.state = state

	if wasActive {
		s.router.Enable()
		if err := s.dev.StartStreaming(h, s.router.Route); err != nil {
			s.router.Disable()
			s.state = StatePrepared
			return false, cancelled, delegate,
				s.failLocked(types.NewHardwareError(types.OpStream, f, err))
		}
	}
	if torch {
		s.torchOn = s.dev.SetTorch(h, true)
	}

	s.logger.Info("scansession: camera facing changed",
		"from", from.String(),
		"to", f.String(),
		"state", s.state.String(),
		"torch", s.torchOn,
		"decode_cancelled", cancelled,
	)
	return true, cancelled, delegate, nil
}

// SwitchTorchOn turns the torch on or off. Returns false, leaving the torch
// state unchanged, when the device has no torch or the camera was released.
// In the Unprepared state the camera is opened first.
func (s *Session) SwitchTorchOn(on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.err != nil || s.state == StateReleased {
		return false
	}
	if s.handle == nil {
		if err := s.prepareLocked(); err != nil {
			return false
		}
	}
	if !s.dev.SetTorch(s.handle, on) {
		s.logger.Warn("scansession: torch not available", "facing", s.facing.String())
		return false
	}
	s.torchOn = on
	return true
}

// TorchOn reports the torch state.
func (s *Session) TorchOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.torchOn
}
