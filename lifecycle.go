package scansession

import (
	"github.com/e7canasta/scansession/internal/types"
)

// StartScanning starts streaming and enables decode dispatch.
//
// From Prepared or Standby the held handle is used. From Unprepared or
// Released the camera is opened first. No-op when already Active.
//
// Returns the terminal hardware error if one was recorded, ErrClosed after
// Close, or a *HardwareError if the camera fails to open or stream.
func (s *Session) StartScanning() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateActive {
		return nil
	}
	if err := s.prepareLocked(); err != nil {
		return err
	}

	s.router.Enable()
	if err := s.dev.StartStreaming(s.handle, s.router.Route); err != nil {
		s.router.Disable()
		return s.failLocked(types.NewHardwareError(types.OpStream, s.facing, err))
	}

	prev := s.state
	s.state = StateActive
	s.logger.Info("scansession: scanning started",
		"facing", s.facing.String(),
		"from", prev.String(),
		"torch", s.torchOn,
	)
	return nil
}

// StopScanning halts streaming and turns the torch off, keeping the camera
// open in Standby. With standby disabled it releases the camera instead.
// No-op unless Active.
func (s *Session) StopScanning() error {
	return s.stop(false)
}

// StopScanningAndKeepTorchState is StopScanning without touching the torch.
// With standby disabled the camera is released and the torch goes off with
// it.
func (s *Session) StopScanningAndKeepTorchState() error {
	return s.stop(true)
}

func (s *Session) stop(keepTorch bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil
	}
	if s.standbyDisabled {
		s.logger.Info("scansession: standby disabled, releasing camera")
		s.releaseLocked()
		s.cache.InvalidateDevice(s.dev)
		return nil
	}

	s.router.Disable()
	if err := s.dev.StopStreaming(s.handle); err != nil {
		return s.failLocked(types.NewHardwareError(types.OpStopStream, s.facing, err))
	}
	if !keepTorch {
		if s.torchOn {
			s.dev.SetTorch(s.handle, false)
		}
		s.torchOn = false
	}

	s.state = StateStandby
	s.logger.Info("scansession: scanning stopped", "keep_torch", keepTorch, "torch", s.torchOn)
	return nil
}

// IsScanning reports whether the session is Active.
func (s *Session) IsScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateActive
}

// ForceRelease releases the camera and every frame buffer from any state,
// regardless of standby. A decode in flight is marked stale and its result
// is never delivered; the next-frame request is cleared; warm handles of
// this device are closed. A later StartScanning reopens the camera.
func (s *Session) ForceRelease() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseLocked()
	s.cache.InvalidateDevice(s.dev)
	s.logger.Info("scansession: camera force released")
}

// DisableStandbyState makes later stops release the camera instead of
// keeping it warm.
func (s *Session) DisableStandbyState() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.standbyDisabled = true
	s.logger.Info("scansession: standby disabled")
}

// Close ends the session. The camera is parked in the warm cache for the
// next session, or released when standby is disabled. After Close every
// lifecycle call returns ErrClosed. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	var err error
	if s.standbyDisabled || s.handle == nil {
		s.releaseLocked()
	} else {
		err = s.parkLocked()
	}

	s.closed = true
	s.router.Close()
	s.logger.Info("scansession: session closed")
	return err
}

// parkLocked stops streaming and hands the handle to the warm cache.
func (s *Session) parkLocked() error {
	s.router.Reset()
	h := s.handle
	if s.state == StateActive {
		if err := s.dev.StopStreaming(h); err != nil {
			hw := types.NewHardwareError(types.OpStopStream, s.facing, err)
			s.releaseLocked()
			return hw
		}
	}
	if s.torchOn {
		s.dev.SetTorch(h, false)
	}

	s.cache.Park(s.dev, h)
	s.handle = nil
	s.torchOn = false
	s.state = StateReleased
	s.logger.Debug("scansession: camera parked", "facing", s.facing.String())
	return nil
}

// releaseLocked closes the handle and marks every in-flight result stale.
// Failures are logged, never returned: release always completes.
func (s *Session) releaseLocked() {
	s.router.Reset()

	if h := s.handle; h != nil {
		if s.state == StateActive {
			if err := s.dev.StopStreaming(h); err != nil {
				s.logger.Warn("scansession: stop streaming failed during release", "error", err)
			}
		}
		if s.torchOn {
			s.dev.SetTorch(h, false)
		}
		if err := s.dev.Close(h); err != nil {
			s.logger.Warn("scansession: camera close failed during release", "error", err)
		}
	}

	s.handle = nil
	s.torchOn = false
	s.state = StateReleased
}
