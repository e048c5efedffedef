package scansession

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/e7canasta/scansession/internal/retry"
	"github.com/e7canasta/scansession/internal/router"
	"github.com/e7canasta/scansession/internal/types"
	"github.com/e7canasta/scansession/internal/warmcache"
)

// Session is a camera scanning session: the lifecycle state machine over one
// camera device and the frame router feeding the decoder.
//
// Lifecycle:
//
//	Unprepared → Prepared → Active ⇄ Standby → Released
//
// Thread-safety: all methods are safe for concurrent use. Lifecycle calls
// serialize on one mutex; frame delivery and decoding never take it.
// Delegates are called without any session lock held and may call back into
// the session.
type Session struct {
	id     string
	dev    CameraDevice
	cache  *warmcache.Cache
	router *router.Router
	config *types.DecodeConfiguration
	logger *slog.Logger

	closeRetry retry.Config

	// --- Lifecycle state (mu) ---

	mu              sync.Mutex
	state           State
	facing          Facing
	handle          Handle // non-nil iff state.HoldsCamera()
	torchOn         bool
	standbyDisabled bool
	orientation     Orientation
	delegate        ResultDelegate // referenced, never owned
	err             error          // terminal hardware failure
	closed          bool
}

// Stats is a snapshot of session state and router counters.
type Stats struct {
	ID              string      `json:"id"`
	State           string      `json:"state"`
	Facing          string      `json:"facing"`
	TorchOn         bool        `json:"torch_on"`
	StandbyDisabled bool        `json:"standby_disabled"`
	Orientation     string      `json:"orientation"`
	NextFrameArmed  bool        `json:"next_frame_armed"`
	Error           string      `json:"error,omitempty"`
	Router          RouterStats `json:"router"`
}

// New creates an Unprepared session. No camera resource is touched until the
// session is started (or a torch or facing operation needs a handle).
//
// Fails fast:
//   - ErrNoDevice if dev is nil
//   - ErrMissingAppKey if appKey is empty
//   - ErrNoDecoder if no WithDecoder option is given
//   - ErrInvalidRange if WithSettings is out of bounds
func New(dev CameraDevice, appKey string, opts ...Option) (*Session, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	if appKey == "" {
		return nil, ErrMissingAppKey
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.decoder == nil {
		return nil, ErrNoDecoder
	}

	config := types.NewDecodeConfiguration()
	if o.settings != nil {
		if err := config.Apply(*o.settings); err != nil {
			return nil, fmt.Errorf("invalid decode settings: %w", err)
		}
	}

	id := uuid.New().String()
	logger := o.logger.With("session_id", id)

	r, err := router.New(router.Config{
		Decoder:  o.decoder,
		Encoder:  o.encoder,
		Settings: config.Snapshot,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	r.SetDelegate(o.delegate)

	s := &Session{
		id:         id,
		dev:        dev,
		cache:      o.cache,
		router:     r,
		config:     config,
		logger:     logger,
		closeRetry: o.closeRetry,
		state:      StateUnprepared,
		facing:     o.facing,
		delegate:   o.delegate,
	}

	s.closeRetry.Logger = s.logger

	s.logger.Info("scansession: session created", "facing", s.facing.String())
	return s, nil
}

// Init creates a session and prepares the camera for the preferred facing,
// reusing a warm handle parked by Prepare when one exists. The returned
// session is Prepared.
func Init(dev CameraDevice, appKey string, opts ...Option) (*Session, error) {
	s, err := New(dev, appKey, opts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	err = s.prepareLocked()
	s.mu.Unlock()

	if err != nil {
		s.router.Close()
		return nil, err
	}
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal hardware failure, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SetResultDelegate sets the receiver of decode results and cancel events.
// The session keeps only a reference. nil removes it.
func (s *Session) SetResultDelegate(d ResultDelegate) {
	s.mu.Lock()
	s.delegate = d
	s.mu.Unlock()
	s.router.SetDelegate(d)
}

// SendNextFrameToDelegate arms a one-shot capture: the next routed frame is
// encoded and handed to d exactly once. Scanning continues on the same frame.
// Arming again before a frame arrives replaces d. The request survives stop
// and start but is cleared by ForceRelease.
func (s *Session) SendNextFrameToDelegate(d NextFrameDelegate) {
	s.router.ArmNextFrame(d)
	s.logger.Debug("scansession: next frame requested", "armed", d != nil)
}

// SetPreviewOrientation sets the orientation stamped on routed frames.
func (s *Session) SetPreviewOrientation(o Orientation) {
	s.mu.Lock()
	s.orientation = o
	s.mu.Unlock()
	s.router.SetOrientation(o)
}

// PreviewOrientation returns the preview orientation.
func (s *Session) PreviewOrientation() Orientation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orientation
}

// Reset is kept for callers of the legacy API and does nothing.
//
// Deprecated: decode state is reset on every start.
func (s *Session) Reset() {}

// Stats returns a snapshot of the session and its router.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	st := Stats{
		ID:              s.id,
		State:           s.state.String(),
		Facing:          s.facing.String(),
		TorchOn:         s.torchOn,
		StandbyDisabled: s.standbyDisabled,
		Orientation:     s.orientation.String(),
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	s.mu.Unlock()

	st.NextFrameArmed = s.router.NextFrameArmed()
	st.Router = s.router.Stats()
	return st
}

// prepareLocked acquires a handle for s.facing if none is held: the warm
// cache first, then the device. Open failures other than an unsupported
// facing are terminal.
func (s *Session) prepareLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.err != nil {
		return s.err
	}
	if s.handle != nil {
		return nil
	}

	h, err := s.openLocked(s.facing)
	if err != nil {
		if errors.Is(err, ErrUnsupportedCapability) {
			return err
		}
		return s.failLocked(types.NewHardwareError(types.OpOpen, s.facing, err))
	}

	s.handle = h
	s.state = StatePrepared
	s.logger.Info("scansession: camera prepared", "facing", s.facing.String())
	return nil
}

// openLocked returns a handle for facing, from the warm cache when possible.
func (s *Session) openLocked(facing Facing) (Handle, error) {
	if !s.dev.Supports(facing) {
		return nil, fmt.Errorf("%s camera: %w", facing, ErrUnsupportedCapability)
	}
	if h, ok := s.cache.Take(s.dev, facing); ok {
		s.logger.Debug("scansession: using warm camera", "facing", facing.String())
		return h, nil
	}
	return s.dev.Open(facing)
}

// failLocked records a terminal hardware failure and releases everything.
func (s *Session) failLocked(err error) error {
	s.logger.Error("scansession: camera hardware failure",
		"facing", s.facing.String(),
		"state", s.state.String(),
		"error", err,
	)
	s.err = err
	s.releaseLocked()
	return err
}
