// Package router decides the disposition of every camera frame: one-shot
// capture, decode dispatch or drop.
//
// This package is INTERNAL - clients use scansession.Session.
//
// Goroutine topology:
//   - N external: camera producer goroutines call Route (owned by the device adapter)
//   - 1 fixed: decode worker (spawned by New, exits after Close)
//   - 0-1 transient: capture goroutine per armed next-frame request
//
// Thread-safety: all methods are safe for concurrent use. No lock is held
// while the decoder, the encoder or a delegate runs.
package router

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/scansession/internal/encoder"
	"github.com/e7canasta/scansession/internal/types"
)

// Config wires a router to its collaborators.
type Config struct {
	// Decoder is required.
	Decoder types.Decoder
	// Encoder turns captured frames into images. Defaults to JPEG.
	Encoder types.FrameEncoder
	// Settings returns the decode policy snapshot for the frame being routed.
	// Required.
	Settings func() types.Settings
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Router routes frames from a camera to the decoder and to one-shot capture
// consumers.
type Router struct {
	decoder  types.Decoder
	encoder  types.FrameEncoder
	settings func() types.Settings
	logger   *slog.Logger

	// --- Dispatch state (mu) ---

	mu       sync.Mutex
	cond     *sync.Cond           // Signals the decode worker
	enabled  bool                 // Dispatch gate, mirrors the Active session state
	pending  *job                 // Single-slot mailbox (nil = empty)
	busy     bool                 // Decoder call in progress
	gen      uint64               // Bumped when in-flight decodes are abandoned
	epoch    uint64               // Bumped on Reset, invalidates captures
	capture  types.NextFrameDelegate
	delegate types.ResultDelegate
	closed   bool

	orientation atomic.Int32

	stats counters
	wg    sync.WaitGroup
}

// job is one dispatched decode.
type job struct {
	frame    *types.Frame
	settings types.Settings
	gen      uint64
}

// New creates a router and starts its decode worker. Dispatch is disabled
// until Enable is called.
func New(cfg Config) (*Router, error) {
	if cfg.Decoder == nil {
		return nil, errors.New("router: decoder is required")
	}
	if cfg.Settings == nil {
		return nil, errors.New("router: settings source is required")
	}
	if cfg.Encoder == nil {
		cfg.Encoder = encoder.NewJPEG(encoder.DefaultQuality)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Router{
		decoder:  cfg.Decoder,
		encoder:  cfg.Encoder,
		settings: cfg.Settings,
		logger:   cfg.Logger,
	}
	r.cond = sync.NewCond(&r.mu)

	r.wg.Add(1)
	go r.worker()

	return r, nil
}

// Route takes ownership of frame and decides its disposition, in order:
//  1. Armed next-frame request: retain and hand to a capture goroutine
//  2. Decode idle: retain and post to the worker mailbox
//  3. Otherwise drop
//
// The router's own hold is released before Route returns, so a frame that no
// path selected is freed immediately. Route never blocks on decoding.
func (r *Router) Route(frame *types.Frame) {
	r.stats.framesRouted.Add(1)
	frame.Orientation = types.Orientation(r.orientation.Load())
	settings := r.settings()

	r.mu.Lock()
	if !r.enabled || r.closed {
		r.mu.Unlock()
		r.stats.droppedInactive.Add(1)
		frame.Release()
		return
	}

	capture := r.capture
	epoch := r.epoch
	if capture != nil {
		r.capture = nil
		frame.Retain()
		r.wg.Add(1)
	}

	dispatch := !r.busy && r.pending == nil
	if dispatch {
		frame.Retain()
		r.pending = &job{frame: frame, settings: settings, gen: r.gen}
		r.cond.Signal()
	}
	r.mu.Unlock()

	if capture != nil {
		go r.deliverCapture(capture, frame, epoch)
	}

	if dispatch {
		r.stats.dispatched.Add(1)
	} else {
		r.stats.droppedBusy.Add(1)
		r.logger.Debug("router: decode in flight, frame dropped", "seq", frame.Seq)
	}

	frame.Release()
}

// Enable opens the dispatch gate.
func (r *Router) Enable() {
	r.mu.Lock()
	r.enabled = true
	r.mu.Unlock()
}

// Disable closes the dispatch gate and abandons any in-flight decode.
// Returns true if a decode was pending or running.
func (r *Router) Disable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enabled = false
	return r.abandonLocked()
}

func (r *Router) abandonLocked() bool {
	inFlight := r.busy || r.pending != nil
	r.gen++
	if r.pending != nil {
		r.pending.frame.Release()
		r.pending = nil
		r.stats.staleDiscarded.Add(1)
	}
	return inFlight
}

// Reset disables dispatch, abandons in-flight work, invalidates captures in
// progress and disarms the next-frame request.
func (r *Router) Reset() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enabled = false
	r.epoch++
	r.capture = nil
	return r.abandonLocked()
}

// ArmNextFrame registers d to receive the next routed frame. Arming again
// before a frame arrives replaces the previous delegate. A nil d disarms.
func (r *Router) ArmNextFrame(d types.NextFrameDelegate) {
	r.mu.Lock()
	r.capture = d
	r.mu.Unlock()
}

// NextFrameArmed reports whether a next-frame request is waiting for a frame.
func (r *Router) NextFrameArmed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capture != nil
}

// SetDelegate sets the receiver of decode results. The router only holds the
// reference.
func (r *Router) SetDelegate(d types.ResultDelegate) {
	r.mu.Lock()
	r.delegate = d
	r.mu.Unlock()
}

// SetOrientation sets the orientation stamped on routed frames.
func (r *Router) SetOrientation(o types.Orientation) {
	r.orientation.Store(int32(o))
}

// Close stops accepting frames and tells the worker to exit once the current
// decode returns. It does not wait; use Wait for that. Idempotent.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.enabled = false
	r.capture = nil
	r.abandonLocked()
	r.cond.Broadcast()
}

// Wait blocks until the worker and all capture goroutines have exited.
// Only meaningful after Close.
func (r *Router) Wait() {
	r.wg.Wait()
}

// worker is the decode goroutine. It consumes the single-slot mailbox and
// runs one decode at a time.
func (r *Router) worker() {
	defer r.wg.Done()

	for {
		r.mu.Lock()
		for r.pending == nil && !r.closed {
			r.cond.Wait()
		}
		if r.closed {
			r.mu.Unlock()
			return
		}
		j := r.pending
		r.pending = nil
		r.busy = true
		r.mu.Unlock()

		r.decode(j)

		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}
}

// decode runs the decoder on j with no lock held and delivers the result if
// the job is still current.
func (r *Router) decode(j *job) {
	frame := j.frame
	input := frame
	top := 0
	if err := frame.Validate(); err != nil {
		frame.Release()
		r.stats.decodeErrors.Add(1)
		r.logger.Warn("router: malformed frame dropped", "seq", frame.Seq, "trace_id", frame.TraceID, "error", err)
		return
	}
	if j.settings.RestrictedArea {
		var rows int
		top, rows = j.settings.Band(frame.Height)
		input = frame.Band(top, rows)
	}

	start := time.Now()
	result, err := r.decoder.Decode(input, j.settings)
	elapsed := time.Since(start)
	frame.Release()

	r.stats.decodes.Add(1)
	r.stats.lastDecodeNs.Store(int64(elapsed))

	if err != nil {
		r.stats.decodeErrors.Add(1)
		r.logger.Warn("router: decode failed", "seq", frame.Seq, "trace_id", frame.TraceID, "error", err)
		return
	}
	if result == nil {
		return
	}

	if result.Location != nil && top > 0 {
		loc := *result.Location
		loc.Y += top
		result.Location = &loc
	}
	result.FrameSeq = frame.Seq
	result.TraceID = frame.TraceID
	result.Facing = frame.Facing
	result.DecodedAt = time.Now()
	result.DecodeTime = elapsed

	r.mu.Lock()
	stale := j.gen != r.gen
	delegate := r.delegate
	r.mu.Unlock()

	if stale {
		r.stats.staleDiscarded.Add(1)
		r.logger.Debug("router: stale decode result discarded",
			"seq", frame.Seq,
			"trace_id", frame.TraceID,
			"symbology", result.Symbology,
		)
		return
	}

	r.stats.results.Add(1)
	r.logger.Debug("router: code decoded",
		"seq", frame.Seq,
		"trace_id", frame.TraceID,
		"symbology", result.Symbology,
		"latency", elapsed,
	)
	if delegate != nil {
		delegate.DidScan(result)
	}
}
