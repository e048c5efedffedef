// Package simcam is a synthetic camera device.
//
// Frames are generated on a ticker (FPS > 0) or injected with Emit. They carry
// a luminance gradient and, when a payload is set, a marker code that the
// marker decoder recognizes. Frame buffers are pooled and returned when the
// router releases the frame, so Outstanding reports leaked frames.
//
// The device enforces exclusive access per facing, like a real camera: a
// facing that is already open cannot be opened again until closed.
package simcam

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/scansession/internal/decoder/marker"
	"github.com/e7canasta/scansession/internal/types"
)

// ErrCameraInUse is returned by Open when the facing is already open.
var ErrCameraInUse = errors.New("simcam: camera in use")

// ErrClosedHandle is returned for operations on a closed handle.
var ErrClosedHandle = errors.New("simcam: handle closed")

// Config describes the simulated hardware.
type Config struct {
	Width  int
	Height int
	// FPS drives the frame generator. 0 disables it (manual Emit only).
	FPS int
	// Facings lists the available cameras. Defaults to back and front.
	Facings []types.Facing
	// Torch reports whether a torch is available.
	Torch bool
	// Format is the pixel format produced. Defaults to GRAY8.
	Format types.PixelFormat
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Payload is the code drawn into generated frames.
type Payload struct {
	Symbology types.Symbology
	Data      []byte
	Flags     byte
	// Row is the vertical position, relative to the frame height.
	Row float64
}

// Camera is a simulated CameraDevice.
type Camera struct {
	cfg    Config
	logger *slog.Logger
	pool   sync.Pool

	mu       sync.Mutex
	open     map[types.Facing]*handle
	faults   map[types.HardwareOp]fault
	payload  *Payload
	nextID   uint64
	torchOps int

	seq         atomic.Uint64
	outstanding atomic.Int64
	opens       atomic.Uint64
	closes      atomic.Uint64
}

type fault struct {
	err   error
	times int
}

// New validates cfg and returns a camera.
func New(cfg Config) (*Camera, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("simcam: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS < 0 || cfg.FPS > 240 {
		return nil, fmt.Errorf("simcam: fps must be in range [0, 240], got %d", cfg.FPS)
	}
	if cfg.Format == types.FormatNV21 && cfg.Width%2 != 0 {
		return nil, fmt.Errorf("simcam: NV21 width must be even, got %d", cfg.Width)
	}
	if len(cfg.Facings) == 0 {
		cfg.Facings = []types.Facing{types.FacingBack, types.FacingFront}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Camera{
		cfg:    cfg,
		logger: cfg.Logger,
		open:   make(map[types.Facing]*handle),
		faults: make(map[types.HardwareOp]fault),
	}
	size := c.frameSize()
	c.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return c, nil
}

func (c *Camera) frameSize() int {
	size := c.cfg.Width * c.cfg.Height * c.cfg.Format.BytesPerPixel()
	if c.cfg.Format == types.FormatNV21 {
		size += c.cfg.Width * ((c.cfg.Height + 1) / 2)
	}
	return size
}

// Supports implements types.CameraDevice.
func (c *Camera) Supports(facing types.Facing) bool {
	for _, f := range c.cfg.Facings {
		if f == facing {
			return true
		}
	}
	return false
}

// Open implements types.CameraDevice.
func (c *Camera) Open(facing types.Facing) (types.Handle, error) {
	if !c.Supports(facing) {
		return nil, fmt.Errorf("simcam: %s camera: %w", facing, types.ErrUnsupportedCapability)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.takeFaultLocked(types.OpOpen); err != nil {
		return nil, err
	}
	if _, busy := c.open[facing]; busy {
		return nil, fmt.Errorf("%w: %s", ErrCameraInUse, facing)
	}

	c.nextID++
	h := &handle{id: c.nextID, facing: facing, cam: c}
	c.open[facing] = h
	c.opens.Add(1)

	c.logger.Debug("simcam: camera opened", "facing", facing.String(), "handle", h.id)
	return h, nil
}

// Close implements types.CameraDevice. Closing a streaming handle stops it
// first.
func (c *Camera) Close(th types.Handle) error {
	h, err := c.own(th)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.takeFaultLocked(types.OpClose); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	h.stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if c.open[h.facing] == h {
		delete(c.open, h.facing)
	}
	c.closes.Add(1)

	c.logger.Debug("simcam: camera closed", "facing", h.facing.String(), "handle", h.id)
	return nil
}

// StartStreaming implements types.CameraDevice.
func (c *Camera) StartStreaming(th types.Handle, onFrame types.FrameFunc) error {
	h, err := c.own(th)
	if err != nil {
		return err
	}
	if onFrame == nil {
		return errors.New("simcam: frame callback is required")
	}

	c.mu.Lock()
	if h.closed {
		c.mu.Unlock()
		return ErrClosedHandle
	}
	if err := c.takeFaultLocked(types.OpStream); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	h.cbMu.Lock()
	defer h.cbMu.Unlock()
	if h.onFrame != nil {
		return nil
	}
	h.onFrame = onFrame

	if c.cfg.FPS > 0 {
		h.stopCh = make(chan struct{})
		h.wg.Add(1)
		go c.generate(h, h.stopCh)
	}

	c.logger.Debug("simcam: streaming started", "facing", h.facing.String(), "fps", c.cfg.FPS)
	return nil
}

// StopStreaming implements types.CameraDevice. It returns after the last
// frame callback for h has returned.
func (c *Camera) StopStreaming(th types.Handle) error {
	h, err := c.own(th)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.takeFaultLocked(types.OpStopStream); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	h.stop()
	return nil
}

// SetTorch implements types.CameraDevice.
func (c *Camera) SetTorch(th types.Handle, on bool) bool {
	h, err := c.own(th)
	if err != nil || !c.cfg.Torch {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if h.closed {
		return false
	}
	h.torch = on
	c.torchOps++
	return true
}

// Emit synthesizes one frame and delivers it to every streaming handle.
// Returns the number of handles that received a frame.
func (c *Camera) Emit() int {
	c.mu.Lock()
	handles := make([]*handle, 0, len(c.open))
	for _, h := range c.open {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	n := 0
	for _, h := range handles {
		if c.deliver(h) {
			n++
		}
	}
	return n
}

// SetPayload sets the code drawn into generated frames. nil removes it.
func (c *Camera) SetPayload(p *Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == nil {
		c.payload = nil
		return
	}
	cp := *p
	cp.Data = append([]byte(nil), p.Data...)
	c.payload = &cp
}

// FailNext makes the next times calls of op fail with err.
func (c *Camera) FailNext(op types.HardwareOp, err error, times int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults[op] = fault{err: err, times: times}
}

// OpenFacings returns the facings currently open.
func (c *Camera) OpenFacings() []types.Facing {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Facing, 0, len(c.open))
	for f := range c.open {
		out = append(out, f)
	}
	return out
}

// Streaming reports whether the handle open for facing is streaming.
func (c *Camera) Streaming(facing types.Facing) bool {
	c.mu.Lock()
	h := c.open[facing]
	c.mu.Unlock()
	if h == nil {
		return false
	}
	h.cbMu.Lock()
	defer h.cbMu.Unlock()
	return h.onFrame != nil
}

// Torch reports the torch state of the handle open for facing.
func (c *Camera) Torch(facing types.Facing) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.open[facing]
	return h != nil && h.torch
}

// Outstanding returns the number of generated frames not yet released.
func (c *Camera) Outstanding() int64 {
	return c.outstanding.Load()
}

// Counts returns the number of successful opens and closes.
func (c *Camera) Counts() (opens, closes uint64) {
	return c.opens.Load(), c.closes.Load()
}

func (c *Camera) own(th types.Handle) (*handle, error) {
	h, ok := th.(*handle)
	if !ok || h == nil || h.cam != c {
		return nil, fmt.Errorf("simcam: foreign handle %T", th)
	}
	return h, nil
}

func (c *Camera) takeFaultLocked(op types.HardwareOp) error {
	f, ok := c.faults[op]
	if !ok {
		return nil
	}
	f.times--
	if f.times <= 0 {
		delete(c.faults, op)
	} else {
		c.faults[op] = f
	}
	return f.err
}

// generate is the producer goroutine of one streaming handle.
func (c *Camera) generate(h *handle, stop <-chan struct{}) {
	defer h.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(c.cfg.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.deliver(h)
		}
	}
}

// deliver builds a frame and hands it to the handle's callback. The callback
// runs under h.cbMu so that StopStreaming waits for it.
func (c *Camera) deliver(h *handle) bool {
	h.cbMu.Lock()
	defer h.cbMu.Unlock()

	if h.onFrame == nil {
		return false
	}
	h.onFrame(c.newFrame(h.facing))
	return true
}

func (c *Camera) newFrame(facing types.Facing) *types.Frame {
	buf := c.pool.Get().(*[]byte)
	data := *buf

	w, h := c.cfg.Width, c.cfg.Height
	bpp := c.cfg.Format.BytesPerPixel()
	seq := c.seq.Add(1)
	for y := 0; y < h; y++ {
		v := byte((y*255)/max(h-1, 1)) & 0x7F
		row := data[y*w*bpp : (y+1)*w*bpp]
		for i := range row {
			row[i] = v
		}
	}
	if c.cfg.Format == types.FormatNV21 {
		chroma := data[w*h:]
		for i := range chroma {
			chroma[i] = 128
		}
	}

	frame := &types.Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     w,
		Height:    h,
		Format:    c.cfg.Format,
		Data:      data,
		Facing:    facing,
		Region:    types.Rect{Width: w, Height: h},
		TraceID:   uuid.New().String(),
	}

	c.mu.Lock()
	p := c.payload
	c.mu.Unlock()
	if p != nil {
		row := int(p.Row * float64(h))
		if row >= h {
			row = h - 1
		}
		if err := marker.Embed(frame, row, p.Symbology, p.Flags, p.Data); err != nil {
			c.logger.Warn("simcam: payload not embedded", "error", err)
		}
	}

	c.outstanding.Add(1)
	frame.SetReleaseHook(func() {
		c.outstanding.Add(-1)
		c.pool.Put(buf)
	})
	return frame
}

// handle is one open camera.
type handle struct {
	id     uint64
	facing types.Facing
	cam    *Camera

	// guarded by cam.mu
	closed bool
	torch  bool

	// cbMu serializes frame callbacks with StopStreaming
	cbMu    sync.Mutex
	onFrame types.FrameFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func (h *handle) Facing() types.Facing { return h.facing }

// stop halts the generator and waits for the last callback. Idempotent.
func (h *handle) stop() {
	h.cbMu.Lock()
	stopCh := h.stopCh
	h.stopCh = nil
	h.onFrame = nil
	h.cbMu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	h.wg.Wait()
}
