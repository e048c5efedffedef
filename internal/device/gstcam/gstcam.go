//go:build gst

package gstcam

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/scansession/internal/types"
)

// ErrClosedHandle is returned for operations on a closed handle.
var ErrClosedHandle = errors.New("gstcam: handle closed")

// Config describes the cameras.
type Config struct {
	// Devices maps each available facing to a device node (/dev/videoN).
	Devices map[types.Facing]string
	// Source is the GStreamer source element. Defaults to v4l2src.
	Source string
	Width  int
	Height int
	FPS    float64
	Logger *slog.Logger
}

// Stats contains adapter counters.
type Stats struct {
	Frames        uint64            `json:"frames"`
	EmptyBuffers  uint64            `json:"empty_buffers"`
	PipelineError map[string]uint64 `json:"pipeline_errors"`
}

// Camera is a GStreamer CameraDevice.
type Camera struct {
	cfg    Config
	logger *slog.Logger
	pool   sync.Pool

	mu   sync.Mutex
	open map[types.Facing]*handle

	seq          atomic.Uint64
	emptyBuffers atomic.Uint64
	errCounts    [ErrCategoryUnknown + 1]atomic.Uint64
}

// New validates cfg and returns a camera. No device is touched.
func New(cfg Config) (*Camera, error) {
	if len(cfg.Devices) == 0 {
		return nil, fmt.Errorf("gstcam: at least one device is required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("gstcam: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 || cfg.FPS > 240 {
		return nil, fmt.Errorf("gstcam: fps must be in range (0, 240], got %v", cfg.FPS)
	}
	if cfg.Source == "" {
		cfg.Source = "v4l2src"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Camera{
		cfg:    cfg,
		logger: cfg.Logger,
		open:   make(map[types.Facing]*handle),
	}
	c.pool.New = func() any {
		b := make([]byte, 0, cfg.Width*cfg.Height)
		return &b
	}
	return c, nil
}

// Supports reports whether a device is configured for facing.
func (c *Camera) Supports(facing types.Facing) bool {
	_, ok := c.cfg.Devices[facing]
	return ok
}

// Open builds the pipeline for facing and moves it to READY.
func (c *Camera) Open(facing types.Facing) (types.Handle, error) {
	device, ok := c.cfg.Devices[facing]
	if !ok {
		return nil, fmt.Errorf("gstcam: %s camera: %w", facing, types.ErrUnsupportedCapability)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.open[facing]; busy {
		return nil, fmt.Errorf("gstcam: %s camera already open", facing)
	}

	elements, err := createPipeline(pipelineConfig{
		Source: c.cfg.Source,
		Device: device,
		Width:  c.cfg.Width,
		Height: c.cfg.Height,
		FPS:    c.cfg.FPS,
	}, c.logger)
	if err != nil {
		return nil, err
	}
	if err := elements.Pipeline.SetState(gst.StateReady); err != nil {
		_ = destroyPipeline(elements)
		return nil, fmt.Errorf("gstcam: open %s: %w", device, err)
	}

	h := &handle{facing: facing, device: device, elements: elements}
	c.open[facing] = h
	c.logger.Info("gstcam: camera opened", "facing", facing.String(), "device", device)
	return h, nil
}

// Close stops streaming if needed and releases the device.
func (c *Camera) Close(th types.Handle) error {
	h, err := c.own(th)
	if err != nil {
		return err
	}
	if err := c.StopStreaming(h); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if h.closed {
		return nil
	}
	if err := destroyPipeline(h.elements); err != nil {
		return err
	}
	h.cbMu.Lock()
	h.closed = true
	h.cbMu.Unlock()
	delete(c.open, h.facing)
	c.logger.Info("gstcam: camera closed", "facing", h.facing.String(), "device", h.device)
	return nil
}

// StartStreaming installs the appsink callback and moves to PLAYING.
func (c *Camera) StartStreaming(th types.Handle, onFrame types.FrameFunc) error {
	h, err := c.own(th)
	if err != nil {
		return err
	}

	h.cbMu.Lock()
	if h.closed {
		h.cbMu.Unlock()
		return ErrClosedHandle
	}
	if h.onFrame != nil {
		h.cbMu.Unlock()
		return nil
	}
	h.onFrame = onFrame
	h.cbMu.Unlock()

	h.elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return c.onNewSample(h, sink)
		},
	})

	if err := h.elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		h.cbMu.Lock()
		h.onFrame = nil
		h.cbMu.Unlock()
		return fmt.Errorf("gstcam: start %s: %w", h.device, err)
	}

	h.stopCh = make(chan struct{})
	h.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer h.wg.Done()
		c.monitorBus(h, stop)
	}(h.stopCh)

	c.logger.Info("gstcam: streaming started", "facing", h.facing.String())
	return nil
}

// StopStreaming moves back to READY and waits for the last callback.
func (c *Camera) StopStreaming(th types.Handle) error {
	h, err := c.own(th)
	if err != nil {
		return err
	}

	h.cbMu.Lock()
	streaming := h.onFrame != nil
	h.onFrame = nil
	h.cbMu.Unlock()
	if !streaming {
		return nil
	}

	close(h.stopCh)
	h.wg.Wait()

	if err := h.elements.Pipeline.SetState(gst.StateReady); err != nil {
		return fmt.Errorf("gstcam: stop %s: %w", h.device, err)
	}
	c.logger.Info("gstcam: streaming stopped", "facing", h.facing.String())
	return nil
}

// SetTorch always returns false: V4L2 exposes no torch control.
func (c *Camera) SetTorch(types.Handle, bool) bool { return false }

// Stats returns adapter counters.
func (c *Camera) Stats() Stats {
	errs := make(map[string]uint64)
	for cat := ErrCategoryDevice; cat <= ErrCategoryUnknown; cat++ {
		if n := c.errCounts[cat].Load(); n > 0 {
			errs[cat.String()] = n
		}
	}
	return Stats{
		Frames:        c.seq.Load(),
		EmptyBuffers:  c.emptyBuffers.Load(),
		PipelineError: errs,
	}
}

func (c *Camera) own(th types.Handle) (*handle, error) {
	h, ok := th.(*handle)
	if !ok || h == nil {
		return nil, fmt.Errorf("gstcam: foreign handle %T", th)
	}
	return h, nil
}

// onNewSample copies the GRAY8 buffer into a pooled frame and delivers it.
func (c *Camera) onNewSample(h *handle, sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		c.emptyBuffers.Add(1)
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		c.emptyBuffers.Add(1)
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		c.emptyBuffers.Add(1)
		return gst.FlowOK
	}

	buf := c.pool.Get().(*[]byte)
	if cap(*buf) < len(data) {
		*buf = make([]byte, len(data))
	}
	*buf = (*buf)[:len(data)]
	copy(*buf, data)
	buffer.Unmap()

	w, ht := c.cfg.Width, c.cfg.Height
	frame := &types.Frame{
		Seq:       c.seq.Add(1),
		Timestamp: time.Now(),
		Width:     w,
		Height:    ht,
		Stride:    rowStride(len(*buf), w, ht),
		Format:    types.FormatGray8,
		Data:      *buf,
		Facing:    h.facing,
		Region:    types.Rect{Width: w, Height: ht},
		TraceID:   uuid.New().String(),
	}
	frame.SetReleaseHook(func() { c.pool.Put(buf) })

	h.cbMu.RLock()
	onFrame := h.onFrame
	if onFrame == nil {
		h.cbMu.RUnlock()
		frame.Release()
		return gst.FlowOK
	}
	onFrame(frame)
	h.cbMu.RUnlock()
	return gst.FlowOK
}

// monitorBus logs and counts pipeline errors until stop is closed.
func (c *Camera) monitorBus(h *handle, stop <-chan struct{}) {
	bus := h.elements.Pipeline.GetPipelineBus()
	for {
		select {
		case <-stop:
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			c.logger.Warn("gstcam: end of stream", "facing", h.facing.String(), "device", h.device)
		case gst.MessageError:
			gerr := msg.ParseError()
			category := classifyError(gerr.Error(), gerr.DebugString())
			c.errCounts[category].Add(1)
			c.logger.Error("gstcam: pipeline error",
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"category", category.String(),
				"facing", h.facing.String(),
				"device", h.device,
			)
		}
	}
}

// handle is one open camera pipeline.
type handle struct {
	facing   types.Facing
	device   string
	elements *pipelineElements
	closed   bool

	cbMu    sync.RWMutex
	onFrame types.FrameFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Facing implements types.Handle.
func (h *handle) Facing() types.Facing { return h.facing }
