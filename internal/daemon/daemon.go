// Package daemon wires a scan session to its outer surfaces: the MQTT
// emitter and control plane, and the HTTP status server.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	scansession "github.com/e7canasta/scansession"
	"github.com/e7canasta/scansession/internal/config"
	"github.com/e7canasta/scansession/internal/control"
	"github.com/e7canasta/scansession/internal/decoder/marker"
	"github.com/e7canasta/scansession/internal/emitter"
	"github.com/e7canasta/scansession/internal/encoder"
	"github.com/e7canasta/scansession/internal/health"
	"github.com/e7canasta/scansession/internal/types"
)

// Daemon is the scand service orchestrator
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	// Core components
	dev      types.CameraDevice
	cache    *scansession.WarmCache
	encoder  *encoder.Encoder
	session  *scansession.Session
	emitter  *emitter.MQTTEmitter // nil when no broker is configured
	control  *control.Handler
	health   *health.Server
	statsLog time.Duration

	// Lifecycle management
	started   time.Time
	mu        sync.RWMutex
	wg        sync.WaitGroup
	isRunning bool
	isReady   bool // startup finished
	cancelCtx context.CancelFunc // For MQTT shutdown command
}

// New builds the session for dev from cfg. With camera.prewarm the camera is
// opened before the session is created so the first start skips the open.
func New(cfg *config.Config, dev types.CameraDevice, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	settings, err := cfg.Decode.Settings()
	if err != nil {
		return nil, fmt.Errorf("invalid decode settings: %w", err)
	}
	enc, err := encoder.New(cfg.Capture.Format, cfg.Capture.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		dev:      dev,
		cache:    scansession.NewWarmCache(logger),
		encoder:  enc,
		statsLog: 30 * time.Second,
	}

	facing := cfg.Camera.StartFacing()
	if cfg.Camera.Prewarm {
		if err := d.cache.Prepare(dev, facing); err != nil {
			return nil, fmt.Errorf("failed to prewarm camera: %w", err)
		}
		logger.Info("daemon: camera prewarmed", "facing", facing.String())
	}

	opts := []scansession.Option{
		scansession.WithLogger(logger),
		scansession.WithFacing(facing),
		scansession.WithDecoder(marker.New()),
		scansession.WithEncoder(enc),
		scansession.WithSettings(settings),
		scansession.WithWarmCache(d.cache),
	}

	if cfg.Camera.Prewarm {
		d.session, err = scansession.Init(dev, cfg.AppKey, opts...)
	} else {
		d.session, err = scansession.New(dev, cfg.AppKey, opts...)
	}
	if err != nil {
		d.cache.Invalidate()
		return nil, fmt.Errorf("failed to create scan session: %w", err)
	}

	d.session.SetPreviewOrientation(cfg.Session.Orientation())
	if cfg.Session.StandbyDisabled {
		d.session.DisableStandbyState()
	}

	if cfg.MQTT.Broker != "" {
		d.emitter, err = emitter.NewMQTTEmitter(cfg, d.session.ID(), logger)
		if err != nil {
			_ = d.session.Close()
			d.cache.Invalidate()
			return nil, fmt.Errorf("failed to create emitter: %w", err)
		}
		d.session.SetResultDelegate(d.emitter)
	} else {
		logger.Warn("daemon: no mqtt broker configured, results are not published")
	}

	if cfg.HTTP.Port > 0 {
		d.health = health.New(fmt.Sprintf(":%d", cfg.HTTP.Port), d, logger)
	}

	logger.Info("daemon: configured",
		"instance_id", cfg.InstanceID,
		"session_id", d.session.ID(),
		"driver", cfg.Camera.Driver,
		"facing", facing.String(),
		"mqtt", cfg.MQTT.Broker != "",
	)
	return d, nil
}

// Session returns the scan session.
func (d *Daemon) Session() *scansession.Session { return d.session }

// Run starts the outer surfaces and blocks until ctx is cancelled or a
// shutdown command arrives.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return fmt.Errorf("service is already running")
	}
	d.isRunning = true
	d.started = time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.cancelCtx = cancel
	d.mu.Unlock()

	d.logger.Info("daemon: starting", "instance_id", d.cfg.InstanceID)

	if d.health != nil {
		if err := d.health.Start(); err != nil {
			return err
		}
	}

	if d.emitter != nil {
		if err := d.emitter.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect mqtt: %w", err)
		}

		d.control = control.NewHandler(d.cfg, d.emitter.Client, d.session, control.Callbacks{
			OnGetStatus: d.getStatus,
			OnShutdown:  d.shutdownViaControl,
			Capture:     d.emitter,
		}, d.logger)
		if err := d.control.Start(ctx); err != nil {
			return fmt.Errorf("failed to start control plane: %w", err)
		}
	}

	if d.cfg.Session.ShouldAutoStart() {
		if err := d.session.StartScanning(); err != nil {
			return fmt.Errorf("failed to start scanning: %w", err)
		}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.logStats(ctx)
	}()

	d.mu.Lock()
	d.isReady = true
	d.mu.Unlock()

	d.logger.Info("daemon: running",
		"scanning", d.session.IsScanning(),
		"state", d.session.State().String(),
	)

	<-ctx.Done()

	d.logger.Info("daemon: run loop exiting")
	return nil
}

// Shutdown performs graceful shutdown of all components. The session is
// closed and every warm handle released, so the camera is free afterwards.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	if d.cancelCtx != nil {
		d.cancelCtx()
	}
	d.mu.Unlock()

	d.logger.Info("daemon: shutting down")

	// 1. Stop accepting commands
	if d.control != nil {
		if err := d.control.Stop(); err != nil {
			d.logger.Error("daemon: failed to stop control handler", "error", err)
		}
	}

	// 2. Close the session, then release anything it parked
	if err := d.session.Close(); err != nil {
		d.logger.Error("daemon: failed to close session", "error", err)
	}
	d.cache.Invalidate()

	// 3. Wait for goroutines to finish
	d.wg.Wait()

	// 4. Disconnect MQTT
	if d.emitter != nil {
		if err := d.emitter.Disconnect(); err != nil {
			d.logger.Error("daemon: failed to disconnect mqtt", "error", err)
		}
	}

	// 5. Status server last, so readiness reports the shutdown
	var err error
	if d.health != nil {
		err = d.health.Shutdown(ctx)
	}

	d.mu.Lock()
	uptime := time.Since(d.started)
	d.isRunning = false
	d.isReady = false
	d.mu.Unlock()

	d.logger.Info("daemon: shutdown complete", "uptime", uptime)
	return err
}

// ShutdownTimeout returns the configured graceful shutdown timeout
func (d *Daemon) ShutdownTimeout() time.Duration {
	timeout := time.Duration(d.cfg.ShutdownTimeoutS) * time.Second
	if timeout == 0 {
		return 5 * time.Second
	}
	return timeout
}

// logStats periodically logs session counters
func (d *Daemon) logStats(ctx context.Context) {
	ticker := time.NewTicker(d.statsLog)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := d.session.Stats()
			d.logger.Info("daemon: session stats",
				"state", st.State,
				"frames", st.Router.FramesRouted,
				"decodes", st.Router.Decodes,
				"results", st.Router.Results,
				"dropped_busy", st.Router.DroppedBusy,
				"stale", st.Router.StaleDiscarded,
			)
		}
	}
}
