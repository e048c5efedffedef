package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/e7canasta/scansession/internal/config"
	"github.com/e7canasta/scansession/internal/device/simcam"
	"github.com/e7canasta/scansession/internal/health"
	"github.com/e7canasta/scansession/internal/types"
)

const baseConfig = `
instance_id: dock-1
app_key: test-key
camera:
  driver: sim
  width: 64
  height: 48
http:
  port: -1
`

func loadConfig(t *testing.T, doc string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("config.Parse() error = %v", err)
	}
	return cfg
}

func newCamera(t *testing.T) *simcam.Camera {
	t.Helper()
	cam, err := simcam.New(simcam.Config{Width: 64, Height: 48})
	if err != nil {
		t.Fatalf("simcam.New() error = %v", err)
	}
	return cam
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// start runs d in a goroutine and returns a channel with Run's result.
func start(t *testing.T, d *Daemon) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(context.Background()) }()
	eventually(t, "daemon running", func() bool {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return d.isReady
	})
	return errCh
}

func shutdown(t *testing.T, d *Daemon, errCh <-chan error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestDaemon_RunAndShutdown(t *testing.T) {
	cam := newCamera(t)
	d, err := New(loadConfig(t, baseConfig), cam, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := d.Session().State(); got != types.StateUnprepared {
		t.Errorf("state before Run = %s, want Unprepared", got)
	}

	errCh := start(t, d)
	eventually(t, "auto start", d.Session().IsScanning)

	if !cam.Streaming(types.FacingBack) {
		t.Error("back camera should be streaming")
	}
	h := d.HealthCheck()
	if h.Status != "healthy" || !h.Scanning || h.SessionState != "active" {
		t.Errorf("HealthCheck() = %+v, want healthy and scanning", h)
	}

	shutdown(t, d, errCh)

	if open := cam.OpenFacings(); len(open) != 0 {
		t.Errorf("open facings after Shutdown = %v, want none", open)
	}
	if _, closes := cam.Counts(); closes != 1 {
		t.Errorf("closes = %d, want 1", closes)
	}
	if got := d.HealthCheck().Status; got != "unhealthy" {
		t.Errorf("status after Shutdown = %q, want unhealthy", got)
	}

	// Shutdown is a no-op once stopped
	if err := d.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	t.Logf("✅ daemon started scanning and released the camera on shutdown")
}

func TestDaemon_AutoStartDisabled(t *testing.T) {
	cam := newCamera(t)
	d, err := New(loadConfig(t, baseConfig+"session:\n  auto_start: false\n"), cam, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	errCh := start(t, d)
	defer shutdown(t, d, errCh)

	if d.Session().IsScanning() {
		t.Error("session should not scan with auto_start: false")
	}
	if opens, _ := cam.Counts(); opens != 0 {
		t.Errorf("opens = %d, want 0", opens)
	}
}

func TestDaemon_Prewarm(t *testing.T) {
	cam := newCamera(t)
	doc := `
instance_id: dock-1
app_key: test-key
camera:
  driver: sim
  facing: front
  width: 64
  height: 48
  prewarm: true
session:
  auto_start: false
  standby_disabled: true
  preview_orientation: landscape_left
http:
  port: -1
`
	d, err := New(loadConfig(t, doc), cam, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Session().Close()

	s := d.Session()
	if got := s.State(); got != types.StatePrepared {
		t.Errorf("State() = %s, want Prepared", got)
	}
	if got := s.CameraFacing(); got != types.FacingFront {
		t.Errorf("CameraFacing() = %s, want front", got)
	}
	if got := s.PreviewOrientation(); got != types.OrientationLandscapeLeft {
		t.Errorf("PreviewOrientation() = %s, want landscape_left", got)
	}
	if !s.Stats().StandbyDisabled {
		t.Error("standby should be disabled")
	}

	opens, _ := cam.Counts()
	if opens != 1 {
		t.Errorf("opens = %d, want 1 (prewarm handle reused)", opens)
	}
	if cs := d.cache.Stats(); cs.Hits != 1 {
		t.Errorf("warm cache hits = %d, want 1", cs.Hits)
	}
}

func TestDaemon_DecodeSettingsFromConfig(t *testing.T) {
	doc := baseConfig + `
decode:
  enable_2d: false
  restricted_area: true
  hotspot_height: 0.2
  symbologies:
    msi_plessey: true
`
	d, err := New(loadConfig(t, doc), newCamera(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Session().Close()

	s := d.Session().DecodeSettings()
	if s.Enabled2D || !s.Enabled1D {
		t.Errorf("1D/2D = %v/%v, want true/false", s.Enabled1D, s.Enabled2D)
	}
	if !s.RestrictedArea || s.HotspotHeight != 0.2 {
		t.Errorf("restricted area = %v height %v, want true 0.2", s.RestrictedArea, s.HotspotHeight)
	}
	if !s.Enabled(types.SymbologyMsiPlessey) {
		t.Error("msi_plessey should be enabled")
	}
}

func TestDaemon_DecodesFrames(t *testing.T) {
	cam := newCamera(t)
	d, err := New(loadConfig(t, baseConfig), cam, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	errCh := start(t, d)
	defer shutdown(t, d, errCh)

	eventually(t, "auto start", d.Session().IsScanning)
	cam.SetPayload(&simcam.Payload{Symbology: types.SymbologyCode128, Data: []byte("A1"), Row: 0.5})

	eventually(t, "a decode", func() bool {
		cam.Emit()
		return d.Session().Stats().Router.Decodes > 0
	})
	t.Logf("✅ frames reach the marker decoder")
}

func TestDaemon_ShutdownViaControl(t *testing.T) {
	d, err := New(loadConfig(t, baseConfig), newCamera(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	errCh := start(t, d)

	if err := d.shutdownViaControl(); err != nil {
		t.Fatalf("shutdownViaControl() error = %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after shutdown command")
	}

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestDaemon_RunTwice(t *testing.T) {
	d, err := New(loadConfig(t, baseConfig), newCamera(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	errCh := start(t, d)
	defer shutdown(t, d, errCh)

	if err := d.Run(context.Background()); err == nil {
		t.Error("second Run() should fail")
	}
}

func TestDaemon_GetStatus(t *testing.T) {
	d, err := New(loadConfig(t, baseConfig), newCamera(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	errCh := start(t, d)
	defer shutdown(t, d, errCh)
	eventually(t, "auto start", d.Session().IsScanning)

	status := d.getStatus()
	if status["instance_id"] != "dock-1" || status["running"] != true {
		t.Errorf("getStatus() = %v", status)
	}
	session, ok := status["session"].(map[string]interface{})
	if !ok {
		t.Fatalf("session section missing: %v", status)
	}
	if session["state"] != "active" || session["scanning"] != true {
		t.Errorf("session section = %v", session)
	}
	if _, ok := status["mqtt"]; ok {
		t.Error("mqtt section should be absent without a broker")
	}
}

func TestDaemon_StatsEndpoint(t *testing.T) {
	d, err := New(loadConfig(t, baseConfig), newCamera(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer d.Session().Close()

	srv := httptest.NewServer(health.New("", d, nil).Router())
	defer srv.Close()

	for _, section := range []string{"session", "warm_cache", "encoder"} {
		resp, err := http.Get(srv.URL + "/stats/" + section)
		if err != nil {
			t.Fatalf("GET /stats/%s: %v", section, err)
		}
		var body map[string]any
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || err != nil {
			t.Errorf("GET /stats/%s = %d (%v), want 200", section, resp.StatusCode, err)
		}
	}

	resp, err := http.Get(srv.URL + "/stats/emitter")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /stats/emitter = %d, want 404 without a broker", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/readiness")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("GET /readiness = %d, want 503 before Run", resp.StatusCode)
	}
}

func TestDaemon_ShutdownTimeout(t *testing.T) {
	cfg := loadConfig(t, baseConfig)
	d := &Daemon{cfg: cfg}
	if got := d.ShutdownTimeout(); got != 5*time.Second {
		t.Errorf("ShutdownTimeout() = %v, want 5s", got)
	}
	cfg.ShutdownTimeoutS = 12
	if got := d.ShutdownTimeout(); got != 12*time.Second {
		t.Errorf("ShutdownTimeout() = %v, want 12s", got)
	}
}
