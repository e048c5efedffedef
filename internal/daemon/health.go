package daemon

import (
	"time"

	"github.com/e7canasta/scansession/internal/health"
)

// HealthCheck returns the current health status of the service.
//
//   - unhealthy: not running or still starting, or the camera failed and the
//     session holds a terminal error
//   - degraded: a broker is configured but not connected
func (d *Daemon) HealthCheck() health.Status {
	d.mu.RLock()
	running := d.isRunning && d.isReady
	started := d.started
	d.mu.RUnlock()

	status := health.Status{
		Status:       "healthy",
		SessionState: d.session.State().String(),
		Scanning:     d.session.IsScanning(),
	}
	if running {
		status.UptimeSeconds = int64(time.Since(started).Seconds())
	}
	if d.emitter != nil && d.emitter.IsConnected() {
		status.MQTTConnected = true
	}
	if err := d.session.Err(); err != nil {
		status.Error = err.Error()
	}

	switch {
	case !running || status.Error != "":
		status.Status = "unhealthy"
	case d.emitter != nil && !status.MQTTConnected:
		status.Status = "degraded"
	}
	return status
}

// Stats returns the sections served on /stats.
func (d *Daemon) Stats() map[string]any {
	encoded, failed := d.encoder.Counts()
	sections := map[string]any{
		"session":    d.session.Stats(),
		"warm_cache": d.cache.Stats(),
		"encoder": map[string]any{
			"encoded": encoded,
			"failed":  failed,
		},
	}
	if d.emitter != nil {
		sections["emitter"] = d.emitter.Stats()
	}
	return sections
}
