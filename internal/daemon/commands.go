package daemon

import (
	"time"
)

// getStatus returns the current service status
func (d *Daemon) getStatus() map[string]interface{} {
	d.mu.RLock()
	running := d.isRunning
	started := d.started
	d.mu.RUnlock()

	st := d.session.Stats()
	settings := d.session.DecodeSettings()

	status := map[string]interface{}{
		"instance_id": d.cfg.InstanceID,
		"uptime_s":    time.Since(started).Seconds(),
		"running":     running,
		"session": map[string]interface{}{
			"id":               st.ID,
			"state":            st.State,
			"scanning":         d.session.IsScanning(),
			"facing":           st.Facing,
			"torch_on":         st.TorchOn,
			"standby_disabled": st.StandbyDisabled,
			"orientation":      st.Orientation,
			"next_frame_armed": st.NextFrameArmed,
		},
		"router": map[string]interface{}{
			"frames_routed":   st.Router.FramesRouted,
			"dropped_busy":    st.Router.DroppedBusy,
			"decodes":         st.Router.Decodes,
			"results":         st.Router.Results,
			"stale_discarded": st.Router.StaleDiscarded,
			"decode_errors":   st.Router.DecodeErrors,
			"last_decode_ms":  float64(st.Router.LastDecodeLatency.Microseconds()) / 1000,
		},
		"decode": map[string]interface{}{
			"enabled_1d":      settings.Enabled1D,
			"enabled_2d":      settings.Enabled2D,
			"restricted_area": settings.RestrictedArea,
			"hotspot":         []float64{settings.Hotspot.X, settings.Hotspot.Y},
			"hotspot_height":  settings.HotspotHeight,
		},
	}
	if st.Error != "" {
		status["error"] = st.Error
	}

	if d.emitter != nil {
		es := d.emitter.Stats()
		status["mqtt"] = map[string]interface{}{
			"broker":        d.cfg.MQTT.Broker,
			"connected":     es.Connected,
			"format":        es.Format,
			"results_topic": d.cfg.MQTT.Topics.Results,
			"errors":        es.Errors,
		}
	}
	return status
}

// shutdownViaControl ends Run; the caller then runs Shutdown.
func (d *Daemon) shutdownViaControl() error {
	d.logger.Info("daemon: shutdown requested via control plane")

	d.mu.RLock()
	cancel := d.cancelCtx
	d.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	return nil
}
