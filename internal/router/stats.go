package router

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of router counters.
type Stats struct {
	// FramesRouted counts every frame handed to Route.
	FramesRouted uint64 `json:"frames_routed"`
	// Dispatched counts frames posted to the decode worker.
	Dispatched uint64 `json:"dispatched"`
	// DroppedBusy counts frames dropped because a decode was in flight.
	// Under sustained frame rate this is expected to dominate.
	DroppedBusy uint64 `json:"dropped_busy"`
	// DroppedInactive counts frames that arrived with dispatch disabled
	// (stopping, switching facing).
	DroppedInactive uint64 `json:"dropped_inactive"`
	// Decodes counts completed decoder calls.
	Decodes uint64 `json:"decodes"`
	// Results counts results delivered to the result delegate.
	Results uint64 `json:"results"`
	// StaleDiscarded counts decodes and captures abandoned by a lifecycle
	// transition.
	StaleDiscarded uint64 `json:"stale_discarded"`
	// DecodeErrors counts decoder calls that returned an error.
	DecodeErrors uint64 `json:"decode_errors"`

	CapturesDelivered uint64 `json:"captures_delivered"`
	CapturesFailed    uint64 `json:"captures_failed"`

	// LastDecodeLatency is the duration of the most recent decoder call.
	LastDecodeLatency time.Duration `json:"last_decode_latency_ns"`
	// InFlight reports whether a decode is pending or running.
	InFlight bool `json:"in_flight"`
	// Enabled reports the dispatch gate.
	Enabled bool `json:"enabled"`
}

type counters struct {
	framesRouted      atomic.Uint64
	dispatched        atomic.Uint64
	droppedBusy       atomic.Uint64
	droppedInactive   atomic.Uint64
	decodes           atomic.Uint64
	results           atomic.Uint64
	staleDiscarded    atomic.Uint64
	decodeErrors      atomic.Uint64
	capturesDelivered atomic.Uint64
	capturesFailed    atomic.Uint64
	lastDecodeNs      atomic.Int64
}

// Stats returns the current counters. Counters are read individually, so the
// snapshot may be slightly inconsistent under load.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	inFlight := r.busy || r.pending != nil
	enabled := r.enabled
	r.mu.Unlock()

	return Stats{
		FramesRouted:      r.stats.framesRouted.Load(),
		Dispatched:        r.stats.dispatched.Load(),
		DroppedBusy:       r.stats.droppedBusy.Load(),
		DroppedInactive:   r.stats.droppedInactive.Load(),
		Decodes:           r.stats.decodes.Load(),
		Results:           r.stats.results.Load(),
		StaleDiscarded:    r.stats.staleDiscarded.Load(),
		DecodeErrors:      r.stats.decodeErrors.Load(),
		CapturesDelivered: r.stats.capturesDelivered.Load(),
		CapturesFailed:    r.stats.capturesFailed.Load(),
		LastDecodeLatency: time.Duration(r.stats.lastDecodeNs.Load()),
		InFlight:          inFlight,
		Enabled:           enabled,
	}
}
