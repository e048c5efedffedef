package router

import "github.com/e7canasta/scansession/internal/types"

// deliverCapture encodes frame and hands it to d, unless the router was
// reset since the frame was routed. The frame was retained by Route.
func (r *Router) deliverCapture(d types.NextFrameDelegate, frame *types.Frame, epoch uint64) {
	defer r.wg.Done()
	defer frame.Release()

	img, err := r.encoder.Encode(frame)
	if err != nil {
		r.stats.capturesFailed.Add(1)
		r.logger.Warn("router: next frame encoding failed",
			"seq", frame.Seq,
			"trace_id", frame.TraceID,
			"format", frame.Format.String(),
			"error", err,
		)
		return
	}

	r.mu.Lock()
	stale := epoch != r.epoch
	r.mu.Unlock()

	if stale {
		r.stats.staleDiscarded.Add(1)
		r.logger.Debug("router: stale capture discarded", "seq", frame.Seq)
		return
	}

	r.stats.capturesDelivered.Add(1)
	r.logger.Debug("router: next frame delivered",
		"seq", frame.Seq,
		"trace_id", frame.TraceID,
		"bytes", len(img),
	)
	d.DidCaptureImage(img, frame.Width, frame.Height)
}
