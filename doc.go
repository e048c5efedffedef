// Package scansession drives a camera for real-time barcode scanning.
//
// # Philosophy
//
// "Drop frames, never queue." The camera produces frames at its native rate
// (15-30 fps); decoding is the bottleneck. At most one decode is in flight at
// any time and every frame that arrives meanwhile is released immediately, so
// latency and memory stay bounded no matter how slow the decoder is.
//
// # Architecture
//
//	CameraDevice → Router → Decoder (1 worker, single-slot mailbox)
//	  (producer)     │
//	                 └──→ one-shot capture (JPEG → NextFrameDelegate)
//
//	public API → Session (lifecycle mutex) → {CameraDevice, Router}
//
// The Session owns the lifecycle:
//
//	Unprepared → Prepared → Active ⇄ Standby → Released
//
// Standby keeps the camera open but not streaming for a fast restart.
// ForceRelease frees everything. Close parks the camera in a process-wide
// warm cache (see Prepare) unless standby is disabled.
//
// # Basic Usage
//
//	cam, _ := simcam.New(simcam.Config{Width: 640, Height: 480, FPS: 30})
//
//	s, err := scansession.Init(cam, appKey,
//	    scansession.WithDecoder(engine),
//	    scansession.WithResultDelegate(overlay),
//	)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	s.SetQrEnabled(false)
//	_ = s.SetScanningHotSpot(0.5, 0.4)
//	if err := s.StartScanning(); err != nil {
//	    return err
//	}
//
// Results arrive on overlay.DidScan from the decode worker goroutine.
//
// # Stale results
//
// Stopping, switching facing and releasing mark the in-flight decode stale.
// When the decoder returns, its result is discarded instead of delivered.
// A facing switch additionally reports DecodeCancelled(CancelFacingSwitch)
// so the caller can tell an abandoned decode from "nothing found".
//
// # Errors
//
// Missing capabilities (front camera, torch) fail soft with false. Setters
// reject out-of-range values with ErrInvalidRange. Camera open and streaming
// failures are terminal: the session moves to Released and every later
// lifecycle call returns the recorded *HardwareError. There is no automatic
// reopen; only a camera close during a facing switch is retried once.
package scansession
