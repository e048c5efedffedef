package warmcache

import (
	"errors"
	"testing"

	"github.com/e7canasta/scansession/internal/device/simcam"
	"github.com/e7canasta/scansession/internal/types"
)

func newCam(t *testing.T, facings ...types.Facing) *simcam.Camera {
	t.Helper()
	c, err := simcam.New(simcam.Config{Width: 16, Height: 16, Facings: facings})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPrepare_Idempotent(t *testing.T) {
	cam := newCam(t)
	cache := New(nil)

	for i := 0; i < 3; i++ {
		if err := cache.Prepare(cam, types.FacingBack); err != nil {
			t.Fatalf("Prepare #%d failed: %v", i, err)
		}
	}
	if opens, _ := cam.Counts(); opens != 1 {
		t.Errorf("camera opened %d times, want 1", opens)
	}
	if !cache.Has(types.FacingBack) {
		t.Error("expected a parked back camera")
	}
}

func TestPrepare_Errors(t *testing.T) {
	cache := New(nil)
	if err := cache.Prepare(nil, types.FacingBack); !errors.Is(err, types.ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", err)
	}

	cam := newCam(t, types.FacingBack)
	if err := cache.Prepare(cam, types.FacingFront); !errors.Is(err, types.ErrUnsupportedCapability) {
		t.Errorf("expected ErrUnsupportedCapability, got %v", err)
	}

	cam.FailNext(types.OpOpen, errors.New("sensor fault"), 1)
	err := cache.Prepare(cam, types.FacingBack)
	if !errors.Is(err, types.ErrHardwareFailure) {
		t.Errorf("expected ErrHardwareFailure, got %v", err)
	}
}

func TestTake_MatchesDeviceAndFacing(t *testing.T) {
	cam := newCam(t)
	other := newCam(t)
	cache := New(nil)
	_ = cache.Prepare(cam, types.FacingBack)

	if _, ok := cache.Take(other, types.FacingBack); ok {
		t.Error("took a handle for another device")
	}
	if _, ok := cache.Take(cam, types.FacingFront); ok {
		t.Error("took a handle for another facing")
	}
	h, ok := cache.Take(cam, types.FacingBack)
	if !ok || h.Facing() != types.FacingBack {
		t.Fatalf("Take = (%v, %v)", h, ok)
	}
	if _, ok := cache.Take(cam, types.FacingBack); ok {
		t.Error("handle taken twice")
	}

	st := cache.Stats()
	if st.Hits != 1 || st.Misses != 3 || st.Parked != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestPark_ReplacesAndInvalidate(t *testing.T) {
	cam := newCam(t)
	cache := New(nil)

	back, _ := cam.Open(types.FacingBack)
	front, _ := cam.Open(types.FacingFront)
	cache.Park(cam, back)
	cache.Park(cam, back) // same handle, no-op
	cache.Park(cam, front)

	if st := cache.Stats(); st.Parked != 2 || st.Closes != 0 {
		t.Errorf("stats = %+v, want 2 parked, 0 closes", st)
	}

	cache.Invalidate()
	if st := cache.Stats(); st.Parked != 0 || st.Closes != 2 {
		t.Errorf("stats after invalidate = %+v", st)
	}
	if len(cam.OpenFacings()) != 0 {
		t.Errorf("camera still open: %v", cam.OpenFacings())
	}
}

func TestInvalidateDevice(t *testing.T) {
	a := newCam(t)
	b := newCam(t)
	cache := New(nil)
	_ = cache.Prepare(a, types.FacingBack)
	_ = cache.Prepare(b, types.FacingFront)

	cache.InvalidateDevice(a)
	if cache.Has(types.FacingBack) {
		t.Error("handle of invalidated device still parked")
	}
	if !cache.Has(types.FacingFront) {
		t.Error("handle of other device was closed")
	}
}
