package types

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	for _, sym := range Symbologies() {
		want := sym != SymbologyMsiPlessey
		if got := s.Enabled(sym); got != want {
			t.Errorf("Enabled(%s) = %v, want %v", sym, got, want)
		}
	}
	if s.MsiChecksum != MsiChecksumMod10 {
		t.Errorf("MsiChecksum = %s, want mod10", s.MsiChecksum)
	}
	if s.Hotspot != (Point{X: 0.5, Y: 0.5}) || s.HotspotHeight != 0.25 {
		t.Errorf("hotspot = %+v height %v", s.Hotspot, s.HotspotHeight)
	}
	if s.MicroDataMatrix || s.InverseDetection || s.Force2D || s.RestrictedArea {
		t.Error("auxiliary flags should default off")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSettings_GroupSwitches(t *testing.T) {
	c := NewDecodeConfiguration()

	c.Set2DScanningEnabled(false)
	s := c.Snapshot()
	if s.Enabled(SymbologyQR) || s.Any2DEnabled() {
		t.Error("2D symbologies should be off with the 2D switch off")
	}
	if !s.SymbologyFlag(SymbologyQR) {
		t.Error("per-symbology flag must survive the group switch")
	}
	if !s.Enabled(SymbologyCode128) {
		t.Error("1D symbologies unaffected by the 2D switch")
	}

	c.Set2DScanningEnabled(true)
	if !c.Snapshot().Enabled(SymbologyQR) {
		t.Error("QR should come back with the 2D switch")
	}

	c.Set1DScanningEnabled(false)
	got := c.Snapshot().EnabledSymbologies()
	want := []Symbology{SymbologyQR, SymbologyDataMatrix, SymbologyPdf417}
	if len(got) != len(want) {
		t.Fatalf("EnabledSymbologies() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EnabledSymbologies()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDecodeConfiguration_Setters(t *testing.T) {
	c := NewDecodeConfiguration()

	c.SetMsiPlesseyEnabled(true)
	c.SetEan8Enabled(false)
	c.SetMicroDataMatrixEnabled(true)
	c.SetInverseDetectionEnabled(true)
	c.RestrictActiveScanningArea(true)

	s := c.Snapshot()
	if !s.Enabled(SymbologyMsiPlessey) || s.Enabled(SymbologyEan8) {
		t.Error("symbology setters not applied")
	}
	if !s.ForcesLocalization2D() {
		t.Error("micro DataMatrix should force 2D localization")
	}
	if !s.InverseDetection || !s.RestrictedArea {
		t.Error("flag setters not applied")
	}

	if err := c.SetSymbologyEnabled(Symbology(99), true); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("SetSymbologyEnabled(99) error = %v, want ErrInvalidRange", err)
	}
	if err := c.SetMsiPlesseyChecksumType(MsiChecksum(42)); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("SetMsiPlesseyChecksumType(42) error = %v, want ErrInvalidRange", err)
	}
	if err := c.SetMsiPlesseyChecksumType(MsiChecksumMod1110); err != nil {
		t.Fatal(err)
	}
	if got := c.Snapshot().MsiChecksum; got != MsiChecksumMod1110 {
		t.Errorf("MsiChecksum = %s, want mod1110", got)
	}
}

func TestDecodeConfiguration_HotspotRange(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		ok   bool
	}{
		{"corner", 0, 1, true},
		{"inside", 0.3, 0.7, true},
		{"x negative", -0.01, 0.5, false},
		{"y over", 0.5, 1.01, false},
		{"nan", math.NaN(), 0.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDecodeConfiguration()
			before := c.Snapshot().Hotspot
			err := c.SetScanningHotSpot(tt.x, tt.y)
			after := c.Snapshot().Hotspot

			if tt.ok {
				if err != nil || after != (Point{X: tt.x, Y: tt.y}) {
					t.Errorf("SetScanningHotSpot(%v, %v) = %v, hotspot %+v", tt.x, tt.y, err, after)
				}
				return
			}
			if !errors.Is(err, ErrInvalidRange) {
				t.Errorf("error = %v, want ErrInvalidRange", err)
			}
			if after != before {
				t.Errorf("hotspot changed to %+v on rejection", after)
			}
		})
	}

	c := NewDecodeConfiguration()
	for _, h := range []float64{-0.1, 0.51, math.NaN()} {
		if err := c.SetScanningHotSpotHeight(h); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("SetScanningHotSpotHeight(%v) error = %v, want ErrInvalidRange", h, err)
		}
	}
	if got := c.Snapshot().HotspotHeight; got != DefaultHotspotHeight {
		t.Errorf("HotspotHeight = %v after rejections, want %v", got, DefaultHotspotHeight)
	}
}

func TestDecodeConfiguration_Apply(t *testing.T) {
	c := NewDecodeConfiguration()
	s := DefaultSettings()
	s.HotspotHeight = 0.9
	if err := c.Apply(s); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Apply(height 0.9) error = %v, want ErrInvalidRange", err)
	}

	s.HotspotHeight = 0.1
	s.Force2D = true
	if err := c.Apply(s); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := c.Snapshot(); got.HotspotHeight != 0.1 || !got.Force2D {
		t.Errorf("Snapshot() = %+v", got)
	}
}

func TestSettings_Band(t *testing.T) {
	tests := []struct {
		name     string
		y, h     float64
		height   int
		top, row int
	}{
		{"centred", 0.5, 0.25, 100, 38, 25},
		{"clamped top", 0.05, 0.25, 100, 0, 25},
		{"clamped bottom", 1, 0.25, 100, 75, 25},
		{"zero height is one row", 0.5, 0, 100, 50, 1},
		{"max height", 0.5, 0.5, 60, 15, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.Hotspot.Y = tt.y
			s.HotspotHeight = tt.h
			top, rows := s.Band(tt.height)
			if top != tt.top || rows != tt.row {
				t.Errorf("Band(%d) = (%d, %d), want (%d, %d)", tt.height, top, rows, tt.top, tt.row)
			}
		})
	}
}

func TestParseSymbology(t *testing.T) {
	tests := map[string]Symbology{
		"ean13":       SymbologyEan13Upc12,
		"UPCA":        SymbologyEan13Upc12,
		"msi":         SymbologyMsiPlessey,
		"msi_plessey": SymbologyMsiPlessey,
		" qr ":        SymbologyQR,
		"data_matrix": SymbologyDataMatrix,
		"pdf417":      SymbologyPdf417,
	}
	for in, want := range tests {
		got, err := ParseSymbology(in)
		if err != nil || got != want {
			t.Errorf("ParseSymbology(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseSymbology("aztec"); err == nil {
		t.Error("ParseSymbology(aztec) should fail")
	}
}

func TestFrame_ReleaseOnce(t *testing.T) {
	freed := 0
	f := &Frame{Width: 4, Height: 2, Data: make([]byte, 8)}
	f.SetReleaseHook(func() { freed++ })

	f.Retain()
	f.Release()
	if freed != 0 || f.Released() {
		t.Fatal("frame freed while a holder remains")
	}
	f.Release()
	if freed != 1 || !f.Released() {
		t.Fatalf("freed = %d, want 1", freed)
	}
	f.Release()
	if freed != 1 {
		t.Errorf("release hook ran %d times, want once", freed)
	}
	t.Logf("✅ release hook runs exactly once")
}

func TestFrame_Validate(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		ok    bool
	}{
		{"gray packed", Frame{Width: 4, Height: 2, Format: FormatGray8, Data: make([]byte, 8)}, true},
		{"gray padded", Frame{Width: 3, Height: 2, Stride: 4, Format: FormatGray8, Data: make([]byte, 8)}, true},
		{"rgb short", Frame{Width: 4, Height: 2, Format: FormatRGB24, Data: make([]byte, 20)}, false},
		{"nv21", Frame{Width: 4, Height: 3, Format: FormatNV21, Data: make([]byte, 4*3+4*2)}, true},
		{"nv21 missing chroma", Frame{Width: 4, Height: 3, Format: FormatNV21, Data: make([]byte, 12)}, false},
		{"zero size", Frame{Format: FormatGray8}, false},
	}

	for i := range tests {
		tt := &tests[i]
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestFrame_Band(t *testing.T) {
	w, h := 4, 6
	data := make([]byte, w*h+w*(h/2))
	for i := range data {
		data[i] = byte(i)
	}
	f := &Frame{Seq: 9, Width: w, Height: h, Format: FormatNV21, Data: data,
		Region: Rect{Width: w, Height: h}, TraceID: "t-1"}

	band := f.Band(2, 3)
	if band.Format != FormatGray8 {
		t.Errorf("Format = %s, want GRAY8", band.Format)
	}
	if band.Height != 3 || len(band.Data) != 3*w || band.Data[0] != byte(2*w) {
		t.Errorf("band rows wrong: height %d len %d first %d", band.Height, len(band.Data), band.Data[0])
	}
	if band.Region != (Rect{X: 0, Y: 2, Width: w, Height: 3}) {
		t.Errorf("Region = %+v", band.Region)
	}
	if band.Seq != 9 || band.TraceID != "t-1" {
		t.Error("band should keep frame identity")
	}

	clipped := f.Band(5, 4)
	if clipped.Height != 1 {
		t.Errorf("clipped Height = %d, want 1", clipped.Height)
	}

	short := &Frame{Width: 64, Height: 48, Format: FormatGray8, Data: make([]byte, 640)}
	if b := short.Band(5, 12); b.Height != 5 || len(b.Data) != 5*64 {
		t.Errorf("short buffer band = %d rows, %d bytes; want 5 rows", b.Height, len(b.Data))
	}
	if b := short.Band(20, 12); b.Height != 0 || len(b.Data) != 0 {
		t.Errorf("band past buffer = %d rows, want empty", b.Height)
	}
}

func TestHardwareError(t *testing.T) {
	cause := errors.New("ioctl failed")
	err := NewHardwareError(OpStream, FacingFront, cause)

	if !errors.Is(err, ErrHardwareFailure) {
		t.Error("HardwareError should match ErrHardwareFailure")
	}
	if !errors.Is(err, cause) {
		t.Error("HardwareError should unwrap to its cause")
	}
	var hw *HardwareError
	if !errors.As(err, &hw) || hw.Op != OpStream || hw.Facing != FacingFront {
		t.Errorf("errors.As() = %+v", hw)
	}
	if NewHardwareError(OpOpen, FacingBack, nil) != nil {
		t.Error("nil cause should give a nil error")
	}
}
