package types

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Point is a normalized image coordinate; (0,0) is top-left, (1,1) bottom-right.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Bounds of the hotspot parameters.
const (
	MaxHotspotHeight     = 0.5
	DefaultHotspotHeight = 0.25
)

// Settings is an immutable snapshot of the decode policy, taken by the router
// for each routed frame.
type Settings struct {
	// Enabled1D and Enabled2D are master switches over the symbology groups.
	Enabled1D bool
	Enabled2D bool
	// MsiChecksum is the checksum expected on MSI Plessey codes.
	MsiChecksum MsiChecksum
	// MicroDataMatrix enables the tiny DataMatrix localizer (implies Force2D).
	MicroDataMatrix bool
	// InverseDetection enables white-on-black detection.
	InverseDetection bool
	// Force2D runs the 2D decoders even when the 2D pre-check finds nothing.
	Force2D bool
	// RestrictedArea limits decoding to the band around Hotspot.
	RestrictedArea bool
	// Hotspot is the decode priority point (full frame) or band centre
	// (restricted area).
	Hotspot Point
	// HotspotHeight is the band height relative to the frame height.
	HotspotHeight float64

	symbologies [symbologyCount]bool
}

// DefaultSettings returns the construction-time decode policy: every 1D
// symbology except MSI Plessey, every 2D symbology, MSI checksum mod 10,
// hotspot at the centre with height 0.25.
func DefaultSettings() Settings {
	s := Settings{
		Enabled1D:     true,
		Enabled2D:     true,
		MsiChecksum:   MsiChecksumMod10,
		Hotspot:       Point{X: 0.5, Y: 0.5},
		HotspotHeight: DefaultHotspotHeight,
	}
	for i := range s.symbologies {
		s.symbologies[i] = Symbology(i) != SymbologyMsiPlessey
	}
	return s
}

// SymbologyFlag returns the per-symbology switch, ignoring the group switch.
func (s Settings) SymbologyFlag(sym Symbology) bool {
	if !sym.Valid() {
		return false
	}
	return s.symbologies[sym]
}

// Enabled reports whether sym should be decoded: its own switch and its
// group switch are both on.
func (s Settings) Enabled(sym Symbology) bool {
	if !s.SymbologyFlag(sym) {
		return false
	}
	if sym.Is2D() {
		return s.Enabled2D
	}
	return s.Enabled1D
}

// EnabledSymbologies returns the symbologies to decode, in declaration order.
func (s Settings) EnabledSymbologies() []Symbology {
	var out []Symbology
	for sym := Symbology(0); sym < symbologyCount; sym++ {
		if s.Enabled(sym) {
			out = append(out, sym)
		}
	}
	return out
}

// Any2DEnabled reports whether any 2D symbology is active.
func (s Settings) Any2DEnabled() bool {
	return s.Enabled(SymbologyQR) || s.Enabled(SymbologyDataMatrix) || s.Enabled(SymbologyPdf417)
}

// ForcesLocalization2D reports whether the 2D localization stage must run
// regardless of the presence pre-check.
func (s Settings) ForcesLocalization2D() bool {
	return s.Force2D || s.MicroDataMatrix
}

// WithSymbology returns a copy of s with sym switched.
func (s Settings) WithSymbology(sym Symbology, on bool) Settings {
	if sym.Valid() {
		s.symbologies[sym] = on
	}
	return s
}

// Validate checks the hotspot bounds and the checksum scheme.
func (s Settings) Validate() error {
	if err := validateHotspot(s.Hotspot.X, s.Hotspot.Y); err != nil {
		return err
	}
	if err := validateHotspotHeight(s.HotspotHeight); err != nil {
		return err
	}
	if !s.MsiChecksum.Valid() {
		return fmt.Errorf("msi checksum %d: %w", int(s.MsiChecksum), ErrInvalidRange)
	}
	return nil
}

// Band returns the pixel rows of the restricted scanning area for a frame of
// the given height: HotspotHeight × height rows centred on Hotspot.Y,
// shifted to stay inside the frame.
func (s Settings) Band(frameHeight int) (top, rows int) {
	rows = int(math.Round(s.HotspotHeight * float64(frameHeight)))
	if rows < 1 {
		rows = 1
	}
	if rows > frameHeight {
		rows = frameHeight
	}
	center := s.Hotspot.Y * float64(frameHeight)
	top = int(math.Round(center - float64(rows)/2))
	if top < 0 {
		top = 0
	}
	if top+rows > frameHeight {
		top = frameHeight - rows
	}
	return top, rows
}

func validateHotspot(x, y float64) error {
	if !inUnit(x) || !inUnit(y) {
		return fmt.Errorf("hotspot (%v, %v) must be within [0,1]: %w", x, y, ErrInvalidRange)
	}
	return nil
}

func validateHotspotHeight(h float64) error {
	if math.IsNaN(h) || h < 0 || h > MaxHotspotHeight {
		return fmt.Errorf("hotspot height %v must be within [0,%v]: %w", h, MaxHotspotHeight, ErrInvalidRange)
	}
	return nil
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// DecodeConfiguration is the mutable decode policy owned by a session.
//
// Writers serialize on mu and publish a fresh Settings snapshot; readers
// (the router, once per frame) load the snapshot without locking. A change
// therefore applies to the next routed frame and never to a decode already
// dispatched.
type DecodeConfiguration struct {
	mu      sync.Mutex
	current atomic.Pointer[Settings]
}

// NewDecodeConfiguration returns a configuration holding DefaultSettings.
func NewDecodeConfiguration() *DecodeConfiguration {
	c := &DecodeConfiguration{}
	s := DefaultSettings()
	c.current.Store(&s)
	return c
}

// Snapshot returns the current policy.
func (c *DecodeConfiguration) Snapshot() Settings {
	return *c.current.Load()
}

// Apply replaces the whole policy after validating it.
func (c *DecodeConfiguration) Apply(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return c.update(func(cur *Settings) error {
		*cur = s
		return nil
	})
}

func (c *DecodeConfiguration) update(fn func(s *Settings) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := *c.current.Load()
	if err := fn(&next); err != nil {
		return err
	}
	c.current.Store(&next)
	return nil
}

func (c *DecodeConfiguration) setFlag(fn func(s *Settings)) {
	_ = c.update(func(s *Settings) error {
		fn(s)
		return nil
	})
}

// Set1DScanningEnabled switches all 1D symbologies as a group.
func (c *DecodeConfiguration) Set1DScanningEnabled(on bool) {
	c.setFlag(func(s *Settings) { s.Enabled1D = on })
}

// Set2DScanningEnabled switches all 2D symbologies as a group.
func (c *DecodeConfiguration) Set2DScanningEnabled(on bool) {
	c.setFlag(func(s *Settings) { s.Enabled2D = on })
}

// SetSymbologyEnabled switches one symbology. Unknown symbologies are
// rejected with ErrInvalidRange.
func (c *DecodeConfiguration) SetSymbologyEnabled(sym Symbology, on bool) error {
	if !sym.Valid() {
		return fmt.Errorf("symbology %d: %w", int(sym), ErrInvalidRange)
	}
	c.setFlag(func(s *Settings) { s.symbologies[sym] = on })
	return nil
}

func (c *DecodeConfiguration) SetEan13AndUpc12Enabled(on bool) {
	_ = c.SetSymbologyEnabled(SymbologyEan13Upc12, on)
}

func (c *DecodeConfiguration) SetEan8Enabled(on bool) { _ = c.SetSymbologyEnabled(SymbologyEan8, on) }

func (c *DecodeConfiguration) SetUpceEnabled(on bool) { _ = c.SetSymbologyEnabled(SymbologyUpce, on) }

func (c *DecodeConfiguration) SetCode39Enabled(on bool) {
	_ = c.SetSymbologyEnabled(SymbologyCode39, on)
}

func (c *DecodeConfiguration) SetCode128Enabled(on bool) {
	_ = c.SetSymbologyEnabled(SymbologyCode128, on)
}

func (c *DecodeConfiguration) SetItfEnabled(on bool) { _ = c.SetSymbologyEnabled(SymbologyItf, on) }

func (c *DecodeConfiguration) SetMsiPlesseyEnabled(on bool) {
	_ = c.SetSymbologyEnabled(SymbologyMsiPlessey, on)
}

func (c *DecodeConfiguration) SetQrEnabled(on bool) { _ = c.SetSymbologyEnabled(SymbologyQR, on) }

func (c *DecodeConfiguration) SetDataMatrixEnabled(on bool) {
	_ = c.SetSymbologyEnabled(SymbologyDataMatrix, on)
}

func (c *DecodeConfiguration) SetPdf417Enabled(on bool) {
	_ = c.SetSymbologyEnabled(SymbologyPdf417, on)
}

// SetMsiPlesseyChecksumType sets the expected MSI Plessey checksum.
func (c *DecodeConfiguration) SetMsiPlesseyChecksumType(m MsiChecksum) error {
	if !m.Valid() {
		return fmt.Errorf("msi checksum %d: %w", int(m), ErrInvalidRange)
	}
	c.setFlag(func(s *Settings) { s.MsiChecksum = m })
	return nil
}

// SetMicroDataMatrixEnabled enables the tiny DataMatrix localizer, which also
// forces 2D recognition.
func (c *DecodeConfiguration) SetMicroDataMatrixEnabled(on bool) {
	c.setFlag(func(s *Settings) { s.MicroDataMatrix = on })
}

func (c *DecodeConfiguration) SetInverseDetectionEnabled(on bool) {
	c.setFlag(func(s *Settings) { s.InverseDetection = on })
}

// Force2DRecognition makes the 2D decoders run even when the 2D detector
// reports no 2D code.
func (c *DecodeConfiguration) Force2DRecognition(on bool) {
	c.setFlag(func(s *Settings) { s.Force2D = on })
}

// RestrictActiveScanningArea limits decoding to the hotspot band.
func (c *DecodeConfiguration) RestrictActiveScanningArea(on bool) {
	c.setFlag(func(s *Settings) { s.RestrictedArea = on })
}

// SetScanningHotSpot moves the hotspot. Coordinates outside [0,1] are
// rejected with ErrInvalidRange and the previous hotspot is kept.
func (c *DecodeConfiguration) SetScanningHotSpot(x, y float64) error {
	if err := validateHotspot(x, y); err != nil {
		return err
	}
	c.setFlag(func(s *Settings) { s.Hotspot = Point{X: x, Y: y} })
	return nil
}

// SetScanningHotSpotHeight sets the restricted band height. Values outside
// [0,0.5] are rejected with ErrInvalidRange and the previous height is kept.
func (c *DecodeConfiguration) SetScanningHotSpotHeight(h float64) error {
	if err := validateHotspotHeight(h); err != nil {
		return err
	}
	c.setFlag(func(s *Settings) { s.HotspotHeight = h })
	return nil
}
