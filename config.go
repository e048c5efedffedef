package scansession

// Decode configuration setters. Every change applies to the next routed
// frame; a decode already dispatched keeps the settings it started with.

// DecodeSettings returns the current decode policy.
func (s *Session) DecodeSettings() Settings { return s.config.Snapshot() }

// ApplySettings replaces the whole decode policy. Out-of-range values are
// rejected with ErrInvalidRange and nothing changes.
func (s *Session) ApplySettings(st Settings) error { return s.config.Apply(st) }

// Set1DScanningEnabled switches every 1D symbology at once. Per-symbology
// flags are kept and apply again when the group is back on.
func (s *Session) Set1DScanningEnabled(on bool) { s.config.Set1DScanningEnabled(on) }

// Set2DScanningEnabled is the 2D counterpart of Set1DScanningEnabled.
func (s *Session) Set2DScanningEnabled(on bool) { s.config.Set2DScanningEnabled(on) }

// SetSymbologyEnabled switches one symbology.
func (s *Session) SetSymbologyEnabled(sym Symbology, on bool) error {
	return s.config.SetSymbologyEnabled(sym, on)
}

// SetEan13AndUpc12Enabled switches EAN-13 and UPC-A.
func (s *Session) SetEan13AndUpc12Enabled(on bool) { s.config.SetEan13AndUpc12Enabled(on) }

// SetEan8Enabled switches EAN-8.
func (s *Session) SetEan8Enabled(on bool) { s.config.SetEan8Enabled(on) }

// SetUpceEnabled switches UPC-E.
func (s *Session) SetUpceEnabled(on bool) { s.config.SetUpceEnabled(on) }

// SetCode39Enabled switches Code 39.
func (s *Session) SetCode39Enabled(on bool) { s.config.SetCode39Enabled(on) }

// SetCode128Enabled switches Code 128.
func (s *Session) SetCode128Enabled(on bool) { s.config.SetCode128Enabled(on) }

// SetItfEnabled switches Interleaved 2 of 5.
func (s *Session) SetItfEnabled(on bool) { s.config.SetItfEnabled(on) }

// SetMsiPlesseyEnabled switches MSI Plessey. Off by default.
func (s *Session) SetMsiPlesseyEnabled(on bool) { s.config.SetMsiPlesseyEnabled(on) }

// SetMsiPlesseyChecksumType sets the checksum expected on MSI Plessey codes.
func (s *Session) SetMsiPlesseyChecksumType(m MsiChecksum) error {
	return s.config.SetMsiPlesseyChecksumType(m)
}

// SetQrEnabled switches QR Code.
func (s *Session) SetQrEnabled(on bool) { s.config.SetQrEnabled(on) }

// SetDataMatrixEnabled switches DataMatrix.
func (s *Session) SetDataMatrixEnabled(on bool) { s.config.SetDataMatrixEnabled(on) }

// SetPdf417Enabled switches PDF417.
func (s *Session) SetPdf417Enabled(on bool) { s.config.SetPdf417Enabled(on) }

// SetMicroDataMatrixEnabled enables tiny DataMatrix codes. Implies forced 2D
// recognition.
func (s *Session) SetMicroDataMatrixEnabled(on bool) { s.config.SetMicroDataMatrixEnabled(on) }

// SetInverseDetectionEnabled also looks for light-on-dark codes.
func (s *Session) SetInverseDetectionEnabled(on bool) { s.config.SetInverseDetectionEnabled(on) }

// Force2DRecognition runs the 2D decoders even when no 2D code is detected.
func (s *Session) Force2DRecognition(on bool) { s.config.Force2DRecognition(on) }

// RestrictActiveScanningArea limits decoding to the band of height
// ScanningHotSpotHeight centred on the hotspot.
func (s *Session) RestrictActiveScanningArea(on bool) { s.config.RestrictActiveScanningArea(on) }

// SetScanningHotSpot sets the hotspot in normalized coordinates. x or y
// outside [0,1] returns ErrInvalidRange and keeps the previous hotspot.
func (s *Session) SetScanningHotSpot(x, y float64) error {
	return s.config.SetScanningHotSpot(x, y)
}

// SetScanningHotSpotHeight sets the restricted band height relative to the
// frame. h outside [0,0.5] returns ErrInvalidRange and keeps the previous
// height.
func (s *Session) SetScanningHotSpotHeight(h float64) error {
	return s.config.SetScanningHotSpotHeight(h)
}
