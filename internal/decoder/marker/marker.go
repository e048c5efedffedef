// Package marker implements a deterministic barcode stand-in used by the
// simulated camera and the scand harness.
//
// A marker is a run of bytes written into one pixel row of the luminance
// plane:
//
//	"SCN1" | symbology | flags | length | payload...
//
// The decoder scans every row of the decode input for the header, so a marker
// placed outside a restricted scanning band is not found. Flag bits model the
// decoder features driven by the decode configuration.
package marker

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/e7canasta/scansession/internal/types"
)

// Flag bits.
const (
	// FlagInverse stores the marker bit-inverted (white on black).
	FlagInverse byte = 1 << iota
	// FlagHidden2D makes the 2D presence pre-check miss the code; only found
	// when 2D localization is forced.
	FlagHidden2D
	// FlagMicro marks a micro DataMatrix, only found with the micro localizer.
	FlagMicro
)

const headerLen = 7

var magic = []byte("SCN1")

// Decoder finds markers in frames. The zero value is ready to use.
type Decoder struct{}

// New returns a marker decoder.
func New() *Decoder { return &Decoder{} }

// Embed writes a marker for sym and payload at the start of row of the luma
// plane of frame.
func Embed(frame *types.Frame, row int, sym types.Symbology, flags byte, payload []byte) error {
	if !sym.Valid() {
		return fmt.Errorf("marker: invalid symbology %d", int(sym))
	}
	if len(payload) > 255 {
		return errors.New("marker: payload longer than 255 bytes")
	}
	if row < 0 || row >= frame.Height {
		return fmt.Errorf("marker: row %d outside frame height %d", row, frame.Height)
	}
	stride := frame.RowStride()
	bpp := frame.Format.BytesPerPixel()
	need := headerLen + len(payload)
	if need > frame.Width {
		return fmt.Errorf("marker: %d bytes do not fit in a %d pixel row", need, frame.Width)
	}

	buf := make([]byte, 0, need)
	buf = append(buf, magic...)
	buf = append(buf, byte(sym), flags, byte(len(payload)))
	buf = append(buf, payload...)
	if flags&FlagInverse != 0 {
		for i := range buf {
			buf[i] = ^buf[i]
		}
	}

	// Writes the marker into the first channel of each pixel.
	line := frame.Data[row*stride:]
	for i, b := range buf {
		line[i*bpp] = b
	}
	return nil
}

// Decode implements types.Decoder.
func (d *Decoder) Decode(frame *types.Frame, s types.Settings) (*types.DecodeResult, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	stride := frame.RowStride()
	bpp := frame.Format.BytesPerPixel()
	line := make([]byte, frame.Width)

	for y := 0; y < frame.Height; y++ {
		row := frame.Data[y*stride:]
		for x := range line {
			line[x] = row[x*bpp]
		}

		res, ok := d.decodeLine(line, false, s)
		if !ok && s.InverseDetection {
			res, ok = d.decodeLine(invert(line), true, s)
		}
		if !ok {
			continue
		}
		if res == nil {
			// Found but rejected by policy
			return nil, nil
		}
		res.Location = &types.Rect{X: 0, Y: y, Width: headerLen + len(res.Payload), Height: 1}
		return res, nil
	}
	return nil, nil
}

// decodeLine parses a marker at the start of line. ok reports whether a
// marker header was present; res is nil when the policy rejects the code.
func (d *Decoder) decodeLine(line []byte, inverted bool, s types.Settings) (res *types.DecodeResult, ok bool) {
	if len(line) < headerLen || !bytes.HasPrefix(line, magic) {
		return nil, false
	}
	sym := types.Symbology(line[4])
	flags := line[5]
	n := int(line[6])
	if !sym.Valid() || headerLen+n > len(line) {
		return nil, false
	}
	if (flags&FlagInverse != 0) != inverted {
		return nil, false
	}

	if !s.Enabled(sym) {
		return nil, true
	}
	if flags&FlagHidden2D != 0 && !s.ForcesLocalization2D() {
		return nil, true
	}
	if flags&FlagMicro != 0 && !s.MicroDataMatrix {
		return nil, true
	}

	payload := append([]byte(nil), line[headerLen:headerLen+n]...)
	result := &types.DecodeResult{
		Symbology: sym,
		Payload:   payload,
		Metadata:  map[string]string{"decoder": "marker"},
	}
	if inverted {
		result.Metadata["inverse"] = "true"
	}

	if sym == types.SymbologyMsiPlessey {
		outcome := VerifyMsi(payload, s.MsiChecksum)
		result.Checksum = outcome
		if outcome == types.ChecksumInvalid {
			return nil, true
		}
		result.Metadata["msi_checksum"] = s.MsiChecksum.String()
	}
	return result, true
}

func invert(line []byte) []byte {
	out := make([]byte, len(line))
	for i, b := range line {
		out[i] = ^b
	}
	return out
}
