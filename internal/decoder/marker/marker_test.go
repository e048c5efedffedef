package marker

import (
	"testing"

	"github.com/e7canasta/scansession/internal/types"
)

func blankFrame(w, h int) *types.Frame {
	return &types.Frame{Width: w, Height: h, Format: types.FormatGray8, Data: make([]byte, w*h)}
}

func TestDecode_RoundTrip(t *testing.T) {
	frame := blankFrame(64, 32)
	if err := Embed(frame, 10, types.SymbologyCode128, 0, []byte("HELLO-42")); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	res, err := New().Decode(frame, types.DefaultSettings())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.Symbology != types.SymbologyCode128 || res.Text() != "HELLO-42" {
		t.Errorf("got %s %q", res.Symbology, res.Text())
	}
	if res.Location == nil || res.Location.Y != 10 {
		t.Errorf("location = %+v, want row 10", res.Location)
	}
}

func TestDecode_NothingFound(t *testing.T) {
	res, err := New().Decode(blankFrame(32, 32), types.DefaultSettings())
	if err != nil || res != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", res, err)
	}
}

func TestDecode_Policy(t *testing.T) {
	tests := []struct {
		name   string
		sym    types.Symbology
		flags  byte
		adjust func(s types.Settings) types.Settings
		found  bool
	}{
		{"default qr", types.SymbologyQR, 0, nil, true},
		{"msi disabled by default", types.SymbologyMsiPlessey, 0, nil, false},
		{"2d group off", types.SymbologyQR, 0, func(s types.Settings) types.Settings {
			s.Enabled2D = false
			return s
		}, false},
		{"1d group off keeps 2d", types.SymbologyDataMatrix, 0, func(s types.Settings) types.Settings {
			s.Enabled1D = false
			return s
		}, true},
		{"symbology off", types.SymbologyEan8, 0, func(s types.Settings) types.Settings {
			return s.WithSymbology(types.SymbologyEan8, false)
		}, false},
		{"inverse without detection", types.SymbologyQR, FlagInverse, nil, false},
		{"inverse with detection", types.SymbologyQR, FlagInverse, func(s types.Settings) types.Settings {
			s.InverseDetection = true
			return s
		}, true},
		{"hidden 2d without force", types.SymbologyQR, FlagHidden2D, nil, false},
		{"hidden 2d with force", types.SymbologyQR, FlagHidden2D, func(s types.Settings) types.Settings {
			s.Force2D = true
			return s
		}, true},
		{"hidden 2d with micro datamatrix", types.SymbologyDataMatrix, FlagHidden2D | FlagMicro, func(s types.Settings) types.Settings {
			s.MicroDataMatrix = true
			return s
		}, true},
		{"micro without localizer", types.SymbologyDataMatrix, FlagMicro, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := blankFrame(64, 8)
			if err := Embed(frame, 3, tt.sym, tt.flags, []byte("X1")); err != nil {
				t.Fatal(err)
			}
			s := types.DefaultSettings()
			if tt.adjust != nil {
				s = tt.adjust(s)
			}
			res, err := New().Decode(frame, s)
			if err != nil {
				t.Fatal(err)
			}
			if (res != nil) != tt.found {
				t.Errorf("found = %v, want %v", res != nil, tt.found)
			}
		})
	}
}

func TestDecode_MsiChecksum(t *testing.T) {
	schemes := []types.MsiChecksum{
		types.MsiChecksumMod10,
		types.MsiChecksumMod1010,
		types.MsiChecksumMod11,
		types.MsiChecksumMod1110,
	}
	for _, scheme := range schemes {
		t.Run(scheme.String(), func(t *testing.T) {
			payload := AppendMsi([]byte("1234567"), scheme)
			if got := VerifyMsi(payload, scheme); got != types.ChecksumValid {
				t.Fatalf("VerifyMsi(%s) = %s, want valid", payload, got)
			}

			corrupt := append([]byte(nil), payload...)
			last := len(corrupt) - 1
			corrupt[last] = '0' + (corrupt[last]-'0'+1)%10
			if got := VerifyMsi(corrupt, scheme); got != types.ChecksumInvalid {
				t.Errorf("corrupted %s accepted", corrupt)
			}

			frame := blankFrame(64, 4)
			if err := Embed(frame, 0, types.SymbologyMsiPlessey, 0, payload); err != nil {
				t.Fatal(err)
			}
			s := types.DefaultSettings().WithSymbology(types.SymbologyMsiPlessey, true)
			s.MsiChecksum = scheme
			res, err := New().Decode(frame, s)
			if err != nil || res == nil {
				t.Fatalf("expected decode, got (%v, %v)", res, err)
			}
			if res.Checksum != types.ChecksumValid {
				t.Errorf("checksum outcome = %s", res.Checksum)
			}
		})
	}
}

func TestMsiMod10_KnownValue(t *testing.T) {
	// Luhn check digit of 1234567 is 4
	if got := string(AppendMsi([]byte("1234567"), types.MsiChecksumMod10)); got != "12345674" {
		t.Errorf("AppendMsi = %s, want 12345674", got)
	}
	if VerifyMsi([]byte("12A4"), types.MsiChecksumMod10) != types.ChecksumInvalid {
		t.Error("non-digit payload accepted")
	}
	if VerifyMsi([]byte("anything"), types.MsiChecksumNone) != types.ChecksumNotApplicable {
		t.Error("None scheme should not apply")
	}
}

func TestEmbed_Errors(t *testing.T) {
	frame := blankFrame(10, 2)
	if err := Embed(frame, 0, types.SymbologyQR, 0, []byte("too long for row")); err == nil {
		t.Error("expected error for payload wider than frame")
	}
	if err := Embed(frame, 5, types.SymbologyQR, 0, nil); err == nil {
		t.Error("expected error for row outside frame")
	}
	if err := Embed(frame, 0, types.Symbology(99), 0, nil); err == nil {
		t.Error("expected error for invalid symbology")
	}
}

func TestDecode_RGBFrame(t *testing.T) {
	frame := &types.Frame{Width: 32, Height: 4, Format: types.FormatRGB24, Data: make([]byte, 32*4*3)}
	if err := Embed(frame, 2, types.SymbologyItf, 0, []byte("0042")); err != nil {
		t.Fatal(err)
	}
	res, err := New().Decode(frame, types.DefaultSettings())
	if err != nil || res == nil || res.Text() != "0042" {
		t.Fatalf("got (%v, %v)", res, err)
	}
}
