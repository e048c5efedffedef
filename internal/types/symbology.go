package types

import (
	"fmt"
	"strings"
)

// Symbology identifies a barcode format.
type Symbology int

const (
	SymbologyEan13Upc12 Symbology = iota
	SymbologyEan8
	SymbologyUpce
	SymbologyCode39
	SymbologyCode128
	SymbologyItf
	SymbologyMsiPlessey
	SymbologyQR
	SymbologyDataMatrix
	SymbologyPdf417

	symbologyCount
)

var symbologyNames = [symbologyCount]string{
	SymbologyEan13Upc12: "ean13",
	SymbologyEan8:       "ean8",
	SymbologyUpce:       "upce",
	SymbologyCode39:     "code39",
	SymbologyCode128:    "code128",
	SymbologyItf:        "itf",
	SymbologyMsiPlessey: "msi_plessey",
	SymbologyQR:         "qr",
	SymbologyDataMatrix: "datamatrix",
	SymbologyPdf417:     "pdf417",
}

// Symbologies returns every known symbology in declaration order.
func Symbologies() []Symbology {
	all := make([]Symbology, 0, symbologyCount)
	for s := Symbology(0); s < symbologyCount; s++ {
		all = append(all, s)
	}
	return all
}

// Valid reports whether s is a known symbology.
func (s Symbology) Valid() bool {
	return s >= 0 && s < symbologyCount
}

// Is2D reports whether s is a two-dimensional symbology.
func (s Symbology) Is2D() bool {
	return s == SymbologyQR || s == SymbologyDataMatrix || s == SymbologyPdf417
}

func (s Symbology) String() string {
	if !s.Valid() {
		return fmt.Sprintf("symbology(%d)", int(s))
	}
	return symbologyNames[s]
}

// ParseSymbology parses the String form of a Symbology. "upc12" and "upca"
// are accepted as aliases of ean13.
func ParseSymbology(name string) (Symbology, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "upc12", "upca", "ean13_upc12":
		return SymbologyEan13Upc12, nil
	case "msi":
		return SymbologyMsiPlessey, nil
	case "data_matrix":
		return SymbologyDataMatrix, nil
	}
	for s, known := range symbologyNames {
		if known == n {
			return Symbology(s), nil
		}
	}
	return 0, fmt.Errorf("unknown symbology %q", name)
}
