package types

import "time"

// ChecksumOutcome reports how a symbology checksum was evaluated.
type ChecksumOutcome int

const (
	ChecksumNotApplicable ChecksumOutcome = iota
	ChecksumValid
	ChecksumInvalid
)

func (c ChecksumOutcome) String() string {
	switch c {
	case ChecksumValid:
		return "valid"
	case ChecksumInvalid:
		return "invalid"
	default:
		return "n/a"
	}
}

// DecodeResult is a recognized barcode.
type DecodeResult struct {
	Symbology Symbology `json:"-" msgpack:"-"`
	// Payload is the raw decoded content.
	Payload []byte `json:"payload" msgpack:"payload"`
	// Checksum is the checksum outcome where the symbology defines one.
	Checksum ChecksumOutcome `json:"-" msgpack:"-"`
	// Location is where the code was found, in source frame pixels.
	Location *Rect `json:"location,omitempty" msgpack:"location,omitempty"`
	// Metadata holds decoder specific key/values.
	Metadata map[string]string `json:"metadata,omitempty" msgpack:"metadata,omitempty"`

	// Filled by the router.
	FrameSeq   uint64        `json:"frame_seq" msgpack:"frame_seq"`
	TraceID    string        `json:"trace_id" msgpack:"trace_id"`
	Facing     Facing        `json:"-" msgpack:"-"`
	DecodedAt  time.Time     `json:"decoded_at" msgpack:"decoded_at"`
	DecodeTime time.Duration `json:"decode_time_ns" msgpack:"decode_time_ns"`
}

// Text returns the payload as a string.
func (r *DecodeResult) Text() string {
	return string(r.Payload)
}
