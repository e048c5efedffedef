package emitter

import (
	"time"

	"github.com/e7canasta/scansession/internal/types"
)

// Location is where a code was found, in source frame pixels.
type Location struct {
	X      int `json:"x" msgpack:"x"`
	Y      int `json:"y" msgpack:"y"`
	Width  int `json:"width" msgpack:"width"`
	Height int `json:"height" msgpack:"height"`
}

// ResultMessage is published for every recognized code.
type ResultMessage struct {
	InstanceID   string            `json:"instance_id" msgpack:"instance_id"`
	SessionID    string            `json:"session_id" msgpack:"session_id"`
	Symbology    string            `json:"symbology" msgpack:"symbology"`
	Text         string            `json:"text" msgpack:"text"`
	Payload      []byte            `json:"payload" msgpack:"payload"`
	Checksum     string            `json:"checksum" msgpack:"checksum"`
	Location     *Location         `json:"location,omitempty" msgpack:"location,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
	FrameSeq     uint64            `json:"frame_seq" msgpack:"frame_seq"`
	TraceID      string            `json:"trace_id" msgpack:"trace_id"`
	Facing       string            `json:"facing" msgpack:"facing"`
	DecodedAt    time.Time         `json:"decoded_at" msgpack:"decoded_at"`
	DecodeTimeMS float64           `json:"decode_time_ms" msgpack:"decode_time_ms"`
}

// CancelMessage is published when an in-flight decode was abandoned.
type CancelMessage struct {
	InstanceID string    `json:"instance_id" msgpack:"instance_id"`
	SessionID  string    `json:"session_id" msgpack:"session_id"`
	Reason     string    `json:"reason" msgpack:"reason"`
	At         time.Time `json:"at" msgpack:"at"`
}

// CaptureMessage carries one encoded camera frame.
type CaptureMessage struct {
	CaptureID  string    `json:"capture_id" msgpack:"capture_id"`
	InstanceID string    `json:"instance_id" msgpack:"instance_id"`
	SessionID  string    `json:"session_id" msgpack:"session_id"`
	Width      int       `json:"width" msgpack:"width"`
	Height     int       `json:"height" msgpack:"height"`
	Size       int       `json:"size" msgpack:"size"`
	Image      []byte    `json:"image" msgpack:"image"`
	CapturedAt time.Time `json:"captured_at" msgpack:"captured_at"`
}

func newResultMessage(instanceID, sessionID string, r *types.DecodeResult) ResultMessage {
	msg := ResultMessage{
		InstanceID:   instanceID,
		SessionID:    sessionID,
		Symbology:    r.Symbology.String(),
		Text:         r.Text(),
		Payload:      r.Payload,
		Checksum:     r.Checksum.String(),
		Metadata:     r.Metadata,
		FrameSeq:     r.FrameSeq,
		TraceID:      r.TraceID,
		Facing:       r.Facing.String(),
		DecodedAt:    r.DecodedAt,
		DecodeTimeMS: float64(r.DecodeTime.Microseconds()) / 1000,
	}
	if loc := r.Location; loc != nil {
		msg.Location = &Location{X: loc.X, Y: loc.Y, Width: loc.Width, Height: loc.Height}
	}
	return msg
}
