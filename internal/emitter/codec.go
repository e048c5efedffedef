package emitter

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes outgoing messages.
type Codec struct {
	name    string
	marshal func(v any) ([]byte, error)
}

// NewCodec returns the codec for format ("json" or "msgpack").
func NewCodec(format string) (Codec, error) {
	switch format {
	case "", "json":
		return Codec{name: "json", marshal: json.Marshal}, nil
	case "msgpack":
		return Codec{name: "msgpack", marshal: msgpack.Marshal}, nil
	default:
		return Codec{}, fmt.Errorf("emitter: unknown payload format %q", format)
	}
}

// Name returns the format name.
func (c Codec) Name() string { return c.name }

// Marshal encodes v.
func (c Codec) Marshal(v any) ([]byte, error) { return c.marshal(v) }
