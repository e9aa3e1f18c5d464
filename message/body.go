package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Params is the fixed schema of keys the device puts into query-string
// message bodies. A nil field means the key was absent.
type Params struct {
	PlayerID   *int64     `json:"pid,omitempty"`
	GroupID    *int64     `json:"gid,omitempty"`
	Level      *uint8     `json:"level,omitempty"`
	Mute       *OnOff     `json:"mute,omitempty"`
	Shuffle    *OnOff     `json:"shuffle,omitempty"`
	Repeat     *Repeat    `json:"repeat,omitempty"`
	Username   *string    `json:"un,omitempty"`
	Text       *string    `json:"text,omitempty"`
	ErrorID    *int       `json:"eid,omitempty"`
	CurrentPos *uint64    `json:"cur_pos,omitempty"` // milliseconds
	Duration   *uint64    `json:"duration,omitempty"` // milliseconds
	State      *PlayState `json:"state,omitempty"`
}

// BodyKind tells how a query-string body was understood.
type BodyKind uint8

const (
	BodyEmpty      BodyKind = iota // no body; renders as null
	BodyStructured                 // parsed against Params
	BodyOpaque                     // did not match Params; Raw holds the original text
)

func (k BodyKind) String() string {
	switch k {
	case BodyEmpty:
		return "empty"
	case BodyStructured:
		return "structured"
	case BodyOpaque:
		return "opaque"
	}
	return fmt.Sprintf("BodyKind(%d)", uint8(k))
}

// Body is a decoded message body.
//
//   - BodyEmpty:      Params is zero, Raw is ""
//   - BodyStructured: Params holds the recognized keys, Raw is the wire text
//   - BodyOpaque:     Params is zero, Raw is the wire text
type Body struct {
	Kind   BodyKind
	Params Params
	Raw    string
}

func StructuredBody(raw string, p Params) Body {
	return Body{Kind: BodyStructured, Params: p, Raw: raw}
}

func OpaqueBody(raw string) Body {
	return Body{Kind: BodyOpaque, Raw: raw}
}

func (b Body) IsEmpty() bool      { return b.Kind == BodyEmpty }
func (b Body) IsStructured() bool { return b.Kind == BodyStructured }
func (b Body) IsOpaque() bool     { return b.Kind == BodyOpaque }

// MarshalJSON renders the body as null, an object without absent fields, or
// a plain string.
func (b Body) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case BodyStructured:
		return json.Marshal(b.Params)
	case BodyOpaque:
		return json.Marshal(b.Raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON. Raw is not recoverable for
// structured bodies and stays empty.
func (b *Body) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*b = Body{}
	case data[0] == '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*b = OpaqueBody(raw)
	case data[0] == '{':
		var p Params
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*b = Body{Kind: BodyStructured, Params: p}
	default:
		return fmt.Errorf("message: body must be null, string or object, got %s", data)
	}
	return nil
}
