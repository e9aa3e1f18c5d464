package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mini-heos/codec"
	"mini-heos/message"
)

// Header is the "heos" object of an envelope.
type Header struct {
	Command *string `json:"command"`
	Result  string  `json:"result,omitempty"`
	Message string  `json:"message"`
}

// Envelope is the JSON object of one frame.
type Envelope struct {
	Heos    *Header         `json:"heos"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Options json.RawMessage `json:"options,omitempty"`
}

// ResponseName is heos.command classified by its prefix.
type ResponseName struct {
	Name  string
	Event bool
}

// ParseResponseName classifies names starting with "event" as events and
// everything else as commands.
func ParseResponseName(s string) ResponseName {
	return ResponseName{Name: s, Event: strings.HasPrefix(s, EventPrefix)}
}

var envelopeCodec = codec.GetCodec(codec.CodecTypeJSON)

// DecodeFrame parses one frame body (without the delimiter) and classifies it.
func DecodeFrame(line []byte) (message.Frame, error) {
	var env Envelope
	if err := envelopeCodec.Decode(line, &env); err != nil {
		return message.Frame{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return DecodeEnvelope(env)
}

// DecodeEnvelope turns an envelope into a Frame. The first matching rule wins:
//
//  1. result "fail"                   → FrameError, for commands and events alike
//  2. event name                      → FrameEvent
//  3. message "command under process" → FrameUnderProcess
//  4. anything else                   → FrameResponse
//
// An envelope without heos.command, or a failure whose message lacks eid and
// text, is an error. Message bodies that merely fail to match the query
// schema are not: they decode as opaque bodies.
func DecodeEnvelope(env Envelope) (message.Frame, error) {
	if env.Heos == nil || env.Heos.Command == nil {
		return message.Frame{}, ErrMissingCommand
	}
	name := ParseResponseName(*env.Heos.Command)
	h := env.Heos

	switch {
	case h.Result == ResultFail:
		em, err := codec.DecodeErrorBody(h.Message)
		if err != nil {
			return message.Frame{}, fmt.Errorf("protocol: %s: %w", name.Name, err)
		}
		em.Context = name.Name
		return message.ErrorFrame(em), nil

	case name.Event:
		return message.EventFrame(message.EventResponse{
			EventName: name.Name,
			Message:   codec.DecodeQuery(h.Message),
		}), nil

	case h.Message == UnderProcessMessage:
		return message.UnderProcessFrame(name.Name), nil

	default:
		return message.ResponseFrame(message.CommandResponse{
			CommandName: name.Name,
			Message:     codec.DecodeQuery(h.Message),
			Payload:     normalizeRaw(env.Payload),
			Options:     normalizeRaw(env.Options),
		}), nil
	}
}

// EncodeEnvelope writes env as one frame.
func EncodeEnvelope(w io.Writer, env Envelope) error {
	data, err := envelopeCodec.Encode(env)
	if err != nil {
		return err
	}
	data = append(data, Delimiter...)
	_, err = w.Write(data)
	return err
}

// normalizeRaw maps absent and explicit null to nil.
func normalizeRaw(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return raw
}
