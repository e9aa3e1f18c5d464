// Package message defines the values a HEOS connection produces.
//
// Every line the device sends decodes into exactly one Frame:
//
//	UnderProcess(name)  the device is still working on a long-running command
//	Response            terminal result of a command
//	Event               unsolicited change notification
//	Error               terminal failure of a command
//
// Message bodies on the wire are query strings ("pid=1&state=play"); they are
// carried as Body values. Payload and options are embedded JSON and are kept
// as raw bytes.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoPayload is returned when decoding a payload or options field the
// device did not send.
var ErrNoPayload = errors.New("message: no payload")

// CommandResponse is the successful result of a command.
type CommandResponse struct {
	CommandName string          `json:"command_name"`
	Message     Body            `json:"message"`
	Payload     json.RawMessage `json:"payload"` // nil when absent or null
	Options     json.RawMessage `json:"options"` // nil when absent or null
}

// DecodePayload unmarshals the payload into v.
func (r *CommandResponse) DecodePayload(v any) error {
	return decodeRaw(r.Payload, v)
}

// DecodeOptions unmarshals the options into v.
func (r *CommandResponse) DecodeOptions(v any) error {
	return decodeRaw(r.Options, v)
}

func decodeRaw(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrNoPayload
	}
	return json.Unmarshal(raw, v)
}

// EventResponse is an unsolicited notification, e.g. event/player_state_changed.
type EventResponse struct {
	EventName string `json:"event_name"`
	Message   Body   `json:"message"`
}

// FrameKind tags the variant held by a Frame.
type FrameKind uint8

const (
	FrameUnderProcess FrameKind = iota + 1
	FrameResponse
	FrameEvent
	FrameError
)

func (k FrameKind) String() string {
	switch k {
	case FrameUnderProcess:
		return "under_process"
	case FrameResponse:
		return "response"
	case FrameEvent:
		return "event"
	case FrameError:
		return "error"
	}
	return fmt.Sprintf("FrameKind(%d)", uint8(k))
}

// Frame is one decoded protocol message. Only the field matching Kind is set.
type Frame struct {
	Kind     FrameKind
	Command  string // FrameUnderProcess
	Response *CommandResponse
	Event    *EventResponse
	Error    *ErrorMessage
}

func UnderProcessFrame(name string) Frame {
	return Frame{Kind: FrameUnderProcess, Command: name}
}

func ResponseFrame(r CommandResponse) Frame {
	return Frame{Kind: FrameResponse, Response: &r}
}

func EventFrame(e EventResponse) Frame {
	return Frame{Kind: FrameEvent, Event: &e}
}

func ErrorFrame(e ErrorMessage) Frame {
	return Frame{Kind: FrameError, Error: &e}
}

// Name returns the command or event name carried by the frame.
func (f Frame) Name() string {
	switch f.Kind {
	case FrameUnderProcess:
		return f.Command
	case FrameResponse:
		return f.Response.CommandName
	case FrameEvent:
		return f.Event.EventName
	case FrameError:
		return f.Error.Context
	}
	return ""
}

func (f Frame) String() string {
	return fmt.Sprintf("%s(%s)", f.Kind, f.Name())
}
