// Package protocol implements HEOS CLI framing.
//
// The device speaks line-delimited JSON over TCP port 1255. Each frame is one
// JSON object terminated by CR LF; there is no length prefix:
//
//	{"heos":{"command":"player/get_volume","result":"success","message":"pid=1&level=20"}}\r\n
//
// Commands travel the other way as plain text lines:
//
//	heos://player/get_volume?pid=1\r\n
//
// A Reassembler accumulates bytes from the socket and cuts them into frames;
// DecodeEnvelope classifies each frame as an under-process notice, a
// response, an event or an error.
package protocol

import (
	"errors"
	"fmt"
	"io"
)

const (
	// Delimiter terminates every frame in both directions.
	Delimiter = "\r\n"
	// EventPrefix marks heos.command values that name events.
	EventPrefix = "event"
	// UnderProcessMessage is the message the device sends while a
	// long-running command is still executing.
	UnderProcessMessage = "command under process"
	// ResultFail is the heos.result value of a failed command.
	ResultFail    = "fail"
	ResultSuccess = "success"
	// DefaultPort is the CLI port of every HEOS device.
	DefaultPort = 1255
)

var delimiter = []byte(Delimiter)

var (
	ErrMissingCommand  = errors.New("protocol: envelope has no heos.command")
	ErrInvalidJSON     = errors.New("protocol: frame is not valid JSON")
	ErrConnectionReset = errors.New("protocol: connection reset by peer while reading frame")
	ErrFrameTooLarge   = errors.New("protocol: frame exceeds size limit")
	ErrInvalidCommand  = errors.New("protocol: command contains a line break")
)

// Limits bounds the memory a single connection may hold.
type Limits struct {
	MaxFrameBytes int // largest partial frame kept while waiting for a delimiter; 0 means unlimited
	ReadChunk     int // bytes requested from the transport per read
}

func DefaultLimits() Limits {
	return Limits{
		MaxFrameBytes: 4 * 1024 * 1024,
		ReadChunk:     16 * 1024,
	}
}

// WriteCommand writes one command line. payload is the full command
// including the heos:// scheme.
func WriteCommand(w io.Writer, payload string) error {
	for i := 0; i < len(payload); i++ {
		if payload[i] == '\r' || payload[i] == '\n' {
			return fmt.Errorf("%w: %q", ErrInvalidCommand, payload)
		}
	}
	buf := make([]byte, 0, len(payload)+len(Delimiter))
	buf = append(buf, payload...)
	buf = append(buf, Delimiter...)
	_, err := w.Write(buf)
	return err
}
