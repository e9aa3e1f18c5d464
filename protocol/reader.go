package protocol

import (
	"errors"
	"io"

	"mini-heos/message"
)

// Reader reads frames from a byte stream.
type Reader struct {
	src     io.Reader
	asm     *Reassembler
	chunk   []byte
	readErr error // sticky error from src
}

func NewReader(src io.Reader, limits Limits) *Reader {
	if limits.ReadChunk <= 0 {
		limits.ReadChunk = DefaultLimits().ReadChunk
	}
	return &Reader{
		src:   src,
		asm:   NewReassembler(limits),
		chunk: make([]byte, limits.ReadChunk),
	}
}

// ReadFrame returns the next frame, reading from the stream only when no
// complete frame is buffered. Frames that arrived together in one read are
// returned by successive calls without touching the stream.
//
// At end of stream it returns io.EOF if the peer closed between frames and
// ErrConnectionReset if it closed inside one. Other read errors are returned
// as they are. A silent peer blocks ReadFrame indefinitely; deadlines belong
// to the underlying connection.
func (r *Reader) ReadFrame() (message.Frame, error) {
	for {
		frame, ok, err := r.asm.TryExtractFrame()
		if err != nil {
			return message.Frame{}, err
		}
		if ok {
			return frame, nil
		}

		if r.readErr != nil {
			if errors.Is(r.readErr, io.EOF) {
				return message.Frame{}, r.asm.Finish()
			}
			return message.Frame{}, r.readErr
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.asm.Feed(r.chunk[:n])
		}
		if err != nil {
			r.readErr = err
		}
	}
}

// Buffered reports the number of bytes received but not yet returned as frames.
func (r *Reader) Buffered() int {
	return r.asm.Buffered()
}
