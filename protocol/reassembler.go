package protocol

import (
	"bytes"
	"fmt"
	"io"

	"mini-heos/message"
)

// Reassembler cuts a byte stream into frames.
//
//	buf:  [ consumed | unconsumed ........................ ]
//	      0          start        scan                 len(buf)
//
// Bytes before start belong to frames already returned. Bytes in
// [start, scan) are known to hold no delimiter, so a search after a partial
// read resumes at scan instead of rescanning the whole pending frame.
//
// A Reassembler is owned by a single reader and is not safe for concurrent use.
type Reassembler struct {
	buf    []byte
	start  int
	scan   int
	limits Limits
}

func NewReassembler(limits Limits) *Reassembler {
	return &Reassembler{limits: limits}
}

// Feed appends bytes received from the transport. Nothing is decoded here.
func (r *Reassembler) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	r.compact()
	r.buf = append(r.buf, p...)
}

// TryExtractFrame returns the next complete frame if the buffer holds one.
// ok is false when more bytes are needed. A decode error consumes the bad
// frame; the connection should be considered broken.
func (r *Reassembler) TryExtractFrame() (frame message.Frame, ok bool, err error) {
	from := max(r.scan, r.start)
	idx := bytes.Index(r.buf[from:], delimiter)
	if idx < 0 {
		// The last byte may be the CR of a delimiter split across reads.
		r.scan = max(r.start, len(r.buf)-(len(delimiter)-1))
		if r.limits.MaxFrameBytes > 0 && r.Buffered() > r.limits.MaxFrameBytes {
			return message.Frame{}, false, fmt.Errorf("%w: %d bytes pending", ErrFrameTooLarge, r.Buffered())
		}
		return message.Frame{}, false, nil
	}

	end := from + idx
	line := r.buf[r.start:end]
	r.start = end + len(delimiter)
	r.scan = r.start

	frame, err = DecodeFrame(line)
	if err != nil {
		return message.Frame{}, false, err
	}
	return frame, true, nil
}

// Buffered reports the number of unconsumed bytes.
func (r *Reassembler) Buffered() int {
	return len(r.buf) - r.start
}

// Finish reports how the stream ended: io.EOF when no bytes are pending,
// ErrConnectionReset when the peer closed in the middle of a frame.
func (r *Reassembler) Finish() error {
	if r.Buffered() == 0 {
		return io.EOF
	}
	return fmt.Errorf("%w: %d bytes pending", ErrConnectionReset, r.Buffered())
}

// compact drops the consumed prefix once it is empty or dominates the buffer.
func (r *Reassembler) compact() {
	switch {
	case r.start == 0:
	case r.start == len(r.buf):
		r.buf = r.buf[:0]
		r.start, r.scan = 0, 0
	case r.start >= cap(r.buf)/2:
		n := copy(r.buf, r.buf[r.start:])
		r.buf = r.buf[:n]
		r.scan -= r.start
		r.start = 0
	}
}
