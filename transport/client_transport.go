// Package transport matches replies to commands on one HEOS connection.
//
// A device answers commands in order and echoes the command path in
// heos.command, but the same stream also carries unsolicited events and
// "command under process" notices. ClientTransport keeps one command in
// flight and lets a single goroutine (recvLoop) own the frame reader:
//
//	Call(player/get_volume) ──write──→ conn ──→ device
//	recvLoop: ←── event/...                 → Events()
//	          ←── player/get_volume (under process) → logged, skipped
//	          ←── player/get_volume (response)      → pending call wakes up
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"mini-heos/command"
	"mini-heos/message"
	"mini-heos/metrics"
	"mini-heos/protocol"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("transport: closed")

type Options struct {
	Limits protocol.Limits
	// EventBuffer is the capacity of the Events channel. Events arriving
	// while it is full are dropped.
	EventBuffer int
	// HeartbeatInterval enables system/heart_beat when positive.
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
	Metrics           *metrics.Collector
}

func DefaultOptions() Options {
	return Options{
		Limits:      protocol.DefaultLimits(),
		EventBuffer: 64,
	}
}

type pendingCall struct {
	name string
	ch   chan message.Frame // buffered, receives exactly one frame
}

// ClientTransport is safe for concurrent use; calls are serialized.
type ClientTransport struct {
	conn   net.Conn
	reader *protocol.Reader
	w      *bufio.Writer
	opts   Options
	logger *zap.Logger

	inflight chan struct{} // one command at a time
	sending  sync.Mutex    // guards w

	mu      sync.Mutex
	pending *pendingCall
	err     error

	events    chan message.EventResponse
	done      chan struct{}
	closeOnce sync.Once
}

// NewClientTransport starts the receive goroutine and, if configured, the
// heartbeat.
func NewClientTransport(conn net.Conn, opts Options) *ClientTransport {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.EventBuffer < 0 {
		opts.EventBuffer = 0
	}
	t := &ClientTransport{
		conn:     conn,
		reader:   protocol.NewReader(conn, opts.Limits),
		w:        bufio.NewWriter(conn),
		opts:     opts,
		logger:   opts.Logger.With(zap.String("remote", conn.RemoteAddr().String())),
		inflight: make(chan struct{}, 1),
		events:   make(chan message.EventResponse, opts.EventBuffer),
		done:     make(chan struct{}),
	}
	go t.recvLoop()
	if opts.HeartbeatInterval > 0 {
		go t.heartbeatLoop(opts.HeartbeatInterval)
	}
	return t
}

// Call sends p and waits for its response. A failure reported by the device
// is returned as *message.CommandError.
func (t *ClientTransport) Call(ctx context.Context, p command.Payload) (*message.CommandResponse, error) {
	select {
	case t.inflight <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, t.Err()
	}
	defer func() { <-t.inflight }()

	call := &pendingCall{name: p.Name(), ch: make(chan message.Frame, 1)}
	t.mu.Lock()
	if t.err != nil {
		t.mu.Unlock()
		return nil, t.err
	}
	t.pending = call
	t.mu.Unlock()

	if err := t.write(ctx, p); err != nil {
		t.clearPending(call)
		return nil, err
	}

	select {
	case f := <-call.ch:
		if f.Kind == message.FrameError {
			return nil, &message.CommandError{Message: *f.Error}
		}
		return f.Response, nil
	case <-ctx.Done():
		t.clearPending(call)
		return nil, ctx.Err()
	case <-t.done:
		return nil, t.Err()
	}
}

func (t *ClientTransport) write(ctx context.Context, p command.Payload) error {
	t.sending.Lock()
	defer t.sending.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("transport: set write deadline: %w", err)
		}
		defer func() {
			if err := t.conn.SetWriteDeadline(time.Time{}); err != nil {
				t.logger.Debug("clear write deadline", zap.Error(err))
			}
		}()
	}
	if err := protocol.WriteCommand(t.w, p.String()); err != nil {
		return err
	}
	if err := t.w.Flush(); err != nil {
		t.fail(fmt.Errorf("transport: write: %w", err))
		return err
	}
	return nil
}

func (t *ClientTransport) clearPending(call *pendingCall) {
	t.mu.Lock()
	if t.pending == call {
		t.pending = nil
	}
	t.mu.Unlock()
}

// recvLoop is the only reader of the connection.
func (t *ClientTransport) recvLoop() {
	defer close(t.events)
	for {
		f, err := t.reader.ReadFrame()
		if err != nil {
			t.fail(err)
			return
		}
		t.opts.Metrics.Frame(f.Kind.String())

		switch f.Kind {
		case message.FrameEvent:
			select {
			case t.events <- *f.Event:
			default:
				t.opts.Metrics.EventDropped()
				t.logger.Warn("event dropped, buffer full", zap.String("event", f.Name()))
			}
		case message.FrameUnderProcess:
			t.logger.Debug("command under process", zap.String("command", f.Name()))
		default:
			t.deliver(f)
		}
	}
}

func (t *ClientTransport) deliver(f message.Frame) {
	t.mu.Lock()
	call := t.pending
	if call != nil && call.name == f.Name() {
		t.pending = nil
	} else {
		call = nil
	}
	t.mu.Unlock()

	if call == nil {
		t.logger.Warn("dropping reply with no outstanding command", zap.Stringer("frame", f))
		return
	}
	call.ch <- f
}

// fail records the first fault and closes the connection.
func (t *ClientTransport) fail(err error) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.err = err
		t.pending = nil
		t.mu.Unlock()
		if !errors.Is(err, ErrClosed) {
			t.logger.Warn("transport failed", zap.Error(err))
		}
		close(t.done)
		t.conn.Close()
	})
}

// Events delivers unsolicited events. It is closed when the transport closes.
func (t *ClientTransport) Events() <-chan message.EventResponse {
	return t.events
}

// Done is closed once the transport has failed or been closed.
func (t *ClientTransport) Done() <-chan struct{} {
	return t.done
}

// Err returns the fault that closed the transport, nil while it is open.
func (t *ClientTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *ClientTransport) Close() error {
	t.fail(ErrClosed)
	return nil
}

// Conn returns the underlying connection.
func (t *ClientTransport) Conn() net.Conn {
	return t.conn
}

// heartbeatLoop issues system/heart_beat so idle connections stay open.
func (t *ClientTransport) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-t.done:
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		_, err := t.Call(ctx, command.HeartBeat{}.Payload())
		cancel()
		if err != nil {
			if t.Err() != nil {
				return
			}
			t.logger.Warn("heartbeat failed", zap.Error(err))
		}
	}
}
