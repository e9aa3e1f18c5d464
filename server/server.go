// Package server implements an in-process HEOS device emulator.
//
// It accepts CLI connections, reads one command line at a time and answers
// with JSON envelopes, the way a device on port 1255 does:
//
//	Accept conn → handleConn (one goroutine per connection)
//	  → read "heos://name?args" line → handler for name → write envelope(s)
//
// Connections that sent system/register_for_change_events?enable=on also
// receive the events passed to Broadcast.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mini-heos/codec"
	"mini-heos/command"
	"mini-heos/message"
	"mini-heos/protocol"
	"mini-heos/registry"

	"go.uber.org/zap"
)

var (
	ErrNotListening = errors.New("server: not listening")
	ErrServerClosed = errors.New("server: closed")
)

// Request is one parsed command line.
type Request struct {
	Name  string     // e.g. "player/get_volume"
	Query string     // raw query, echoed back in replies
	Args  url.Values // parsed query

	conn *conn
}

// HandlerFunc answers a request.
type HandlerFunc func(ctx context.Context, req *Request) Reply

// Reply is what the emulator writes back for one command.
type Reply struct {
	fail    bool
	message string
	payload any
	options any

	// set by UnderProcess
	deferred bool
	delay    time.Duration
}

// Success replies with result=success. payload may be nil.
func Success(msg string, payload any) Reply {
	return Reply{message: msg, payload: payload}
}

// Fail replies with result=fail and an eid/text message body.
func Fail(kind message.ErrorKind, text string) Reply {
	return Reply{fail: true, message: fmt.Sprintf("eid=%d&text=%s", kind.Code(), codec.EscapeValue(text))}
}

// WithOptions attaches an options object to a success reply.
func (r Reply) WithOptions(options any) Reply {
	r.options = options
	return r
}

// UnderProcess sends "command under process" first and final after delay.
func UnderProcess(final Reply, delay time.Duration) Reply {
	final.deferred = true
	final.delay = delay
	return final
}

type conn struct {
	c       net.Conn
	writeMu sync.Mutex
	events  atomic.Bool
}

func (c *conn) write(env protocol.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.EncodeEnvelope(c.c, env)
}

type Server struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	listener net.Listener
	wg       sync.WaitGroup // open connections
	shutdown atomic.Bool
	quit     chan struct{} // closed by Shutdown
	quitOnce sync.Once

	connMu sync.Mutex
	conns  map[*conn]struct{}

	registry registry.Registry
	device   registry.DeviceInstance
	logger   *zap.Logger
}

// NewServer returns an emulator that already answers heart_beat and
// register_for_change_events. logger may be nil.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		handlers: make(map[string]HandlerFunc),
		conns:    make(map[*conn]struct{}),
		quit:     make(chan struct{}),
		logger:   logger,
	}
	s.Handle(command.HeartBeatName, func(_ context.Context, req *Request) Reply {
		return Success(req.Query, nil)
	})
	s.Handle(command.RegisterForChangeEventsName, registerForChangeEvents)
	return s
}

func registerForChangeEvents(_ context.Context, req *Request) Reply {
	v, err := message.ParseOnOff(req.Args.Get("enable"))
	if err != nil {
		return Fail(message.ErrParameterOutOfRange, "Parameter out of range")
	}
	req.conn.events.Store(v == message.On)
	return Success(req.Query, nil)
}

// Handle registers h for a command name, replacing any earlier handler.
func (s *Server) Handle(name string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

// Listen binds the listener. Serve must be called to accept connections.
func (s *Server) Listen(network, address string) error {
	l, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until Shutdown. If reg is not nil, device is
// registered first; an empty device.Addr is replaced by the listen address.
func (s *Server) Serve(device registry.DeviceInstance, reg registry.Registry) error {
	if s.listener == nil {
		return ErrNotListening
	}
	if reg != nil {
		if device.Addr == "" {
			device.Addr = s.listener.Addr().String()
		}
		s.registry = reg
		s.device = device
		if err := reg.Register(context.Background(), device, 10); err != nil {
			return fmt.Errorf("server: register %s: %w", device.Name, err)
		}
	}

	for {
		c, err := s.listener.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return nil
			}
			return err
		}
		if s.shutdown.Load() {
			c.Close()
			return nil
		}
		cn := &conn{c: c}
		s.connMu.Lock()
		s.conns[cn] = struct{}{}
		s.connMu.Unlock()
		s.wg.Add(1)
		go s.handleConn(cn)
	}
}

// ListenAndServe combines Listen and Serve.
func (s *Server) ListenAndServe(network, address string, device registry.DeviceInstance, reg registry.Registry) error {
	if err := s.Listen(network, address); err != nil {
		return err
	}
	return s.Serve(device, reg)
}

// handleConn answers commands in the order they arrive. A device never
// interleaves replies to two commands on one connection.
func (s *Server) handleConn(cn *conn) {
	defer s.wg.Done()
	defer func() {
		s.connMu.Lock()
		delete(s.conns, cn)
		s.connMu.Unlock()
		cn.c.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc := bufio.NewScanner(cn.c)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		req := parseRequest(line)
		req.conn = cn
		if err := s.dispatch(ctx, req); err != nil {
			s.logger.Debug("emulator write failed", zap.String("command", req.Name), zap.Error(err))
			return
		}
	}
}

func parseRequest(line string) *Request {
	name, query, _ := strings.Cut(strings.TrimPrefix(line, command.Scheme), "?")
	args, _ := codec.ParseValues(query)
	return &Request{Name: name, Query: query, Args: args}
}

func (s *Server) dispatch(ctx context.Context, req *Request) error {
	s.mu.RLock()
	h, ok := s.handlers[req.Name]
	s.mu.RUnlock()

	var reply Reply
	if ok {
		reply = h(ctx, req)
	} else {
		reply = Fail(message.ErrUnrecognizedCommand, "Unrecognized Command")
	}
	s.logger.Debug("emulator reply", zap.String("command", req.Name), zap.Bool("fail", reply.fail))

	if reply.deferred {
		if err := req.conn.write(envelope(req.Name, "", protocol.UnderProcessMessage, nil, nil)); err != nil {
			return err
		}
		select {
		case <-time.After(reply.delay):
		case <-ctx.Done():
			return ctx.Err()
		case <-s.quit:
			return ErrServerClosed
		}
	}

	result, msg := protocol.ResultSuccess, reply.message
	if reply.fail {
		result = protocol.ResultFail
		if req.Query != "" {
			msg += "&" + req.Query
		}
	}
	payload, err := marshalRaw(reply.payload)
	if err != nil {
		return err
	}
	options, err := marshalRaw(reply.options)
	if err != nil {
		return err
	}
	return req.conn.write(envelope(req.Name, result, msg, payload, options))
}

// Broadcast sends an event to every connection registered for change
// events. name is the full event name, e.g. "event/player_volume_changed".
func (s *Server) Broadcast(name, msg string) int {
	env := envelope(name, "", msg, nil, nil)
	s.connMu.Lock()
	targets := make([]*conn, 0, len(s.conns))
	for cn := range s.conns {
		if cn.events.Load() {
			targets = append(targets, cn)
		}
	}
	s.connMu.Unlock()

	sent := 0
	for _, cn := range targets {
		if err := cn.write(env); err != nil {
			s.logger.Debug("emulator event write failed", zap.String("event", name), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// Shutdown deregisters the device, stops accepting and closes every
// connection, then waits up to timeout for connection goroutines to exit.
func (s *Server) Shutdown(timeout time.Duration) error {
	if s.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := s.registry.Deregister(ctx, s.device.Name); err != nil {
			s.logger.Warn("emulator deregister failed", zap.String("device", s.device.Name), zap.Error(err))
		}
		cancel()
	}

	s.shutdown.Store(true)
	s.quitOnce.Do(func() { close(s.quit) })
	if s.listener != nil {
		s.listener.Close()
	}
	s.connMu.Lock()
	for cn := range s.conns {
		cn.c.Close()
	}
	s.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("server: timeout waiting for connections to close")
	}
}

func envelope(name, result, msg string, payload, options json.RawMessage) protocol.Envelope {
	return protocol.Envelope{
		Heos:    &protocol.Header{Command: &name, Result: result, Message: msg},
		Payload: payload,
		Options: options,
	}
}

func marshalRaw(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
