// Package client connects to a HEOS device and executes commands on it.
//
//	Connect: registry.Discover → balancer.Pick → dial → transport
//	Execute: middleware chain → transport.Call
//
// A client holds one connection. If it breaks, the next Execute discovers
// and dials again.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"mini-heos/command"
	"mini-heos/loadbalance"
	"mini-heos/message"
	"mini-heos/middleware"
	"mini-heos/registry"
	"mini-heos/transport"

	"go.uber.org/zap"
)

var (
	ErrClosed       = errors.New("client: closed")
	ErrNotConnected = errors.New("client: not connected")
)

type Options struct {
	DialTimeout time.Duration
	Transport   transport.Options
	Logger      *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		DialTimeout: 5 * time.Second,
		Transport:   transport.DefaultOptions(),
	}
}

type Client struct {
	registry registry.Registry
	balancer loadbalance.Balancer
	opts     Options
	logger   *zap.Logger

	mu          sync.Mutex
	middlewares []middleware.Middleware
	transport   *transport.ClientTransport
	handler     middleware.HandlerFunc
	device      registry.DeviceInstance
	closed      bool
}

func NewClient(reg registry.Registry, bal loadbalance.Balancer, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Transport.Logger == nil {
		opts.Transport.Logger = opts.Logger
	}
	if bal == nil {
		bal = &loadbalance.RoundRobinBalancer{}
	}
	return &Client{registry: reg, balancer: bal, opts: opts, logger: opts.Logger}
}

// Dial connects to a single known address.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	reg := registry.NewStaticRegistry(registry.DeviceInstance{Name: addr, Addr: addr})
	c := NewClient(reg, nil, opts)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Use appends a middleware. It applies from the next Connect on.
func (c *Client) Use(mw middleware.Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = append(c.middlewares, mw)
}

// Connect replaces the current connection with a new one to the device the
// balancer picks.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	devices, err := c.registry.Discover(ctx)
	if err != nil {
		return fmt.Errorf("client: discover: %w", err)
	}
	if len(devices) == 0 {
		return registry.ErrNoDevices
	}
	device, err := c.balancer.Pick(devices)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: c.opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", device.Addr)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", device.Addr, err)
	}

	if c.transport != nil {
		c.transport.Close()
	}
	c.transport = transport.NewClientTransport(conn, c.opts.Transport)
	c.handler = middleware.Chain(c.middlewares...)(c.transport.Call)
	c.device = *device
	c.logger.Info("connected", zap.String("device", device.Name), zap.String("addr", device.Addr), zap.String("balancer", c.balancer.Name()))
	return nil
}

// current returns the live handler, reconnecting if the connection broke.
func (c *Client) current(ctx context.Context) (middleware.HandlerFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.transport == nil {
		return nil, ErrNotConnected
	}
	select {
	case <-c.transport.Done():
		c.logger.Info("reconnecting", zap.String("device", c.device.Name), zap.Error(c.transport.Err()))
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	default:
	}
	return c.handler, nil
}

// Execute sends cmd and returns the device's response. A rejection by the
// device is a *message.CommandError.
func (c *Client) Execute(ctx context.Context, cmd command.Command) (*message.CommandResponse, error) {
	h, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return h(ctx, cmd.Payload())
}

// ExecuteInto executes cmd and decodes the response payload into v.
func (c *Client) ExecuteInto(ctx context.Context, cmd command.Command, v any) error {
	resp, err := c.Execute(ctx, cmd)
	if err != nil {
		return err
	}
	return resp.DecodePayload(v)
}

// Events returns the event channel of the current connection, nil when not
// connected. It is closed when that connection ends.
func (c *Client) Events() <-chan message.EventResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport == nil {
		return nil
	}
	return c.transport.Events()
}

// Device returns the device of the current connection.
func (c *Client) Device() registry.DeviceInstance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device
}

func (c *Client) Addr() string {
	return c.Device().Addr
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.transport != nil {
		return c.transport.Close()
	}
	return nil
}
