package registry

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	MDNSServiceType = "_heos-audio._tcp"
	mdnsDomain      = "local."
	// CLIPort is where every device accepts CLI connections, whatever port
	// it advertises over mDNS.
	CLIPort = 1255
)

type MDNSOptions struct {
	ScanTimeout time.Duration // how long Discover browses; default 3s
	// UseAdvertisedPort dials the port from the mDNS record instead of CLIPort.
	UseAdvertisedPort bool
	Logger            *zap.Logger
}

// MDNSRegistry browses the local network for devices. Register advertises
// an instance, which is how the emulator makes itself discoverable.
type MDNSRegistry struct {
	opts MDNSOptions

	mu      sync.Mutex
	servers map[string]*zeroconf.Server
}

func NewMDNSRegistry(opts MDNSOptions) *MDNSRegistry {
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &MDNSRegistry{opts: opts, servers: make(map[string]*zeroconf.Server)}
}

func (r *MDNSRegistry) Register(_ context.Context, inst DeviceInstance, _ int64) error {
	if err := inst.validate(); err != nil {
		return err
	}
	_, portStr, err := net.SplitHostPort(inst.Addr)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("registry: port %q: %w", portStr, err)
	}

	txt := []string{"model=" + inst.Model, "vers=" + inst.Version}
	server, err := zeroconf.Register(inst.Name, MDNSServiceType, mdnsDomain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	r.opts.Logger.Info("mdns advertising", zap.String("name", inst.Name), zap.Int("port", port))

	r.mu.Lock()
	old := r.servers[inst.Name]
	r.servers[inst.Name] = server
	r.mu.Unlock()
	if old != nil {
		old.Shutdown()
	}
	return nil
}

func (r *MDNSRegistry) Deregister(_ context.Context, name string) error {
	r.mu.Lock()
	server, ok := r.servers[name]
	delete(r.servers, name)
	r.mu.Unlock()
	if !ok {
		return ErrDeviceNotFound
	}
	server.Shutdown()
	return nil
}

// Discover browses for ScanTimeout and returns the devices that answered.
// If ctx ends first the partial result is discarded and ctx.Err() returned.
func (r *MDNSRegistry) Discover(ctx context.Context) ([]DeviceInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var devices []DeviceInstance
	var wg sync.WaitGroup

	scanCtx, cancel := context.WithTimeout(ctx, r.opts.ScanTimeout)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			inst, ok := r.entryToInstance(entry)
			if !ok {
				continue
			}
			if slices.ContainsFunc(devices, func(d DeviceInstance) bool { return d.Name == inst.Name }) {
				continue
			}
			devices = append(devices, inst)
			r.opts.Logger.Debug("mdns discovered device", zap.String("name", inst.Name), zap.String("addr", inst.Addr))
		}
	}()

	if err := resolver.Browse(scanCtx, MDNSServiceType, mdnsDomain, entries); err != nil {
		cancel()
		wg.Wait()
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	// The resolver closes entries once scanCtx is done.
	<-scanCtx.Done()
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

// Watch browses once per scan period and emits the list when it changes.
func (r *MDNSRegistry) Watch(ctx context.Context) <-chan []DeviceInstance {
	ch := make(chan []DeviceInstance, 1)
	go func() {
		defer close(ch)
		var last []DeviceInstance
		for ctx.Err() == nil {
			devices, err := r.Discover(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				r.opts.Logger.Warn("mdns watch scan failed", zap.Error(err))
				select {
				case <-time.After(r.opts.ScanTimeout):
				case <-ctx.Done():
				}
				continue
			}
			if ctx.Err() == nil && !slices.Equal(devices, last) {
				last = devices
				select {
				case ch <- devices:
				case <-ctx.Done():
				}
			}
		}
	}()
	return ch
}

func (r *MDNSRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range r.servers {
		s.Shutdown()
		delete(r.servers, name)
	}
}

func (r *MDNSRegistry) entryToInstance(entry *zeroconf.ServiceEntry) (DeviceInstance, bool) {
	port := CLIPort
	if r.opts.UseAdvertisedPort {
		port = entry.Port
	}
	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	default:
		return DeviceInstance{}, false
	}

	txt := parseTXTRecords(entry.Text)
	return DeviceInstance{
		Name:    entry.Instance,
		Addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		Model:   txt["model"],
		Version: txt["vers"],
	}, true
}

func parseTXTRecords(txt []string) map[string]string {
	m := make(map[string]string, len(txt))
	for _, t := range txt {
		k, v, ok := strings.Cut(t, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}
