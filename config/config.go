// Package config loads heosctl settings from TOML or YAML.
//
//	[device]
//	address = "192.168.1.20:1255"
//
//	[discovery]
//	mode = "mdns"          # static | etcd | mdns
//	balancer = "consistent_hash"
//	preferred = "Living Room"
//
//	[client]
//	command_timeout = "5s"
//	heartbeat_interval = "30s"
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mini-heos/loadbalance"
	"mini-heos/logging"
	"mini-heos/protocol"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvAddr overrides device.address when set.
const EnvAddr = "HEOS_ADDR"

const (
	ModeStatic = "static"
	ModeEtcd   = "etcd"
	ModeMDNS   = "mdns"
)

var (
	ErrUnsupportedFormat = errors.New("config: unsupported file extension")
	ErrInvalid           = errors.New("config: invalid")
)

// Duration is a time.Duration written as a string such as "5s".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	Device    DeviceConfig    `toml:"device" yaml:"device"`
	Discovery DiscoveryConfig `toml:"discovery" yaml:"discovery"`
	Client    ClientConfig    `toml:"client" yaml:"client"`
	Log       logging.Options `toml:"log" yaml:"log"`
	Metrics   MetricsConfig   `toml:"metrics" yaml:"metrics"`
}

type DeviceConfig struct {
	// Address is host or host:port; the port defaults to 1255.
	Address string `toml:"address" yaml:"address"`
	Name    string `toml:"name" yaml:"name"`
}

type DiscoveryConfig struct {
	Mode          string   `toml:"mode" yaml:"mode"`
	EtcdEndpoints []string `toml:"etcd_endpoints" yaml:"etcd_endpoints"`
	EtcdPrefix    string   `toml:"etcd_prefix" yaml:"etcd_prefix"`
	MDNSTimeout   Duration `toml:"mdns_timeout" yaml:"mdns_timeout"`
	// MDNSUseAdvertisedPort dials the mDNS record's port instead of 1255.
	MDNSUseAdvertisedPort bool   `toml:"mdns_use_advertised_port" yaml:"mdns_use_advertised_port"`
	Balancer              string `toml:"balancer" yaml:"balancer"`
	Preferred             string `toml:"preferred" yaml:"preferred"`
}

type ClientConfig struct {
	DialTimeout       Duration `toml:"dial_timeout" yaml:"dial_timeout"`
	CommandTimeout    Duration `toml:"command_timeout" yaml:"command_timeout"`
	HeartbeatInterval Duration `toml:"heartbeat_interval" yaml:"heartbeat_interval"`
	EventBuffer       int      `toml:"event_buffer" yaml:"event_buffer"`
	RateLimit         float64  `toml:"rate_limit" yaml:"rate_limit"` // commands per second, 0 disables
	RateBurst         int      `toml:"rate_burst" yaml:"rate_burst"`
	MaxFrameBytes     int      `toml:"max_frame_bytes" yaml:"max_frame_bytes"`
}

type MetricsConfig struct {
	Listen string `toml:"listen" yaml:"listen"` // empty disables the endpoint
}

func Default() Config {
	return Config{
		Discovery: DiscoveryConfig{
			Mode:        ModeStatic,
			EtcdPrefix:  "/heos/devices/",
			MDNSTimeout: Duration(3 * time.Second),
			Balancer:    loadbalance.StrategyRoundRobin,
		},
		Client: ClientConfig{
			DialTimeout:       Duration(5 * time.Second),
			CommandTimeout:    Duration(10 * time.Second),
			HeartbeatInterval: Duration(30 * time.Second),
			EventBuffer:       64,
			RateBurst:         1,
			MaxFrameBytes:     protocol.DefaultLimits().MaxFrameBytes,
		},
		Log: logging.DefaultOptions(),
	}
}

// Load reads path over Default and applies environment overrides. An empty
// path loads only the defaults. The format follows the extension: .toml,
// .yaml or .yml.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			err = toml.Unmarshal(data, &cfg)
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &cfg)
		default:
			return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
		}
		if err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}
	if addr := strings.TrimSpace(os.Getenv(EnvAddr)); addr != "" {
		cfg.Device.Address = addr
		cfg.Discovery.Mode = ModeStatic
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Discovery.Mode {
	case ModeStatic:
	case ModeEtcd:
		if len(c.Discovery.EtcdEndpoints) == 0 {
			return fmt.Errorf("%w: discovery.etcd_endpoints is required in etcd mode", ErrInvalid)
		}
	case ModeMDNS:
		if c.Discovery.MDNSTimeout <= 0 {
			return fmt.Errorf("%w: discovery.mdns_timeout must be positive", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: discovery.mode %q", ErrInvalid, c.Discovery.Mode)
	}
	if _, err := loadbalance.New(c.Discovery.Balancer, c.Discovery.Preferred); err != nil {
		return fmt.Errorf("%w: discovery.balancer: %v", ErrInvalid, err)
	}
	if c.Client.DialTimeout <= 0 || c.Client.CommandTimeout <= 0 {
		return fmt.Errorf("%w: client timeouts must be positive", ErrInvalid)
	}
	if c.Client.HeartbeatInterval < 0 {
		return fmt.Errorf("%w: client.heartbeat_interval must not be negative", ErrInvalid)
	}
	if c.Client.EventBuffer < 0 || c.Client.MaxFrameBytes < 0 {
		return fmt.Errorf("%w: client sizes must not be negative", ErrInvalid)
	}
	if c.Client.RateLimit < 0 || (c.Client.RateLimit > 0 && c.Client.RateBurst < 1) {
		return fmt.Errorf("%w: client.rate_limit needs a non-negative rate and a burst of at least 1", ErrInvalid)
	}
	return nil
}

// DeviceAddr returns device.address with the CLI port filled in.
func (c Config) DeviceAddr() string {
	addr := strings.TrimSpace(c.Device.Address)
	if addr == "" {
		return ""
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), fmt.Sprint(protocol.DefaultPort))
}

// Limits returns the framing limits for client connections.
func (c Config) Limits() protocol.Limits {
	l := protocol.DefaultLimits()
	l.MaxFrameBytes = c.Client.MaxFrameBytes
	return l
}
