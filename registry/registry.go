// Package registry finds HEOS devices.
//
// Three sources are provided: a static list from configuration, an etcd
// directory shared by several hosts, and mDNS browsing of the _heos-audio._tcp
// service that devices advertise on the local network.
package registry

import (
	"context"
	"errors"
)

var (
	ErrNoDevices      = errors.New("registry: no devices found")
	ErrDeviceNotFound = errors.New("registry: device not registered")
	ErrInvalidDevice  = errors.New("registry: device needs a name and an address")
)

// DeviceInstance is one reachable device. Addr is the host:port of its CLI.
type DeviceInstance struct {
	Name    string `json:"name"`
	Addr    string `json:"addr"`
	Weight  int    `json:"weight,omitempty"` // for weighted balancing
	Model   string `json:"model,omitempty"`
	Version string `json:"version,omitempty"`
}

func (d DeviceInstance) validate() error {
	if d.Name == "" || d.Addr == "" {
		return ErrInvalidDevice
	}
	return nil
}

type Registry interface {
	// Register announces inst for ttl seconds; implementations without
	// expiry ignore ttl.
	Register(ctx context.Context, inst DeviceInstance, ttl int64) error
	Deregister(ctx context.Context, name string) error
	Discover(ctx context.Context) ([]DeviceInstance, error)
	// Watch emits the full device list whenever it changes, until ctx ends.
	Watch(ctx context.Context) <-chan []DeviceInstance
}
