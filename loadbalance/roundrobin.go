package loadbalance

import (
	"sync/atomic"

	"mini-heos/registry"
)

// RoundRobinBalancer cycles through devices in list order.
type RoundRobinBalancer struct {
	counter atomic.Uint64
}

func (b *RoundRobinBalancer) Pick(devices []registry.DeviceInstance) (*registry.DeviceInstance, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	index := (b.counter.Add(1) - 1) % uint64(len(devices))
	return &devices[index], nil
}

func (b *RoundRobinBalancer) Name() string {
	return StrategyRoundRobin
}
