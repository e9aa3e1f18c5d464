// Package loadbalance chooses which discovered device to connect to.
//
//   - RoundRobin:     rotate through devices on every reconnect
//   - WeightedRandom: favour devices with a higher configured weight
//   - ConsistentHash: stay on the device a key maps to while the set is stable
package loadbalance

import (
	"errors"
	"fmt"

	"mini-heos/registry"
)

var (
	ErrNoDevices       = errors.New("loadbalance: no devices available")
	ErrUnknownStrategy = errors.New("loadbalance: unknown strategy")
)

const (
	StrategyRoundRobin     = "round_robin"
	StrategyWeightedRandom = "weighted_random"
	StrategyConsistentHash = "consistent_hash"
)

// Balancer picks one device from the list. Implementations are safe for
// concurrent use.
type Balancer interface {
	Pick(devices []registry.DeviceInstance) (*registry.DeviceInstance, error)
	Name() string
}

// New returns the balancer for a configured strategy name. key is only used
// by consistent hashing; an empty name selects round robin.
func New(name, key string) (Balancer, error) {
	switch name {
	case "", StrategyRoundRobin:
		return &RoundRobinBalancer{}, nil
	case StrategyWeightedRandom:
		return &WeightedRandomBalancer{}, nil
	case StrategyConsistentHash:
		return NewConsistentHashBalancer(key), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
