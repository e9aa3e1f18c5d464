package loadbalance

import (
	"math/rand/v2"

	"mini-heos/registry"
)

// WeightedRandomBalancer picks devices with probability proportional to
// Weight. Weights below 1 count as 1.
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(devices []registry.DeviceInstance) (*registry.DeviceInstance, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}

	total := 0
	for _, d := range devices {
		total += weight(d)
	}

	r := rand.IntN(total)
	for i := range devices {
		r -= weight(devices[i])
		if r < 0 {
			return &devices[i], nil
		}
	}
	return &devices[len(devices)-1], nil
}

func (b *WeightedRandomBalancer) Name() string {
	return StrategyWeightedRandom
}

func weight(d registry.DeviceInstance) int {
	return max(d.Weight, 1)
}
