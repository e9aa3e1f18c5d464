package loadbalance

import (
	"fmt"
	"hash/crc32"
	"slices"
	"sort"
	"strings"
	"sync"

	"mini-heos/registry"
)

// ConsistentHashBalancer maps a fixed key, such as a preferred device name,
// onto a hash ring of devices. The key keeps landing on the same device
// while the device set is unchanged, and most keys stay put when one device
// joins or leaves.
//
// Each device is placed on the ring as replicas virtual nodes hashed from
// "{name}#{i}":
//
//	         0
//	       ╱   ╲
//	  B ●         ● A
//	    │  key ◆──►│   (clockwise to the nearest node → A)
//	  C ●         ● A'
//	       ╲   ╱
type ConsistentHashBalancer struct {
	key      string
	replicas int

	mu    sync.Mutex
	sig   string
	ring  []uint32
	nodes map[uint32]string // hash → device name
}

func NewConsistentHashBalancer(key string) *ConsistentHashBalancer {
	return &ConsistentHashBalancer{key: key, replicas: 100}
}

// Pick returns the device owning the balancer's key. The ring is rebuilt
// only when the set of device names changes.
func (b *ConsistentHashBalancer) Pick(devices []registry.DeviceInstance) (*registry.DeviceInstance, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	// A device whose name is the key is always chosen.
	if i := slices.IndexFunc(devices, func(d registry.DeviceInstance) bool { return d.Name == b.key }); i >= 0 {
		return &devices[i], nil
	}

	name := b.lookup(devices, b.key)
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	return &devices[0], nil
}

func (b *ConsistentHashBalancer) lookup(devices []registry.DeviceInstance, key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	slices.Sort(names)
	if sig := strings.Join(names, "\x00"); sig != b.sig {
		b.rebuild(names)
		b.sig = sig
	}

	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool { return b.ring[i] >= hash })
	if idx == len(b.ring) {
		idx = 0
	}
	return b.nodes[b.ring[idx]]
}

func (b *ConsistentHashBalancer) rebuild(names []string) {
	b.ring = b.ring[:0]
	b.nodes = make(map[uint32]string, len(names)*b.replicas)
	for _, name := range names {
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", name, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = name
		}
	}
	slices.Sort(b.ring)
}

func (b *ConsistentHashBalancer) Name() string {
	return StrategyConsistentHash
}
