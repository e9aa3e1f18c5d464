package loadbalance

import (
	"errors"
	"fmt"
	"testing"

	"mini-heos/registry"
)

var testDevices = []registry.DeviceInstance{
	{Name: "Kitchen", Addr: "10.0.0.1:1255", Weight: 10},
	{Name: "Den", Addr: "10.0.0.2:1255", Weight: 5},
	{Name: "Office", Addr: "10.0.0.3:1255", Weight: 10},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}

	results := make([]string, 3)
	for i := 0; i < 3; i++ {
		d, err := b.Pick(testDevices)
		if err != nil {
			t.Fatal(err)
		}
		results[i] = d.Addr
	}
	if results[0] != testDevices[0].Addr {
		t.Fatalf("expect first pick %s, got %s", testDevices[0].Addr, results[0])
	}

	d, _ := b.Pick(testDevices)
	if d.Addr != results[0] {
		t.Fatalf("expect wrap around to %s, got %s", results[0], d.Addr)
	}
}

func TestEmpty(t *testing.T) {
	for _, b := range []Balancer{&RoundRobinBalancer{}, &WeightedRandomBalancer{}, NewConsistentHashBalancer("x")} {
		if _, err := b.Pick(nil); !errors.Is(err, ErrNoDevices) {
			t.Fatalf("%s: expect ErrNoDevices, got %v", b.Name(), err)
		}
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := map[string]int{}
	n := 10000
	for i := 0; i < n; i++ {
		d, err := b.Pick(testDevices)
		if err != nil {
			t.Fatal(err)
		}
		counts[d.Name]++
	}

	// Weight ratio is 10:5:10, so Kitchen should be picked about twice as often as Den.
	ratio := float64(counts["Kitchen"]) / float64(counts["Den"])
	if ratio < 1.5 || ratio > 2.5 {
		t.Fatalf("weight ratio Kitchen/Den = %.2f, expect ~2.0", ratio)
	}
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandomBalancer{}
	devices := []registry.DeviceInstance{{Name: "A"}, {Name: "B"}}
	for i := 0; i < 100; i++ {
		if _, err := b.Pick(devices); err != nil {
			t.Fatal(err)
		}
	}
}

func TestConsistentHash(t *testing.T) {
	b := NewConsistentHashBalancer("living-room")
	d1, _ := b.Pick(testDevices)
	d2, _ := b.Pick(testDevices)
	if d1.Name != d2.Name {
		t.Fatalf("same key mapped to different devices: %s vs %s", d1.Name, d2.Name)
	}

	// Order of the discovered list does not matter.
	reversed := []registry.DeviceInstance{testDevices[2], testDevices[1], testDevices[0]}
	d3, _ := b.Pick(reversed)
	if d3.Name != d1.Name {
		t.Fatalf("expect %s regardless of order, got %s", d1.Name, d3.Name)
	}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		d, _ := NewConsistentHashBalancer(fmt.Sprintf("key-%d", i)).Pick(testDevices)
		seen[d.Name] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expect at least 2 different devices, got %d", len(seen))
	}
}

func TestConsistentHashPrefersNamedDevice(t *testing.T) {
	d, err := NewConsistentHashBalancer("Den").Pick(testDevices)
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "Den" {
		t.Fatalf("expect Den, got %s", d.Name)
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", StrategyRoundRobin, StrategyWeightedRandom, StrategyConsistentHash} {
		if _, err := New(name, "Den"); err != nil {
			t.Fatalf("%q: %v", name, err)
		}
	}
	if _, err := New("random", ""); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expect ErrUnknownStrategy, got %v", err)
	}
}
