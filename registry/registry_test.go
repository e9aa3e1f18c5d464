package registry

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewStaticRegistry(DeviceInstance{Name: "Kitchen", Addr: "10.0.0.2:1255"})

	require.NoError(t, reg.Register(ctx, DeviceInstance{Name: "Den", Addr: "10.0.0.3:1255", Weight: 2}, 0))
	require.NoError(t, reg.Register(ctx, DeviceInstance{Name: "Kitchen", Addr: "10.0.0.9:1255"}, 0))

	devices, err := reg.Discover(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "10.0.0.9:1255", devices[0].Addr, "re-registering replaces the entry")

	require.NoError(t, reg.Deregister(ctx, "Kitchen"))
	assert.ErrorIs(t, reg.Deregister(ctx, "Kitchen"), ErrDeviceNotFound)
	assert.ErrorIs(t, reg.Register(ctx, DeviceInstance{Name: "NoAddr"}, 0), ErrInvalidDevice)

	devices, err = reg.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []DeviceInstance{{Name: "Den", Addr: "10.0.0.3:1255", Weight: 2}}, devices)
}

func TestStaticRegistryWatch(t *testing.T) {
	reg := NewStaticRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	ch := reg.Watch(ctx)

	require.NoError(t, reg.Register(context.Background(), DeviceInstance{Name: "A", Addr: "a:1255"}, 0))
	require.NoError(t, reg.Register(context.Background(), DeviceInstance{Name: "B", Addr: "b:1255"}, 0))

	select {
	case devices := <-ch:
		assert.Len(t, devices, 2, "only the latest snapshot is kept")
	case <-time.After(time.Second):
		t.Fatal("no watch update")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed")
	}
}

func TestEntryToInstance(t *testing.T) {
	entry := zeroconf.NewServiceEntry("Living Room", MDNSServiceType, "local.")
	entry.Port = 10101
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	entry.Text = []string{"model=HEOS 1", "vers=1.583.147", "junk"}

	r := NewMDNSRegistry(MDNSOptions{})
	inst, ok := r.entryToInstance(entry)
	require.True(t, ok)
	assert.Equal(t, DeviceInstance{Name: "Living Room", Addr: "192.168.1.20:1255", Model: "HEOS 1", Version: "1.583.147"}, inst)

	r = NewMDNSRegistry(MDNSOptions{UseAdvertisedPort: true})
	inst, ok = r.entryToInstance(entry)
	require.True(t, ok)
	assert.Equal(t, "192.168.1.20:10101", inst.Addr)

	entry.AddrIPv4 = nil
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	inst, ok = r.entryToInstance(entry)
	require.True(t, ok)
	assert.Equal(t, "[fe80::1]:10101", inst.Addr)

	entry.AddrIPv6 = nil
	_, ok = r.entryToInstance(entry)
	assert.False(t, ok)
}

func TestMDNSDeregisterUnknown(t *testing.T) {
	r := NewMDNSRegistry(MDNSOptions{})
	assert.ErrorIs(t, r.Deregister(context.Background(), "nobody"), ErrDeviceNotFound)
}

func TestMDNSDiscoverCancelled(t *testing.T) {
	r := NewMDNSRegistry(MDNSOptions{ScanTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	devices, err := r.Discover(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, devices)
}
