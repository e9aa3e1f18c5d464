package registry

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Needs a running etcd, e.g. HEOS_ETCD_ENDPOINTS=localhost:2379.
func newTestEtcd(t *testing.T) *EtcdRegistry {
	t.Helper()
	endpoints := os.Getenv("HEOS_ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("HEOS_ETCD_ENDPOINTS not set")
	}
	reg, err := NewEtcdRegistry(strings.Split(endpoints, ","), "/heos-test/"+t.Name()+"/", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestEtcdRegisterAndDiscover(t *testing.T) {
	reg := newTestEtcd(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	kitchen := DeviceInstance{Name: "Kitchen", Addr: "127.0.0.1:1255", Weight: 10, Model: "HEOS 1"}
	den := DeviceInstance{Name: "Den", Addr: "127.0.0.2:1255", Weight: 5}
	require.NoError(t, reg.Register(ctx, kitchen, 10))
	require.NoError(t, reg.Register(ctx, den, 10))

	devices, err := reg.Discover(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []DeviceInstance{kitchen, den}, devices)

	require.NoError(t, reg.Deregister(ctx, kitchen.Name))
	devices, err = reg.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []DeviceInstance{den}, devices)

	require.NoError(t, reg.Deregister(ctx, den.Name))
}

func TestEtcdWatch(t *testing.T) {
	reg := newTestEtcd(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch := reg.Watch(ctx)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, reg.Register(ctx, DeviceInstance{Name: "Den", Addr: "127.0.0.2:1255"}, 10))

	select {
	case devices := <-ch:
		require.Len(t, devices, 1)
		assert.Equal(t, "Den", devices[0].Name)
	case <-ctx.Done():
		t.Fatal("no watch update")
	}
	require.NoError(t, reg.Deregister(ctx, "Den"))
}
