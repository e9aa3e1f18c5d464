package registry

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// DefaultEtcdPrefix is the directory devices are stored under:
//
//	Key:   /heos/devices/{Name}
//	Value: JSON-encoded DeviceInstance
//
// Entries are attached to a TTL lease, so a host that stops renewing
// disappears from the directory on its own.
const DefaultEtcdPrefix = "/heos/devices/"

type EtcdRegistry struct {
	client *clientv3.Client
	prefix string
	logger *zap.Logger

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID
}

func NewEtcdRegistry(endpoints []string, prefix string, logger *zap.Logger) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultEtcdPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EtcdRegistry{client: c, prefix: prefix, logger: logger, leases: make(map[string]clientv3.LeaseID)}, nil
}

// Register stores inst under a lease of ttl seconds and keeps the lease
// alive in the background.
func (r *EtcdRegistry) Register(ctx context.Context, inst DeviceInstance, ttl int64) error {
	if err := inst.validate(); err != nil {
		return err
	}
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	if _, err = r.client.Put(ctx, r.prefix+inst.Name, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	// The keep-alive must outlive the caller's ctx.
	ch, err := r.client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		return err
	}
	go func() {
		for range ch {
		}
		r.logger.Debug("etcd lease keep-alive stopped", zap.String("device", inst.Name))
	}()

	r.mu.Lock()
	old, ok := r.leases[inst.Name]
	r.leases[inst.Name] = lease.ID
	r.mu.Unlock()
	if ok {
		r.revoke(ctx, old)
	}
	return nil
}

func (r *EtcdRegistry) Deregister(ctx context.Context, name string) error {
	if _, err := r.client.Delete(ctx, r.prefix+name); err != nil {
		return err
	}
	r.mu.Lock()
	id, ok := r.leases[name]
	delete(r.leases, name)
	r.mu.Unlock()
	if ok {
		r.revoke(ctx, id)
	}
	return nil
}

func (r *EtcdRegistry) revoke(ctx context.Context, id clientv3.LeaseID) {
	if _, err := r.client.Revoke(ctx, id); err != nil {
		r.logger.Warn("etcd lease revoke failed", zap.Int64("lease", int64(id)), zap.Error(err))
	}
}

// Watch re-reads the whole directory on every change under the prefix.
func (r *EtcdRegistry) Watch(ctx context.Context) <-chan []DeviceInstance {
	ch := make(chan []DeviceInstance, 1)
	go func() {
		defer close(ch)
		for range r.client.Watch(ctx, r.prefix, clientv3.WithPrefix()) {
			devices, err := r.Discover(ctx)
			if err != nil {
				r.logger.Warn("etcd discover after watch event failed", zap.Error(err))
				continue
			}
			select {
			case ch <- devices:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (r *EtcdRegistry) Discover(ctx context.Context) ([]DeviceInstance, error) {
	resp, err := r.client.Get(ctx, r.prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	devices := make([]DeviceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst DeviceInstance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			r.logger.Warn("skipping malformed etcd entry", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		devices = append(devices, inst)
	}
	return devices, nil
}

func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
