package registry

import (
	"context"
	"slices"
	"sync"
)

// StaticRegistry is an in-memory list, typically filled from configuration.
type StaticRegistry struct {
	mu       sync.RWMutex
	devices  []DeviceInstance
	watchers []chan []DeviceInstance
}

func NewStaticRegistry(devices ...DeviceInstance) *StaticRegistry {
	return &StaticRegistry{devices: slices.Clone(devices)}
}

func (r *StaticRegistry) Register(_ context.Context, inst DeviceInstance, _ int64) error {
	if err := inst.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(inst.Name); i >= 0 {
		r.devices[i] = inst
	} else {
		r.devices = append(r.devices, inst)
	}
	r.notify()
	return nil
}

func (r *StaticRegistry) Deregister(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(name)
	if i < 0 {
		return ErrDeviceNotFound
	}
	r.devices = slices.Delete(r.devices, i, i+1)
	r.notify()
	return nil
}

func (r *StaticRegistry) Discover(_ context.Context) ([]DeviceInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.devices), nil
}

func (r *StaticRegistry) Watch(ctx context.Context) <-chan []DeviceInstance {
	ch := make(chan []DeviceInstance, 1)
	r.mu.Lock()
	r.watchers = append(r.watchers, ch)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, w := range r.watchers {
			if w == ch {
				r.watchers = slices.Delete(r.watchers, i, i+1)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (r *StaticRegistry) index(name string) int {
	return slices.IndexFunc(r.devices, func(d DeviceInstance) bool { return d.Name == name })
}

// notify replaces any unread snapshot with the current list. Callers hold mu.
func (r *StaticRegistry) notify() {
	for _, w := range r.watchers {
		select {
		case <-w:
		default:
		}
		w <- slices.Clone(r.devices)
	}
}
