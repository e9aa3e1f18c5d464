// Package metrics exposes Prometheus instrumentation for HEOS connections.
//
// A nil *Collector is valid and records nothing, so libraries can accept one
// without forcing callers to set up Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "heos"

// Command outcomes used as the outcome label of command durations.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeError   = "error"
)

type Collector struct {
	gatherer prometheus.Gatherer

	frames        *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	deviceErrors  *prometheus.CounterVec
	eventsDropped prometheus.Counter
}

// New registers the HEOS metrics on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		gatherer: reg,
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Frames received from the device, by kind.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Command round trip duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command", "outcome"},
		),
		deviceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "device_errors_total",
				Help:      "Commands rejected by the device, by error code.",
			},
			[]string{"code"},
		),
		eventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Events dropped because no one was reading them.",
			},
		),
	}
	for _, col := range []prometheus.Collector{c.frames, c.duration, c.deviceErrors, c.eventsDropped} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) Frame(kind string) {
	if c == nil {
		return
	}
	c.frames.WithLabelValues(kind).Inc()
}

func (c *Collector) Command(name, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.duration.WithLabelValues(name, outcome).Observe(d.Seconds())
}

func (c *Collector) DeviceError(code int) {
	if c == nil {
		return
	}
	c.deviceErrors.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (c *Collector) EventDropped() {
	if c == nil {
		return
	}
	c.eventsDropped.Inc()
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
