package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	c.Frame("event")
	c.Frame("event")
	c.Frame("response")
	c.DeviceError(2)
	c.EventDropped()
	c.Command("player/get_volume", OutcomeSuccess, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.frames.WithLabelValues("event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.frames.WithLabelValues("response")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deviceErrors.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsDropped))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestCollectorDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Frame("event")
		c.Command("x", OutcomeError, time.Second)
		c.DeviceError(1)
		c.EventDropped()
	})
}

func TestHandler(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	c.EventDropped()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "heos_events_dropped_total 1"))
}
