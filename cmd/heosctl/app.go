package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mini-heos/client"
	"mini-heos/config"
	"mini-heos/loadbalance"
	"mini-heos/logging"
	"mini-heos/metrics"
	"mini-heos/middleware"
	"mini-heos/registry"
	"mini-heos/transport"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the state shared by all subcommands, filled in by the root
// command's PersistentPreRunE.
type app struct {
	configPath string
	addr       string
	logLevel   string
	jsonOutput bool

	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Collector
	out     io.Writer
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.addr != "" {
		cfg.Device.Address = a.addr
		cfg.Discovery.Mode = config.ModeStatic
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	a.logger, err = logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.metrics, err = metrics.New(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	a.out = cmd.OutOrStdout()
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		a.logger.Sync()
	}
}

// registry builds the discovery source named by the configuration.
func (a *app) registry() (registry.Registry, error) {
	d := a.cfg.Discovery
	switch d.Mode {
	case config.ModeEtcd:
		return registry.NewEtcdRegistry(d.EtcdEndpoints, d.EtcdPrefix, a.logger)
	case config.ModeMDNS:
		return registry.NewMDNSRegistry(registry.MDNSOptions{
			ScanTimeout:       d.MDNSTimeout.Std(),
			UseAdvertisedPort: d.MDNSUseAdvertisedPort,
			Logger:            a.logger,
		}), nil
	default:
		addr := a.cfg.DeviceAddr()
		if addr == "" {
			return nil, errors.New("no device address: use --addr, HEOS_ADDR or device.address")
		}
		name := a.cfg.Device.Name
		if name == "" {
			name = addr
		}
		return registry.NewStaticRegistry(registry.DeviceInstance{Name: name, Addr: addr}), nil
	}
}

func (a *app) connect(ctx context.Context) (*client.Client, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	bal, err := loadbalance.New(a.cfg.Discovery.Balancer, a.cfg.Discovery.Preferred)
	if err != nil {
		return nil, err
	}

	c := a.cfg.Client
	opts := client.Options{
		DialTimeout: c.DialTimeout.Std(),
		Transport: transport.Options{
			Limits:            a.cfg.Limits(),
			EventBuffer:       c.EventBuffer,
			HeartbeatInterval: c.HeartbeatInterval.Std(),
			Logger:            a.logger,
			Metrics:           a.metrics,
		},
		Logger: a.logger,
	}
	cl := client.NewClient(reg, bal, opts)
	cl.Use(middleware.LoggingMiddleware(a.logger))
	cl.Use(middleware.MetricsMiddleware(a.metrics))
	if c.RateLimit > 0 {
		cl.Use(middleware.RateLimitMiddleware(c.RateLimit, c.RateBurst))
	}
	cl.Use(middleware.TimeoutMiddleware(c.CommandTimeout.Std()))

	if err := cl.Connect(ctx); err != nil {
		return nil, err
	}
	a.serveMetrics(ctx)
	return cl, nil
}

// serveMetrics exposes /metrics until ctx ends when metrics.listen is set.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Listen == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics endpoint failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
}

// print writes v as indented JSON with --json, otherwise calls text.
func (a *app) print(v any, text func(w io.Writer)) error {
	if a.jsonOutput {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.out)
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
