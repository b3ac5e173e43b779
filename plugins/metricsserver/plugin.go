// Package metricsserver exposes bridge metrics over HTTP for Prometheus.
package metricsserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/rfbridge/pkg/log"
	"github.com/bft-labs/rfbridge/pkg/rfbridge"
)

// DefaultPath is where metrics are served.
const DefaultPath = "/metrics"

// Config holds configuration options for the metrics server plugin.
type Config struct {
	// Addr is the listen address, e.g. ":9100". Empty disables the server.
	Addr string

	// Path defaults to DefaultPath.
	Path string

	// Gatherer is the registry to serve. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Plugin serves /metrics for the lifetime of the bridge.
type Plugin struct {
	cfg Config

	mu     sync.Mutex
	server *http.Server
	addr   string
	wg     sync.WaitGroup
}

// New creates a metrics server plugin.
func New(cfg Config) *Plugin {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	return &Plugin{cfg: cfg}
}

// WithMetricsServer returns a bridge Option that serves metrics on cfg.Addr.
func WithMetricsServer(cfg Config) rfbridge.Option {
	return rfbridge.WithPlugin(New(cfg))
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "metricsserver"
}

// Initialize binds the listener and starts serving.
func (p *Plugin) Initialize(ctx context.Context, cfg rfbridge.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if p.cfg.Addr == "" {
		logger.Info("metrics server disabled")
		return nil
	}

	lis, err := (&net.ListenConfig{}).Listen(ctx, "tcp", p.cfg.Addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(p.cfg.Path, promhttp.HandlerFor(p.cfg.Gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	p.mu.Lock()
	p.server = server
	p.addr = lis.Addr().String()
	p.mu.Unlock()

	l := log.With(logger, log.String("addr", p.addr), log.String("path", p.cfg.Path))
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("metrics server stopped", log.Err(err))
		}
	}()
	l.Info("metrics server listening")
	return nil
}

// Addr returns the bound address, or "" when the server is not running.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

// Shutdown gracefully stops the server.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	server := p.server
	p.server = nil
	p.addr = ""
	p.mu.Unlock()

	if server == nil {
		return nil
	}
	err := server.Shutdown(ctx)
	p.wg.Wait()
	return err
}
