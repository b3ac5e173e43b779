package rfbridge

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/rfbridge/internal/adapters/metrics"
	"github.com/bft-labs/rfbridge/internal/ports"
	"github.com/bft-labs/rfbridge/pkg/log"
)

// Logger is the structured logger used by the bridge.
type Logger = log.Logger

// Notifier receives one message per worker fault. Notify must not block.
type Notifier = ports.Notifier

// Transport opens the upstream and downstream sockets.
type Transport = ports.Transport

// Metrics records relay traffic.
type Metrics = ports.Metrics

// Option configures optional behavior of a Bridge.
type Option func(*options)

type options struct {
	logger       Logger
	notifier     Notifier
	transport    Transport
	metrics      Metrics
	clock        clock.Clock
	eventHandler EventHandler
	plugins      []Plugin
}

// WithLogger sets the logger. Without it nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNotifier sets where fault alerts go.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithTransport replaces the host network transport, mainly for tests.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithMetrics sets a custom metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPrometheus records metrics on reg.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metrics = metrics.NewPrometheus(reg)
	}
}

// WithClock sets the clock used for retry delays.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithEventHandler sets a handler for lifecycle events.
// Events are called synchronously from the goroutine causing them.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the bridge starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
