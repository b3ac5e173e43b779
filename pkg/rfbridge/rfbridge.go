package rfbridge

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/rfbridge/internal/adapters/tcp"
	"github.com/bft-labs/rfbridge/internal/app"
	"github.com/bft-labs/rfbridge/internal/domain"
	"github.com/bft-labs/rfbridge/internal/ports"
	"github.com/bft-labs/rfbridge/pkg/log"
)

// Errors returned by Bridge methods.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// QueueStats counts frames that went through the relay queue.
type QueueStats = app.QueueStats

// Bridge relays every upstream gateway to a single downstream consumer.
// Use New() to create an instance, then Start() to begin relaying.
type Bridge struct {
	config     Config
	lifecycle  *app.Lifecycle
	queue      *app.RelayQueue
	supervisor *app.Supervisor
	logger     ports.Logger
	plugins    []Plugin

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Bridge in StateStopped. Returns an error if the
// configuration is invalid.
func New(cfg Config, opts ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.transport == nil {
		o.transport = tcp.New(tcp.Options{})
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	queue := app.NewRelayQueue(cfg.QueueCapacity, o.logger, o.metrics)
	supervisor := app.NewSupervisor(app.SupervisorConfig{
		Bridge:     cfg.Bridge,
		FrameSize:  cfg.FrameSize,
		RetryDelay: cfg.RetryDelay,
	}, queue, app.Deps{
		Transport: o.transport,
		Notifier:  o.notifier,
		Logger:    o.logger,
		Metrics:   o.metrics,
		Clock:     o.clock,
	})

	return &Bridge{
		config:     cfg,
		lifecycle:  app.NewLifecycle(o.logger, emitter),
		queue:      queue,
		supervisor: supervisor,
		logger:     o.logger,
		plugins:    o.plugins,
	}, nil
}

// Start begins relaying in the background and returns immediately.
// The provided context bounds the lifetime of the bridge.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		Bridge:  b.config.Bridge,
		Sources: append([]Source(nil), b.config.Sources...),
		Logger:  b.logger,
		Updater: b,
	}
	for i, p := range b.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			b.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			b.shutdownPlugins(b.plugins[:i])
			_ = b.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		b.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	b.logger.Info("starting application",
		ports.Int("sources", len(b.config.Sources)),
		ports.String("bridge", b.config.Bridge.Address()),
	)

	sources := append([]Source(nil), b.config.Sources...)
	b.lifecycle.Go(func() {
		if err := b.lifecycle.TransitionTo(app.StateRunning, "supervisor starting"); err != nil {
			b.logger.Error("failed to transition to running", ports.Err(err))
			return
		}

		err := b.supervisor.Run(runCtx, sources)
		if err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error("supervisor error", ports.Err(err))
			_ = b.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	})
	return nil
}

// Stop cancels every worker and waits for them up to ShutdownTimeout.
// Returns ErrShutdownTimeout if the workers did not exit in time.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.lifecycle.CanStop() {
		b.mu.Unlock()
		return ErrNotRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		b.mu.Unlock()
		return err
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	err := b.lifecycle.WaitWithTimeout(b.config.ShutdownTimeout)
	b.shutdownPlugins(b.plugins)

	if err != nil {
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = b.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// shutdownPlugins shuts plugins down in reverse order.
func (b *Bridge) shutdownPlugins(plugins []Plugin) {
	ctx, cancel := context.WithTimeout(context.Background(), b.config.ShutdownTimeout)
	defer cancel()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			b.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			continue
		}
		b.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (b *Bridge) Status() State {
	return State(b.lifecycle.State())
}

// UpdateSources replaces the upstream sources of a running bridge.
// Workers for unchanged endpoints keep their connection.
func (b *Bridge) UpdateSources(sources []Source) error {
	if err := b.supervisor.UpdateSources(sources); err != nil {
		return err
	}
	b.logger.Info("sources updated", ports.Int("sources", len(sources)))
	return nil
}

// Sources returns the sources that currently have a running worker.
func (b *Bridge) Sources() []Source {
	return b.supervisor.Sources()
}

// ConsumerConnected reports whether a downstream consumer is being served.
func (b *Bridge) ConsumerConnected() bool {
	return b.supervisor.RelayState() == app.RelayAccepted
}

// QueueStats returns the relay queue counters.
func (b *Bridge) QueueStats() QueueStats {
	return b.queue.Stats()
}
