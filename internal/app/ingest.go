package app

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/bft-labs/rfbridge/internal/domain"
	"github.com/bft-labs/rfbridge/internal/ports"
	"github.com/bft-labs/rfbridge/pkg/log"
)

// IngestState is the position of an ingest worker in its connect loop.
type IngestState int32

const (
	IngestConnecting IngestState = iota
	IngestStreaming
)

// String returns a human-readable representation of the state.
func (s IngestState) String() string {
	switch s {
	case IngestConnecting:
		return "Connecting"
	case IngestStreaming:
		return "Streaming"
	default:
		return "Unknown"
	}
}

// IngestConfig contains configuration for one ingest worker.
type IngestConfig struct {
	Source     domain.Source
	FrameSize  int
	RetryDelay time.Duration
}

// IngestWorker owns the client connection to one upstream gateway and
// pushes every non-empty read into the relay queue. It reconnects forever
// after any failure and only returns when its context is done.
type IngestWorker struct {
	source    domain.Source
	frameSize int
	queue     *RelayQueue
	transport ports.Transport
	metrics   ports.Metrics
	logger    ports.Logger
	alerts    alerter
	backoff   *backoff
	clock     clock.Clock

	state atomic.Int32
}

// NewIngestWorker creates a worker for cfg.Source feeding queue.
func NewIngestWorker(cfg IngestConfig, queue *RelayQueue, deps Deps) *IngestWorker {
	deps = deps.withDefaults()
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = domain.DefaultFrameSize
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	logger := log.With(deps.Logger,
		ports.String("worker", "ingest"),
		ports.String("source", cfg.Source.Name),
		ports.String("addr", cfg.Source.Endpoint().Address()),
	)
	return &IngestWorker{
		source:    cfg.Source,
		frameSize: cfg.FrameSize,
		queue:     queue,
		transport: deps.Transport,
		metrics:   deps.Metrics,
		logger:    logger,
		alerts:    alerter{logger: logger, notifier: deps.Notifier},
		backoff:   newBackoff(deps.Clock, cfg.RetryDelay, cfg.RetryDelay),
		clock:     deps.Clock,
	}
}

// Source returns the upstream source this worker is bound to.
func (w *IngestWorker) Source() domain.Source {
	return w.source
}

// State returns the current connect-loop state.
func (w *IngestWorker) State() IngestState {
	return IngestState(w.state.Load())
}

// Run executes the connect/stream loop until ctx is done.
func (w *IngestWorker) Run(ctx context.Context) error {
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !first {
			w.metrics.Reconnect(w.source.Name)
		}
		first = false

		err := w.stream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var f *fault
		if !errors.As(err, &f) {
			f = &fault{kind: faultRead, worker: w.source.Name, peer: w.source.Endpoint().Address(), err: err}
		}
		w.alerts.report(f)

		if !w.backoff.Wait(ctx) {
			return ctx.Err()
		}
	}
}

// stream performs one connect attempt and reads until the connection fails.
// It always returns a non-nil error.
func (w *IngestWorker) stream(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(w.source.Name, r)
		}
	}()

	w.state.Store(int32(IngestConnecting))
	addr := w.source.Endpoint().Address()
	w.logger.Debug("connecting")

	conn, err := w.transport.Dial(ctx, addr)
	if err != nil {
		return &fault{kind: faultConnect, worker: w.source.Name, peer: addr, err: err}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		if cErr := closeAll(conn); cErr != nil {
			w.logger.Debug("close connection", ports.Err(cErr))
		}
	}()

	w.state.Store(int32(IngestStreaming))
	// back to Connecting before the fault is reported and the backoff starts
	defer w.state.Store(int32(IngestConnecting))
	w.metrics.Connected(w.source.Name, true)
	defer w.metrics.Connected(w.source.Name, false)
	w.backoff.Reset()
	w.logger.Info("connected", ports.String("local_addr", conn.LocalAddr().String()))

	buf := make([]byte, w.frameSize)
	for {
		n, rErr := conn.Read(buf)
		if n > 0 {
			frame := domain.NewFrame(w.source.Name, buf[:n], w.clock.Now())
			w.metrics.FrameReceived(w.source.Name, n)
			if w.queue.Enqueue(frame) == domain.Accepted {
				w.logger.Debug("received", ports.Bytes("payload", frame.Payload))
			}
		}
		if rErr == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(rErr, io.EOF) {
			return &fault{kind: faultDisconnect, worker: w.source.Name, peer: w.source.Host, err: domain.ErrPeerClosed}
		}
		return &fault{kind: faultRead, worker: w.source.Name, peer: addr, err: rErr}
	}
}
