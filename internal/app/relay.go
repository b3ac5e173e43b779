package app

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/rfbridge/internal/domain"
	"github.com/bft-labs/rfbridge/internal/ports"
	"github.com/bft-labs/rfbridge/pkg/log"
)

// RelayWorkerName identifies the relay worker in alerts and metrics.
const RelayWorkerName = "bridge"

// RelayState is the position of the relay worker in its serve loop.
type RelayState int32

const (
	RelayListening RelayState = iota
	RelayAccepted
)

// String returns a human-readable representation of the state.
func (s RelayState) String() string {
	switch s {
	case RelayListening:
		return "Listening"
	case RelayAccepted:
		return "Accepted"
	default:
		return "Unknown"
	}
}

// RelayConfig contains configuration for the relay worker.
type RelayConfig struct {
	Endpoint   domain.Endpoint
	RetryDelay time.Duration
}

// RelayWorker serves the relay queue to one downstream consumer at a time.
// Each outer iteration binds the listener, accepts a single connection,
// discards stale frames and then streams live frames until the consumer
// goes away.
type RelayWorker struct {
	endpoint  domain.Endpoint
	queue     *RelayQueue
	transport ports.Transport
	metrics   ports.Metrics
	logger    ports.Logger
	alerts    alerter
	backoff   *backoff

	state      atomic.Int32
	listenAddr atomic.Value
}

// NewRelayWorker creates the relay worker for cfg.Endpoint draining queue.
func NewRelayWorker(cfg RelayConfig, queue *RelayQueue, deps Deps) *RelayWorker {
	deps = deps.withDefaults()
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	logger := log.With(deps.Logger,
		ports.String("worker", RelayWorkerName),
		ports.String("addr", cfg.Endpoint.Address()),
	)
	return &RelayWorker{
		endpoint:  cfg.Endpoint,
		queue:     queue,
		transport: deps.Transport,
		metrics:   deps.Metrics,
		logger:    logger,
		alerts:    alerter{logger: logger, notifier: deps.Notifier},
		backoff:   newBackoff(deps.Clock, cfg.RetryDelay, cfg.RetryDelay),
	}
}

// State returns the current serve-loop state.
func (w *RelayWorker) State() RelayState {
	return RelayState(w.state.Load())
}

// ListenAddr returns the address of the most recently bound listener,
// or "" if none was bound yet.
func (w *RelayWorker) ListenAddr() string {
	addr, _ := w.listenAddr.Load().(string)
	return addr
}

// Run executes the listen/serve loop until ctx is done.
func (w *RelayWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := w.serve(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var f *fault
		if !errors.As(err, &f) {
			f = &fault{kind: faultPanic, worker: RelayWorkerName, err: err}
		}
		w.alerts.report(f)

		switch f.kind {
		case faultListen, faultAccept, faultPanic:
			w.metrics.Reconnect(RelayWorkerName)
			if !w.backoff.Wait(ctx) {
				return ctx.Err()
			}
		default:
			// the consumer went away; listen again right away
			w.backoff.Reset()
		}
	}
}

// serve binds, accepts one consumer and streams to it until it fails.
// It always returns a non-nil error.
func (w *RelayWorker) serve(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(RelayWorkerName, r)
		}
	}()

	w.state.Store(int32(RelayListening))
	addr := w.endpoint.Address()
	w.logger.Info("starting")

	lis, err := w.transport.Listen(ctx, addr)
	if err != nil {
		return &fault{kind: faultListen, worker: RelayWorkerName, peer: addr, err: err}
	}
	w.listenAddr.Store(lis.Addr().String())
	stopLis := context.AfterFunc(ctx, func() { lis.Close() })
	defer stopLis()

	w.logger.Info("listening for consumer", ports.String("listen_addr", lis.Addr().String()))
	conn, err := lis.Accept()
	if err != nil {
		lis.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &fault{kind: faultAccept, worker: RelayWorkerName, peer: addr, err: err}
	}

	remote := conn.RemoteAddr().String()
	logger := log.With(w.logger,
		ports.String("session", uuid.NewString()),
		ports.String("consumer", remote),
	)
	defer func() {
		if cErr := closeAll(conn, lis); cErr != nil {
			logger.Debug("close session", ports.Err(cErr))
		}
	}()

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	gone := make(chan error, 1)
	go watchConsumer(conn, cancel, gone)

	drained := w.queue.DrainStale()
	w.metrics.StaleDiscarded(drained)
	logger.Info("incoming connection", ports.Int("stale_discarded", drained))

	w.state.Store(int32(RelayAccepted))
	defer w.state.Store(int32(RelayListening))
	w.metrics.Connected(RelayWorkerName, true)
	defer w.metrics.Connected(RelayWorkerName, false)

	for {
		frame, err := w.queue.Dequeue(sessCtx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &fault{kind: faultConsumerGone, worker: RelayWorkerName, peer: remote, err: <-gone}
		}
		if err := writeFrame(conn, frame); err != nil {
			return &fault{kind: faultSend, worker: RelayWorkerName, peer: remote, err: err}
		}
		w.metrics.FrameSent(frame.Len())
		logger.Debug("sent",
			ports.String("source", frame.Source),
			ports.Bytes("payload", frame.Payload),
		)
	}
}

// writeFrame writes the whole payload; a partial write is a failure.
func writeFrame(conn net.Conn, frame domain.Frame) error {
	n, err := conn.Write(frame.Payload)
	if err != nil {
		return err
	}
	if n < frame.Len() {
		return domain.ErrShortWrite
	}
	return nil
}

// watchConsumer discards anything the consumer sends and ends the session
// once the consumer hangs up, so an idle queue does not hide a dead peer.
func watchConsumer(conn net.Conn, cancel context.CancelFunc, gone chan<- error) {
	_, err := io.Copy(io.Discard, conn)
	if err == nil {
		err = domain.ErrPeerClosed
	}
	gone <- err
	cancel()
}
