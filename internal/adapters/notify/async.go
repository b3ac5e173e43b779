package notify

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/rfbridge/internal/ports"
	"github.com/bft-labs/rfbridge/pkg/log"
)

// Async defaults.
const (
	DefaultBuffer  = 32
	DefaultTimeout = 10 * time.Second
)

// AsyncOptions configure an Async notifier.
type AsyncOptions struct {
	// Buffer is the number of pending messages. Zero uses DefaultBuffer.
	Buffer int
	// Timeout bounds each delivery. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Async is a fire-and-forget ports.Notifier in front of a Sender.
type Async struct {
	sender  Sender
	logger  ports.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan string
	done   chan struct{}
}

// NewAsync starts the delivery goroutine. Call Close to stop it.
func NewAsync(sender Sender, logger ports.Logger, opts AsyncOptions) *Async {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	a := &Async{
		sender:  sender,
		logger:  logger,
		timeout: opts.Timeout,
		queue:   make(chan string, opts.Buffer),
		done:    make(chan struct{}),
	}
	go a.loop()
	return a
}

// Notify queues message for delivery. It never blocks.
func (a *Async) Notify(message string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- message:
	default:
		a.logger.Warn("notification dropped, queue full", ports.String("message", message))
	}
}

// Close stops accepting messages and waits until the queued ones were
// delivered or ctx is done.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) loop() {
	defer close(a.done)
	for msg := range a.queue {
		a.deliver(msg)
	}
}

func (a *Async) deliver(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.sender.Send(ctx, msg); err != nil {
		a.logger.Error("notification failed", ports.Err(err))
		return
	}
	a.logger.Debug("notification sent", ports.String("message", msg))
}

// Nop discards every message.
type Nop struct{}

// Notify implements ports.Notifier.
func (Nop) Notify(string) {}
