package app

import (
	"context"
	"sync/atomic"

	"github.com/bft-labs/rfbridge/internal/domain"
	"github.com/bft-labs/rfbridge/internal/ports"
)

// DefaultQueueCapacity is the soft threshold above which new frames are dropped.
const DefaultQueueCapacity = 50

// QueueStats is a snapshot of the relay queue counters.
type QueueStats struct {
	Accepted  uint64
	Dropped   uint64
	Discarded uint64
}

// RelayQueue is a bounded FIFO of frames shared by every ingest worker and
// the single relay worker. Enqueue never blocks: once the queue holds
// capacity frames, new frames are dropped.
type RelayQueue struct {
	frames  chan domain.Frame
	logger  ports.Logger
	metrics ports.Metrics

	accepted  atomic.Uint64
	dropped   atomic.Uint64
	discarded atomic.Uint64
}

// NewRelayQueue creates a queue holding at most capacity frames.
// A non-positive capacity falls back to DefaultQueueCapacity.
func NewRelayQueue(capacity int, logger ports.Logger, metrics ports.Metrics) *RelayQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if logger == nil {
		logger = nopLogger
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &RelayQueue{
		frames:  make(chan domain.Frame, capacity),
		logger:  logger,
		metrics: metrics,
	}
}

// Enqueue appends frame unless the queue is at capacity, in which case the
// frame is discarded with a warning. It never blocks.
func (q *RelayQueue) Enqueue(frame domain.Frame) domain.EnqueueResult {
	select {
	case q.frames <- frame:
		q.accepted.Add(1)
		q.metrics.QueueDepth(len(q.frames))
		return domain.Accepted
	default:
	}

	q.dropped.Add(1)
	q.metrics.FrameDropped(frame.Source)
	q.logger.Warn("queue full, discarding frame",
		ports.String("source", frame.Source),
		ports.Bytes("payload", frame.Payload),
		ports.Int("capacity", cap(q.frames)),
	)
	return domain.Dropped
}

// Dequeue blocks until a frame is available or ctx is done.
func (q *RelayQueue) Dequeue(ctx context.Context) (domain.Frame, error) {
	select {
	case frame := <-q.frames:
		q.metrics.QueueDepth(len(q.frames))
		return frame, nil
	case <-ctx.Done():
		return domain.Frame{}, ctx.Err()
	}
}

// DrainStale discards every queued frame and returns how many were removed.
// It is called when a consumer connects so it only sees live data.
func (q *RelayQueue) DrainStale() int {
	n := 0
	for {
		select {
		case <-q.frames:
			n++
		default:
			q.discarded.Add(uint64(n))
			q.metrics.QueueDepth(len(q.frames))
			return n
		}
	}
}

// Len returns the number of queued frames.
func (q *RelayQueue) Len() int {
	return len(q.frames)
}

// Cap returns the capacity threshold.
func (q *RelayQueue) Cap() int {
	return cap(q.frames)
}

// Stats returns a snapshot of the queue counters.
func (q *RelayQueue) Stats() QueueStats {
	return QueueStats{
		Accepted:  q.accepted.Load(),
		Dropped:   q.dropped.Load(),
		Discarded: q.discarded.Load(),
	}
}
