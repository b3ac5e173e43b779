package domain

import "time"

// DefaultFrameSize is the size of the receive buffer, and therefore the
// maximum payload of a single frame.
const DefaultFrameSize = 1024

// Frame is one opaque unit of bytes as received from a single read call on
// an upstream connection. Read boundaries are the only framing rfbridge knows.
type Frame struct {
	// Payload holds the raw bytes; it is never parsed
	Payload []byte

	// Source is the name of the upstream source that produced the frame
	Source string

	// ReceivedAt is when the read returned
	ReceivedAt time.Time
}

// NewFrame copies p into a new Frame so the caller may reuse its buffer.
func NewFrame(source string, p []byte, receivedAt time.Time) Frame {
	payload := make([]byte, len(p))
	copy(payload, p)
	return Frame{
		Payload:    payload,
		Source:     source,
		ReceivedAt: receivedAt,
	}
}

// Len returns the payload size in bytes.
func (f Frame) Len() int {
	return len(f.Payload)
}

// EnqueueResult reports what the relay queue did with a frame.
type EnqueueResult int

const (
	// Accepted means the frame was queued for the consumer.
	Accepted EnqueueResult = iota

	// Dropped means the queue was at capacity and the frame was discarded.
	Dropped
)

// String returns a human-readable representation of the result.
func (r EnqueueResult) String() string {
	switch r {
	case Accepted:
		return "Accepted"
	case Dropped:
		return "Dropped"
	default:
		return "Unknown"
	}
}
