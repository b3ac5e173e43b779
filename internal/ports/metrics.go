package ports

// Metrics records relay traffic. All methods must be safe for concurrent use.
type Metrics interface {
	// FrameReceived is called for every non-empty read from a source.
	FrameReceived(source string, bytes int)

	// FrameDropped is called when the queue rejected a frame from source.
	FrameDropped(source string)

	// FrameSent is called after a frame was written to the consumer.
	FrameSent(bytes int)

	// StaleDiscarded is called with the number of frames drained when a consumer connects.
	StaleDiscarded(count int)

	// QueueDepth reports the current number of queued frames.
	QueueDepth(depth int)

	// Connected reports whether worker currently holds a live connection.
	Connected(worker string, connected bool)

	// Reconnect is called each time worker starts a new connection attempt after a fault.
	Reconnect(worker string)
}
