package domain

import "errors"

// Sentinel errors, matched with errors.Is.
var (
	ErrAlreadyRunning  = errors.New("rfbridge: already running")
	ErrNotRunning      = errors.New("rfbridge: not running")
	ErrShutdownTimeout = errors.New("rfbridge: shutdown timeout")
	ErrInvalidConfig   = errors.New("rfbridge: invalid configuration")

	// ErrShortWrite means the consumer accepted only part of a frame.
	ErrShortWrite = errors.New("rfbridge: short write")

	// ErrPeerClosed means the other end closed the connection cleanly.
	ErrPeerClosed = errors.New("rfbridge: peer closed connection")
)
