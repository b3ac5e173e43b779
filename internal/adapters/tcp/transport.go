// Package tcp implements ports.Transport on the host network.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// Default socket options.
const (
	DefaultDialTimeout = 10 * time.Second
	DefaultKeepAlive   = 30 * time.Second
)

// ErrClosed is returned by Dial and Listen after Close.
var ErrClosed = errors.New("tcp: transport closed")

// Options configure the host transport.
type Options struct {
	// DialTimeout bounds a single connect attempt. Zero uses DefaultDialTimeout.
	DialTimeout time.Duration
	// KeepAlive is the TCP keep-alive period. Zero uses DefaultKeepAlive,
	// negative disables keep-alives.
	KeepAlive time.Duration
}

// Transport dials upstream gateways and binds the downstream endpoint
// using the standard library network stack.
type Transport struct {
	dialer net.Dialer
	lc     net.ListenConfig
	closed atomic.Bool
}

// New creates a host network transport.
func New(opts Options) *Transport {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.KeepAlive == 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	return &Transport{
		dialer: net.Dialer{Timeout: opts.DialTimeout, KeepAlive: opts.KeepAlive},
		lc:     net.ListenConfig{KeepAlive: opts.KeepAlive},
	}
}

// Dial connects to address over TCP.
func (t *Transport) Dial(ctx context.Context, address string) (net.Conn, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	conn, err := t.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return conn, nil
}

// Listen binds address over TCP.
func (t *Transport) Listen(ctx context.Context, address string) (net.Listener, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	lis, err := t.lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", address, err)
	}
	return lis, nil
}

// Close makes further Dial and Listen calls fail. Existing connections
// are owned by their callers and are not touched.
func (t *Transport) Close() error {
	t.closed.Store(true)
	return nil
}
