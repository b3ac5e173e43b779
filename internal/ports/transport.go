package ports

import (
	"context"
	"net"
)

// Transport opens the TCP connections used by the relay workers.
// Implementations are backed by the host network in production and may be
// replaced in tests.
type Transport interface {
	// Dial connects to an upstream gateway at address (host:port).
	Dial(ctx context.Context, address string) (net.Conn, error)

	// Listen binds the downstream endpoint at address (host:port).
	Listen(ctx context.Context, address string) (net.Listener, error)
}
