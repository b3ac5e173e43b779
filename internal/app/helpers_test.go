package app

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/rfbridge/internal/domain"
)

const testRetryDelay = 20 * time.Millisecond

// loopbackTransport dials and listens on real sockets.
type loopbackTransport struct{}

func (loopbackTransport) Dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}

func (loopbackTransport) Listen(ctx context.Context, address string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", address)
}

// recordingNotifier collects every alert.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func (n *recordingNotifier) Count(substr string) int {
	c := 0
	for _, m := range n.Messages() {
		if strings.Contains(m, substr) {
			c++
		}
	}
	return c
}

// recordingMetrics counts the calls the workers make.
type recordingMetrics struct {
	mu         sync.Mutex
	received   map[string]int
	dropped    map[string]int
	sent       int
	stale      int
	reconnects map[string]int
	connected  map[string]bool
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		received:   map[string]int{},
		dropped:    map[string]int{},
		reconnects: map[string]int{},
		connected:  map[string]bool{},
	}
}

func (m *recordingMetrics) FrameReceived(source string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received[source]++
}

func (m *recordingMetrics) FrameDropped(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[source]++
}

func (m *recordingMetrics) FrameSent(int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
}

func (m *recordingMetrics) StaleDiscarded(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale += n
}

func (m *recordingMetrics) QueueDepth(int) {}

func (m *recordingMetrics) Connected(worker string, c bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected[worker] = c
}

func (m *recordingMetrics) Reconnect(worker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnects[worker]++
}

func (m *recordingMetrics) Dropped(source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped[source]
}

func (m *recordingMetrics) Reconnects(worker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnects[worker]
}

// freeEndpoint reserves a loopback port and releases it for the caller.
func freeEndpoint(t *testing.T) domain.Endpoint {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return domain.Endpoint{Host: "127.0.0.1", Port: port}
}

// upstream is a fake gateway accepting ingest connections.
type upstream struct {
	lis   net.Listener
	conns chan net.Conn
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	u := &upstream{lis: lis, conns: make(chan net.Conn, 8)}
	go func() {
		for {
			c, err := lis.Accept()
			if err != nil {
				return
			}
			u.conns <- c
		}
	}()
	t.Cleanup(func() { lis.Close() })
	return u
}

func (u *upstream) source(name string) domain.Source {
	addr := u.lis.Addr().(*net.TCPAddr)
	return domain.Source{Name: name, Host: "127.0.0.1", Port: addr.Port}
}

func (u *upstream) accept(t *testing.T) net.Conn {
	t.Helper()
	select {
	case c := <-u.conns:
		t.Cleanup(func() { c.Close() })
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ingest connection")
		return nil
	}
}

// dialConsumer connects to the relay, retrying while it rebinds.
func dialConsumer(t *testing.T, ep domain.Endpoint) net.Conn {
	t.Helper()
	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.DialTimeout("tcp", net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port)), 100*time.Millisecond)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readN reads exactly n bytes from conn or fails the test.
func readN(t *testing.T, conn net.Conn, n int) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := conn.Read(buf[read:])
		require.NoError(t, err)
		read += m
	}
	return string(buf)
}
