package app

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/rfbridge/internal/domain"
)

func newTestRelay(t *testing.T, q *RelayQueue, deps Deps) (*RelayWorker, domain.Endpoint) {
	t.Helper()
	ep := freeEndpoint(t)
	if deps.Transport == nil {
		deps.Transport = loopbackTransport{}
	}
	w := NewRelayWorker(RelayConfig{Endpoint: ep, RetryDelay: testRetryDelay}, q, deps)
	runWorker(t, w.Run)
	return w, ep
}

func TestRelayWorker_DiscardsStaleThenStreams(t *testing.T) {
	metrics := newRecordingMetrics()
	q := NewRelayQueue(10, nil, nil)
	for i := 0; i < 5; i++ {
		q.Enqueue(frame("RFLink1", "stale"))
	}

	w, ep := newTestRelay(t, q, Deps{Metrics: metrics})
	consumer := dialConsumer(t, ep)
	require.Eventually(t, func() bool { return w.State() == RelayAccepted }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, q.Len())

	q.Enqueue(frame("RFLink1", "live-1;"))
	q.Enqueue(frame("RFLink2", "live-2;"))
	assert.Equal(t, "live-1;live-2;", readN(t, consumer, len("live-1;live-2;")))

	metrics.mu.Lock()
	assert.Equal(t, 5, metrics.stale)
	assert.True(t, metrics.connected[RelayWorkerName])
	metrics.mu.Unlock()
	assert.Equal(t, uint64(5), q.Stats().Discarded)
}

func TestRelayWorker_ReacceptsAfterConsumerLeaves(t *testing.T) {
	notifier := &recordingNotifier{}
	q := NewRelayQueue(10, nil, nil)
	w, ep := newTestRelay(t, q, Deps{Notifier: notifier})

	first := dialConsumer(t, ep)
	require.Eventually(t, func() bool { return w.State() == RelayAccepted }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, first.Close())

	require.Eventually(t, func() bool { return notifier.Count("bridge: consumer") == 1 }, 2*time.Second, 5*time.Millisecond)

	q.Enqueue(frame("RFLink1", "old"))
	second := dialConsumer(t, ep)
	require.Eventually(t, func() bool { return w.State() == RelayAccepted && q.Len() == 0 }, 2*time.Second, 5*time.Millisecond)

	q.Enqueue(frame("RFLink1", "new"))
	assert.Equal(t, "new", readN(t, second, 3))
}

// brokenFirstSession hands out a first consumer connection whose writes
// fail as if the peer had reset it; reads still behave normally.
type brokenFirstSession struct {
	loopbackTransport
	used atomic.Bool
}

func (b *brokenFirstSession) Listen(ctx context.Context, address string) (net.Listener, error) {
	lis, err := b.loopbackTransport.Listen(ctx, address)
	if err != nil {
		return nil, err
	}
	return &brokenFirstListener{Listener: lis, used: &b.used}, nil
}

type brokenFirstListener struct {
	net.Listener
	used *atomic.Bool
}

func (l *brokenFirstListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if l.used.CompareAndSwap(false, true) {
		return brokenWriteConn{conn}, nil
	}
	return conn, nil
}

type brokenWriteConn struct {
	net.Conn
}

func (brokenWriteConn) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestRelayWorker_SendFailureReturnsToListening(t *testing.T) {
	notifier := &recordingNotifier{}
	metrics := newRecordingMetrics()
	q := NewRelayQueue(10, nil, nil)
	w, ep := newTestRelay(t, q, Deps{Transport: &brokenFirstSession{}, Notifier: notifier, Metrics: metrics})

	dialConsumer(t, ep)
	require.Eventually(t, func() bool { return w.State() == RelayAccepted }, 2*time.Second, 5*time.Millisecond)

	q.Enqueue(frame("RFLink1", "lost"))
	require.Eventually(t, func() bool { return notifier.Count("bridge: send to") == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, notifier.Count("bridge: consumer"))

	second := dialConsumer(t, ep)
	require.Eventually(t, func() bool { return w.State() == RelayAccepted }, 2*time.Second, 5*time.Millisecond)
	q.Enqueue(frame("RFLink1", "new"))
	assert.Equal(t, "new", readN(t, second, 3))

	// a lost consumer is not a bind problem, so no backoff was taken
	assert.Zero(t, metrics.Reconnects(RelayWorkerName))
}

func TestRelayWorker_ListenFailureIsRetried(t *testing.T) {
	// hold the port so the relay cannot bind
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := blocker.Addr().(*net.TCPAddr).Port

	notifier := &recordingNotifier{}
	metrics := newRecordingMetrics()
	w := NewRelayWorker(RelayConfig{
		Endpoint:   domain.Endpoint{Host: "127.0.0.1", Port: port},
		RetryDelay: testRetryDelay,
	}, NewRelayQueue(1, nil, nil), Deps{Transport: loopbackTransport{}, Notifier: notifier, Metrics: metrics})
	runWorker(t, w.Run)

	require.Eventually(t, func() bool { return notifier.Count("bridge: listen on") >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, metrics.Reconnects(RelayWorkerName), 1)

	require.NoError(t, blocker.Close())
	ep := domain.Endpoint{Host: "127.0.0.1", Port: port}
	dialConsumer(t, ep)
	require.Eventually(t, func() bool { return w.State() == RelayAccepted }, 2*time.Second, 5*time.Millisecond)
}

// shortConn accepts one byte less than asked.
type shortConn struct {
	net.Conn
}

func (shortConn) Write(p []byte) (int, error) {
	return len(p) - 1, nil
}

func TestWriteFrame_ShortWrite(t *testing.T) {
	err := writeFrame(shortConn{}, frame("a", "payload"))
	assert.ErrorIs(t, err, domain.ErrShortWrite)
}

func TestWriteFrame_Whole(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() { _ = writeFrame(server, frame("a", "abc")) }()
	buf := make([]byte, 3)
	_, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf))
}
