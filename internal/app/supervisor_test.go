package app

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/rfbridge/internal/domain"
)

func newTestSupervisor(t *testing.T, q *RelayQueue, deps Deps) (*Supervisor, domain.Endpoint) {
	t.Helper()
	bridge := freeEndpoint(t)
	if deps.Transport == nil {
		deps.Transport = loopbackTransport{}
	}
	s := NewSupervisor(SupervisorConfig{Bridge: bridge, RetryDelay: testRetryDelay}, q, deps)
	return s, bridge
}

func TestSupervisor_FanIn(t *testing.T) {
	u1, u2 := newUpstream(t), newUpstream(t)
	q := NewRelayQueue(DefaultQueueCapacity, nil, nil)
	s, bridge := newTestSupervisor(t, q, Deps{})

	sources := []domain.Source{u1.source("RFLink1"), u2.source("RFLink2"), {Name: "RFLink3"}}
	stop := runWorker(t, func(ctx context.Context) error { return s.Run(ctx, sources) })

	c1, c2 := u1.accept(t), u2.accept(t)
	consumer := dialConsumer(t, bridge)
	require.Eventually(t, func() bool { return s.RelayState() == RelayAccepted }, 2*time.Second, 5*time.Millisecond)

	_, err := c1.Write([]byte("one;"))
	require.NoError(t, err)
	assert.Equal(t, "one;", readN(t, consumer, 4))
	_, err = c2.Write([]byte("two;"))
	require.NoError(t, err)
	assert.Equal(t, "two;", readN(t, consumer, 4))

	names := []string{}
	for _, src := range s.Sources() {
		names = append(names, src.Name)
	}
	assert.Equal(t, []string{"RFLink1", "RFLink2"}, names)

	assert.ErrorIs(t, stop(), context.Canceled)
}

func TestSupervisor_SourceDownDoesNotStopOthers(t *testing.T) {
	u1 := newUpstream(t)
	down := freeEndpoint(t)
	notifier := &recordingNotifier{}
	q := NewRelayQueue(DefaultQueueCapacity, nil, nil)
	s, bridge := newTestSupervisor(t, q, Deps{Notifier: notifier})

	sources := []domain.Source{u1.source("RFLink1"), {Name: "RFLink2", Host: down.Host, Port: down.Port}}
	runWorker(t, func(ctx context.Context) error { return s.Run(ctx, sources) })

	c1 := u1.accept(t)
	consumer := dialConsumer(t, bridge)
	require.Eventually(t, func() bool { return s.RelayState() == RelayAccepted }, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return notifier.Count("RFLink2: connect to") >= 2 }, 2*time.Second, 5*time.Millisecond)
	_, err := c1.Write([]byte("alive"))
	require.NoError(t, err)
	assert.Equal(t, "alive", readN(t, consumer, 5))
}

func TestSupervisor_DropsWithoutConsumer(t *testing.T) {
	u := newUpstream(t)
	q := NewRelayQueue(2, nil, nil)
	s := NewSupervisor(SupervisorConfig{
		Bridge:     freeEndpoint(t),
		FrameSize:  1,
		RetryDelay: testRetryDelay,
	}, q, Deps{Transport: loopbackTransport{}})
	runWorker(t, func(ctx context.Context) error { return s.Run(ctx, []domain.Source{u.source("RFLink1")}) })

	c := u.accept(t)
	_, err := c.Write([]byte("abcde"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return q.Stats().Dropped == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(2), q.Stats().Accepted)

	f, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", string(f.Payload))
}

func TestSupervisor_UpdateSources(t *testing.T) {
	u1, u2 := newUpstream(t), newUpstream(t)
	q := NewRelayQueue(DefaultQueueCapacity, nil, nil)
	s, _ := newTestSupervisor(t, q, Deps{})

	assert.ErrorIs(t, s.UpdateSources(nil), domain.ErrNotRunning)

	runWorker(t, func(ctx context.Context) error { return s.Run(ctx, []domain.Source{u1.source("RFLink1")}) })
	first := u1.accept(t)

	require.Eventually(t, func() bool { return len(s.Sources()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.UpdateSources([]domain.Source{u2.source("RFLink2")}))
	u2.accept(t)

	got := s.Sources()
	require.Len(t, got, 1)
	assert.Equal(t, "RFLink2", got[0].Name)

	// the removed worker closed its connection
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := first.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestSupervisor_SkipsDuplicateEndpoints(t *testing.T) {
	u := newUpstream(t)
	q := NewRelayQueue(DefaultQueueCapacity, nil, nil)
	s, _ := newTestSupervisor(t, q, Deps{})

	src := u.source("RFLink1")
	dup := src
	dup.Name = "RFLink9"
	runWorker(t, func(ctx context.Context) error { return s.Run(ctx, []domain.Source{src, dup}) })

	u.accept(t)
	require.Eventually(t, func() bool { return len(s.Sources()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "RFLink1", s.Sources()[0].Name)
}

func TestSupervisor_RunTwice(t *testing.T) {
	q := NewRelayQueue(DefaultQueueCapacity, nil, nil)
	s, _ := newTestSupervisor(t, q, Deps{})
	runWorker(t, func(ctx context.Context) error { return s.Run(ctx, nil) })

	require.Eventually(t, func() bool { return s.UpdateSources(nil) == nil }, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.Run(context.Background(), nil), domain.ErrAlreadyRunning)
}

// readUntilQuiet collects whatever the consumer receives until it has been
// silent for quiet.
func readUntilQuiet(t *testing.T, conn net.Conn, quiet time.Duration) []byte {
	t.Helper()
	var got []byte
	buf := make([]byte, 256)
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(quiet)))
		n, err := conn.Read(buf)
		got = append(got, buf[:n]...)
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return got
		}
		require.NoError(t, err)
	}
}

func TestSupervisor_BurstWithConsumerKeepsOrder(t *testing.T) {
	u := newUpstream(t)
	q := NewRelayQueue(DefaultQueueCapacity, nil, nil)
	s := NewSupervisor(SupervisorConfig{
		Bridge:     freeEndpoint(t),
		FrameSize:  1,
		RetryDelay: testRetryDelay,
	}, q, Deps{Transport: loopbackTransport{}})
	bridge := s.cfg.Bridge
	runWorker(t, func(ctx context.Context) error { return s.Run(ctx, []domain.Source{u.source("RFLink1")}) })

	gw := u.accept(t)
	consumer := dialConsumer(t, bridge)
	require.Eventually(t, func() bool { return s.RelayState() == RelayAccepted }, 2*time.Second, 5*time.Millisecond)

	// 60 one-byte frames with strictly increasing values
	burst := make([]byte, 60)
	for i := range burst {
		burst[i] = byte('0' + i)
	}
	_, err := gw.Write(burst)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st := q.Stats()
		return st.Accepted+st.Dropped == uint64(len(burst))
	}, 2*time.Second, 5*time.Millisecond)

	got := readUntilQuiet(t, consumer, 300*time.Millisecond)
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), len(burst))
	assert.Equal(t, int(q.Stats().Accepted), len(got))
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i], "frame %d out of order", i)
	}
}

func TestSupervisor_InterleavedSourcesKeepPerSourceOrder(t *testing.T) {
	ua, ub := newUpstream(t), newUpstream(t)
	q := NewRelayQueue(DefaultQueueCapacity, nil, nil)
	s, bridge := newTestSupervisor(t, q, Deps{})
	runWorker(t, func(ctx context.Context) error {
		return s.Run(ctx, []domain.Source{ua.source("RFLinkA"), ub.source("RFLinkB")})
	})

	ca, cb := ua.accept(t), ub.accept(t)
	consumer := dialConsumer(t, bridge)
	require.Eventually(t, func() bool { return s.RelayState() == RelayAccepted }, 2*time.Second, 5*time.Millisecond)

	for _, w := range []struct {
		conn    net.Conn
		payload string
	}{{ca, "A1;"}, {cb, "B1;"}, {ca, "A2;"}} {
		_, err := w.conn.Write([]byte(w.payload))
		require.NoError(t, err)
	}

	out := readN(t, consumer, len("A1;B1;A2;"))
	for _, want := range []string{"A1;", "B1;", "A2;"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "A1;"), strings.Index(out, "A2;"))
}
