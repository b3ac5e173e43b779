package app

import (
	"errors"
	"io"
	"net"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"

	"github.com/bft-labs/rfbridge/internal/ports"
	"github.com/bft-labs/rfbridge/pkg/log"
)

var nopLogger ports.Logger = log.NewNoopLogger()

// Deps are the collaborators shared by the workers and the supervisor.
// Transport is required; the others default to no-op implementations and
// the wall clock.
type Deps struct {
	Transport ports.Transport
	Notifier  ports.Notifier
	Logger    ports.Logger
	Metrics   ports.Metrics
	Clock     clock.Clock
}

func (d Deps) withDefaults() Deps {
	if d.Transport == nil {
		panic("app: Deps.Transport is required")
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Logger == nil {
		d.Logger = nopLogger
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	return d
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

type nopMetrics struct{}

func (nopMetrics) FrameReceived(string, int) {}
func (nopMetrics) FrameDropped(string)       {}
func (nopMetrics) FrameSent(int)             {}
func (nopMetrics) StaleDiscarded(int)        {}
func (nopMetrics) QueueDepth(int)            {}
func (nopMetrics) Connected(string, bool)    {}
func (nopMetrics) Reconnect(string)          {}

// closeAll closes every closer and aggregates the errors. Closers already
// closed by a cancellation hook report net.ErrClosed, which is ignored.
func closeAll(closers ...io.Closer) error {
	var err error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if cErr := c.Close(); cErr != nil && !errors.Is(cErr, net.ErrClosed) {
			err = multierror.Append(err, cErr)
		}
	}
	return err
}
