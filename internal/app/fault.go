package app

import (
	"fmt"

	"github.com/bft-labs/rfbridge/internal/ports"
)

type faultKind int

const (
	faultConnect faultKind = iota
	faultDisconnect
	faultRead
	faultListen
	faultAccept
	faultSend
	faultConsumerGone
	faultPanic
)

func (k faultKind) String() string {
	switch k {
	case faultConnect:
		return "connect"
	case faultDisconnect:
		return "disconnect"
	case faultRead:
		return "read"
	case faultListen:
		return "listen"
	case faultAccept:
		return "accept"
	case faultSend:
		return "send"
	case faultConsumerGone:
		return "consumer_gone"
	case faultPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// fault is a classified worker failure. Every fault is recoverable: the
// worker reports it and restarts its loop.
type fault struct {
	kind   faultKind
	worker string
	peer   string
	err    error
}

func (f *fault) Error() string {
	switch f.kind {
	case faultConnect:
		return fmt.Sprintf("%s: connect to %s failed: %v", f.worker, f.peer, f.err)
	case faultDisconnect:
		return fmt.Sprintf("%s: %s disconnected...", f.worker, f.peer)
	case faultRead:
		return fmt.Sprintf("%s: read from %s failed: %v", f.worker, f.peer, f.err)
	case faultListen:
		return fmt.Sprintf("%s: listen on %s failed: %v", f.worker, f.peer, f.err)
	case faultAccept:
		return fmt.Sprintf("%s: accept on %s failed: %v", f.worker, f.peer, f.err)
	case faultSend:
		return fmt.Sprintf("%s: send to %s failed: %v", f.worker, f.peer, f.err)
	case faultConsumerGone:
		return fmt.Sprintf("%s: consumer %s disconnected", f.worker, f.peer)
	default:
		return fmt.Sprintf("%s: unexpected fault: %v", f.worker, f.err)
	}
}

func (f *fault) Unwrap() error {
	return f.err
}

// recovered converts a recovered panic value into a fault.
func recovered(worker string, r any) *fault {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("%v", r)
	}
	return &fault{kind: faultPanic, worker: worker, err: err}
}

// alerter logs faults and forwards them to the notifier.
type alerter struct {
	logger   ports.Logger
	notifier ports.Notifier
}

func (a alerter) report(f *fault) {
	fields := []ports.Field{ports.String("fault", f.kind.String())}
	if f.err != nil {
		fields = append(fields, ports.Err(f.err))
	}
	a.logger.Error(f.Error(), fields...)
	a.notify(f.Error())
}

// notify shields the worker from a misbehaving notifier.
func (a alerter) notify(msg string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("notifier panicked", ports.Any("panic", r))
		}
	}()
	a.notifier.Notify(msg)
}
