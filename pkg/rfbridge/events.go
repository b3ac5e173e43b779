package rfbridge

import "github.com/bft-labs/rfbridge/internal/app"

// State is the lifecycle state of a Bridge.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	return app.State(s).String()
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives bridge events. Implementations should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
}

// BaseEventHandler can be embedded for no-op defaults.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}

// eventEmitterWrapper adapts an EventHandler to the lifecycle emitter.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: State(previous),
		Current:  State(current),
		Reason:   reason,
	})
}
