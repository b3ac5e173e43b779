package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/rfbridge/internal/domain"
	"github.com/bft-labs/rfbridge/internal/ports"
)

// ShutdownTimeout bounds how long Stop waits for the workers to exit.
const ShutdownTimeout = 30 * time.Second

// State is where the bridge is in its start/stop cycle.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

var stateNames = [...]string{"Stopped", "Starting", "Running", "Stopping", "Crashed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// next holds the legal successors of every state. A crashed bridge may be
// started again; it never goes straight back to Running.
var next = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// EventEmitter observes state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle guards the bridge state and the goroutines started under it.
type Lifecycle struct {
	log  ports.Logger
	emit EventEmitter

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc

	running sync.WaitGroup
}

// NewLifecycle returns a Lifecycle in StateStopped. Both arguments may be nil.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	if logger == nil {
		logger = nopLogger
	}
	return &Lifecycle{log: logger, emit: emitter}
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// TransitionTo moves to to, or fails without side effects. An illegal move
// out of Stopped or Crashed reports ErrNotRunning; from any other state it
// reports ErrAlreadyRunning.
func (l *Lifecycle) TransitionTo(to State, reason string) error {
	l.mu.Lock()
	from := l.state
	ok := false
	for _, s := range next[from] {
		ok = ok || s == to
	}
	if ok {
		l.state = to
	}
	l.mu.Unlock()

	if !ok {
		if from == StateStopped || from == StateCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}

	// the emitter runs unlocked so handlers may call back into the bridge
	if l.emit != nil {
		l.emit.OnStateChange(from, to, reason)
	}
	l.log.Info("bridge "+to.String(),
		ports.String("previous", from.String()),
		ports.String("reason", reason),
	)
	return nil
}

// CanStart reports whether the bridge is idle.
func (l *Lifecycle) CanStart() bool {
	switch l.State() {
	case StateStopped, StateCrashed:
		return true
	}
	return false
}

// CanStop reports whether there is anything to stop.
func (l *Lifecycle) CanStop() bool {
	switch l.State() {
	case StateStarting, StateRunning:
		return true
	}
	return false
}

// SetCancel records the function that Cancel invokes.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()
}

// Cancel invokes the recorded cancel function, if any.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Go runs fn on a goroutine that WaitWithTimeout accounts for.
func (l *Lifecycle) Go(fn func()) {
	l.running.Add(1)
	go func() {
		defer l.running.Done()
		fn()
	}()
}

// WaitWithTimeout blocks until every goroutine started with Go returned,
// or fails with ErrShutdownTimeout after timeout.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.running.Wait()
		close(done)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
		l.log.Warn("workers still running after shutdown timeout", ports.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}
