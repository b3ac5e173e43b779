package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/rfbridge/internal/domain"
	"github.com/bft-labs/rfbridge/internal/ports"
)

// SupervisorConfig contains configuration shared by all workers.
type SupervisorConfig struct {
	Bridge     domain.Endpoint
	FrameSize  int
	RetryDelay time.Duration
}

// Supervisor starts one ingest worker per enabled source plus the relay
// worker, and keeps them running for the lifetime of Run. Workers heal
// themselves; the supervisor never restarts them.
type Supervisor struct {
	cfg   SupervisorConfig
	queue *RelayQueue
	deps  Deps

	mu      sync.Mutex
	running bool
	group   *errgroup.Group
	ctx     context.Context
	ingest  map[domain.Endpoint]*ingestHandle
	relay   *RelayWorker
}

type ingestHandle struct {
	worker *IngestWorker
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor creates a supervisor feeding and draining queue.
func NewSupervisor(cfg SupervisorConfig, queue *RelayQueue, deps Deps) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		queue:  queue,
		deps:   deps.withDefaults(),
		ingest: make(map[domain.Endpoint]*ingestHandle),
	}
}

// Run starts the workers for sources and blocks for the relay worker's
// lifetime. It returns ctx.Err() once ctx is done and every worker exited.
func (s *Supervisor) Run(ctx context.Context, sources []domain.Source) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	s.running = true
	s.group = g
	s.ctx = gctx
	s.applyLocked(sources)
	relay := NewRelayWorker(RelayConfig{
		Endpoint:   s.cfg.Bridge,
		RetryDelay: s.cfg.RetryDelay,
	}, s.queue, s.deps)
	s.relay = relay
	s.mu.Unlock()

	g.Go(func() error {
		err := relay.Run(gctx)
		// the process is alive only as long as the relay is
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		cancel()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err := g.Wait()

	s.mu.Lock()
	s.ingest = make(map[domain.Endpoint]*ingestHandle)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	return ctx.Err()
}

// UpdateSources reconciles the running ingest workers with sources.
// Workers for endpoints no longer present are stopped, new endpoints get
// a new worker, and unchanged endpoints keep their worker.
func (s *Supervisor) UpdateSources(sources []domain.Source) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	stopped := s.applyLocked(sources)
	s.mu.Unlock()

	for _, h := range stopped {
		<-h.done
	}
	return nil
}

// Sources returns the sources that currently have a running worker, sorted by name.
func (s *Supervisor) Sources() []domain.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Source, 0, len(s.ingest))
	for _, h := range s.ingest {
		out = append(out, h.worker.Source())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RelayState returns the relay worker state, or RelayListening before Run.
func (s *Supervisor) RelayState() RelayState {
	s.mu.Lock()
	relay := s.relay
	s.mu.Unlock()
	if relay == nil {
		return RelayListening
	}
	return relay.State()
}

// applyLocked starts and cancels ingest workers so that exactly the enabled
// sources run. It returns the handles that were cancelled. s.mu must be held.
func (s *Supervisor) applyLocked(sources []domain.Source) []*ingestHandle {
	want := make(map[domain.Endpoint]domain.Source, len(sources))
	var ordered []domain.Source
	for _, src := range sources {
		if !src.Enabled() {
			s.deps.Logger.Info(src.Name+" disabled", ports.String("source", src.Name))
			continue
		}
		ep := src.Endpoint()
		if prev, dup := want[ep]; dup {
			s.deps.Logger.Warn("duplicate source endpoint, skipping",
				ports.String("source", src.Name),
				ports.String("duplicate_of", prev.Name),
				ports.String("addr", ep.Address()),
			)
			continue
		}
		want[ep] = src
		ordered = append(ordered, src)
	}

	var stopped []*ingestHandle
	for ep, h := range s.ingest {
		if _, keep := want[ep]; keep {
			continue
		}
		s.deps.Logger.Info("stopping ingest worker",
			ports.String("source", h.worker.Source().Name),
			ports.String("addr", ep.Address()),
		)
		h.cancel()
		delete(s.ingest, ep)
		stopped = append(stopped, h)
	}

	for _, src := range ordered {
		if _, running := s.ingest[src.Endpoint()]; running {
			continue
		}
		s.startLocked(src)
	}
	return stopped
}

func (s *Supervisor) startLocked(src domain.Source) {
	worker := NewIngestWorker(IngestConfig{
		Source:     src,
		FrameSize:  s.cfg.FrameSize,
		RetryDelay: s.cfg.RetryDelay,
	}, s.queue, s.deps)

	wctx, cancel := context.WithCancel(s.ctx)
	h := &ingestHandle{worker: worker, cancel: cancel, done: make(chan struct{})}
	s.ingest[src.Endpoint()] = h

	s.deps.Logger.Info("starting ingest worker",
		ports.String("source", src.Name),
		ports.String("addr", src.Endpoint().Address()),
	)
	s.group.Go(func() error {
		defer close(h.done)
		defer cancel()
		_ = worker.Run(wctx)
		return nil
	})
}
