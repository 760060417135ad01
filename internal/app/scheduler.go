package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

const (
	// DefaultInitialDelay is the wait before the first flush cycle.
	DefaultInitialDelay = time.Second

	// DefaultFlushPeriod is the fixed rate of flush cycles after the first.
	DefaultFlushPeriod = 3 * time.Second
)

// SchedulerConfig holds the flush cadence.
type SchedulerConfig struct {
	InitialDelay time.Duration
	Period       time.Duration
}

// Deliverer delivers one ready batch.
type Deliverer interface {
	Deliver(ctx context.Context, batch *domain.Batch) domain.Outcome
}

// FlushScheduler runs flush cycles at a fixed rate on a single worker.
// Cycles never overlap: a cycle that outlasts the period delays the next
// one and missed firings are coalesced.
type FlushScheduler struct {
	cfg       SchedulerConfig
	store     ports.AccumulationStore
	deliverer Deliverer
	logger    ports.Logger
	observer  Observer

	// cycleMu serializes cycles from the worker and from Flush callers.
	cycleMu sync.Mutex
	stopped atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewFlushScheduler creates a scheduler. It does not start the worker.
func NewFlushScheduler(
	cfg SchedulerConfig,
	store ports.AccumulationStore,
	deliverer Deliverer,
	logger ports.Logger,
	observer Observer,
) (*FlushScheduler, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, domain.ErrMissingStore)
	}
	if deliverer == nil {
		return nil, fmt.Errorf("%w: delivery controller is required", domain.ErrInvalidConfig)
	}
	if cfg.InitialDelay < 0 {
		return nil, fmt.Errorf("%w: initial delay must not be negative", domain.ErrInvalidConfig)
	}
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("%w: flush period must be positive", domain.ErrInvalidConfig)
	}
	if logger == nil {
		logger = nopLogger{}
	}

	return &FlushScheduler{
		cfg:       cfg,
		store:     store,
		deliverer: deliverer,
		logger:    logger,
		observer:  observer,
	}, nil
}

// Start launches the worker. The first cycle fires after InitialDelay and
// then every Period. Cancelling ctx stops further cycles but does not close
// the store; call Stop for that.
func (s *FlushScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("scheduler already stopped: %w", domain.ErrStoreClosed)
	}
	if s.cancel != nil {
		return domain.ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx, s.done)

	s.logger.Info("flush scheduler started",
		ports.Duration("initial_delay", s.cfg.InitialDelay),
		ports.Duration("period", s.cfg.Period),
	)
	return nil
}

// Stop prevents new cycles, waits for an in-flight cycle to finish and then
// closes the store. If ctx expires first, ErrShutdownTimeout is returned and
// the store is left open. A second call returns ErrNotRunning.
func (s *FlushScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	s.stopped.Store(true)

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("flush cycle still running at shutdown deadline")
			return domain.ErrShutdownTimeout
		}
	}

	// Wait out a Flush issued by another caller.
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	s.logger.Info("flush scheduler stopped")
	return nil
}

// Flush runs one cycle now, serialized with the scheduled ones. After Stop
// it does nothing and reports an idle outcome.
func (s *FlushScheduler) Flush(ctx context.Context) domain.Outcome {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if s.stopped.Load() {
		return domain.Outcome{Kind: domain.OutcomeIdle}
	}

	out := s.cycle(ctx)
	if s.observer != nil {
		s.observer.OnCycle(out)
	}
	return out
}

// Drain runs cycles back to back until the store has nothing ready, a
// delivery is deferred, polling fails, or ctx is done.
func (s *FlushScheduler) Drain(ctx context.Context) []domain.Outcome {
	var outs []domain.Outcome
	for ctx.Err() == nil {
		out := s.Flush(ctx)
		if out.Kind == domain.OutcomeIdle {
			break
		}
		outs = append(outs, out)
		if !out.Success() {
			break
		}
	}
	return outs
}

func (s *FlushScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// In-flight deliveries are not interrupted by Stop.
	cycleCtx := context.WithoutCancel(ctx)

	timer := time.NewTimer(s.cfg.InitialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	// The rate is anchored to the first firing, not to the end of its cycle.
	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()
	s.tick(ctx, cycleCtx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, cycleCtx)
		}
	}
}

func (s *FlushScheduler) tick(ctx, cycleCtx context.Context) {
	// select picks randomly between ready cases.
	if ctx.Err() != nil {
		return
	}
	s.Flush(cycleCtx)
}

func (s *FlushScheduler) cycle(ctx context.Context) domain.Outcome {
	start := time.Now()

	batch, err := s.poll()
	if err != nil {
		s.logger.Error("poll for ready batch failed, skipping cycle", ports.Err(err))
		return domain.Outcome{
			Kind:     domain.OutcomePollFailed,
			Err:      err,
			Duration: time.Since(start),
		}
	}
	if batch.Empty() {
		return domain.Outcome{Kind: domain.OutcomeIdle, Duration: time.Since(start)}
	}

	out := s.deliverer.Deliver(ctx, batch)
	s.logger.Debug("flush cycle complete",
		ports.String("outcome", out.Kind.String()),
		ports.String("batch_id", out.BatchID),
		ports.Duration("duration", out.Duration),
	)
	return out
}

func (s *FlushScheduler) poll() (batch *domain.Batch, err error) {
	err = guard(func() error {
		var err error
		batch, err = s.store.PollReadyBatch()
		return err
	})
	return batch, err
}
