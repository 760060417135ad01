// Package accumulator implements the accumulation store: it joins incoming
// messages into compressed batches and keeps sealed batches in a spool until
// they are delivered.
package accumulator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

// Store is a ports.AccumulationStore backed by a spool.
//
// A batch returned by PollReadyBatch stays in the spool until the next poll
// (or Close) without it having been handed back; that poll acknowledges it.
// A crash between publish and acknowledgement redelivers the batch.
type Store struct {
	mu sync.Mutex

	cfg     Config
	codec   ports.Codec
	spool   ports.Spool
	logger  ports.Logger
	now     func() time.Time
	batcher *batcher
	backoff *backoff

	// overflow holds sealed batches the spool refused, oldest first.
	overflow  []domain.Batch
	inflight  *offer
	nextOffer time.Time
	closed    bool
}

type offer struct {
	seq uint64
	id  string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a store. Batches already in the spool from a previous run are
// offered first.
func New(cfg Config, codec ports.Codec, spool ports.Spool, opts ...Option) (*Store, error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, domain.ErrMissingCodec)
	}
	if spool == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, domain.ErrMissingSpool)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		cfg:     cfg,
		codec:   codec,
		spool:   spool,
		logger:  nopLogger{},
		now:     time.Now,
		batcher: newBatcher(cfg),
		backoff: newBackoff(cfg.RetryInitial, cfg.RetryMax),
	}
	for _, opt := range opts {
		opt(s)
	}

	if n := spool.Len(); n > 0 {
		s.logger.Info("recovered unsent batches from spool", ports.Int("batches", n))
	}
	return s, nil
}

// AddMessage appends text to the open batch, sealing it when a threshold is
// reached.
func (s *Store) AddMessage(text string) error {
	if text == "" {
		return domain.ErrEmptyMessage
	}
	if len(text) > s.cfg.MaxMessageBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d",
			domain.ErrMessageTooLarge, len(text), s.cfg.MaxMessageBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}

	now := s.now()
	if !s.batcher.fits(text) {
		if err := s.sealLocked(now); err != nil {
			return err
		}
	}

	s.batcher.add(text, now)

	if s.batcher.full() {
		// The message is buffered either way; a failed seal is retried on
		// the next poll.
		if err := s.sealLocked(now); err != nil {
			s.logger.Error("failed to seal full batch", ports.Err(err))
		}
	}
	return nil
}

// PollReadyBatch acknowledges the previous offer and returns the oldest
// sealed batch, unless a retry delay is pending.
func (s *Store) PollReadyBatch() (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	if err := s.ackLocked(); err != nil {
		return nil, err
	}

	now := s.now()
	s.flushOverflowLocked()
	if s.batcher.expired(now) {
		if err := s.sealLocked(now); err != nil {
			s.logger.Error("failed to seal expired batch", ports.Err(err))
		}
	}

	if now.Before(s.nextOffer) {
		return nil, nil
	}

	seq, b, ok, err := s.spool.Oldest()
	if err != nil {
		return nil, fmt.Errorf("read spool: %w", err)
	}
	if !ok {
		return nil, nil
	}

	s.inflight = &offer{seq: seq, id: b.ID}
	return &b, nil
}

// Seal closes the open batch so the next poll can offer it without waiting
// for a threshold. Sealing an empty batch does nothing.
func (s *Store) Seal() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}
	if s.batcher.empty() {
		return nil
	}
	return s.sealLocked(s.now())
}

// HandleUnsentBatch takes back a batch that could not be delivered. The batch
// last offered keeps its place at the head of the spool; any other batch is
// queued at the tail. Nothing is offered until the backoff delay passes.
func (s *Store) HandleUnsentBatch(batch *domain.Batch) {
	if batch.Empty() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *batch
	rec.Attempts++

	if s.inflight != nil && s.inflight.id == rec.ID {
		seq := s.inflight.seq
		s.inflight = nil

		if s.cfg.MaxAttempts > 0 && rec.Attempts >= s.cfg.MaxAttempts {
			s.dropLocked(seq, rec)
			return
		}
		if err := s.spool.Update(seq, rec); err != nil {
			s.logger.Error("failed to record delivery attempt",
				ports.Err(err),
				ports.String("batch_id", rec.ID),
			)
		}
	} else {
		s.appendLocked(rec)
	}

	delay := s.backoff.Next()
	s.nextOffer = s.now().Add(delay)

	s.logger.Warn("batch deferred",
		ports.String("batch_id", rec.ID),
		ports.Int("attempts", rec.Attempts),
		ports.Duration("retry_in", delay),
	)
}

// Close acknowledges the last offer, seals the open batch and closes the
// spool. Subsequent calls do nothing.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := s.ackLocked(); err != nil {
		errs = append(errs, err)
	}
	if !s.batcher.empty() {
		if err := s.sealLocked(s.now()); err != nil {
			errs = append(errs, err)
		}
	}
	s.flushOverflowLocked()
	if n := len(s.overflow); n > 0 {
		errs = append(errs, fmt.Errorf("%d sealed batches could not be spooled", n))
	}
	if err := s.spool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close spool: %w", err))
	}
	return errors.Join(errs...)
}

// Pending returns the number of sealed batches awaiting delivery.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	return s.spool.Len() + len(s.overflow)
}

// Buffered returns the number of messages in the open batch.
func (s *Store) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batcher.count
}

func (s *Store) ackLocked() error {
	if s.inflight == nil {
		return nil
	}
	if err := s.spool.Remove(s.inflight.seq); err != nil {
		return fmt.Errorf("acknowledge batch %s: %w", s.inflight.id, err)
	}
	s.inflight = nil
	s.backoff.Reset()
	s.nextOffer = time.Time{}
	return nil
}

// sealLocked compresses the open batch and spools it. On failure the open
// batch is left intact.
func (s *Store) sealLocked(now time.Time) error {
	if s.batcher.empty() {
		return nil
	}

	payload, err := s.codec.Compress(s.batcher.data())
	if err != nil {
		return fmt.Errorf("compress batch: %w", err)
	}

	b := domain.Batch{
		ID:        uuid.NewString(),
		Payload:   payload,
		Messages:  s.batcher.count,
		CreatedAt: now,
	}
	s.batcher.reset()

	s.logger.Debug("sealed batch",
		ports.String("batch_id", b.ID),
		ports.Int("messages", b.Messages),
		ports.Int("bytes", b.Size()),
	)
	s.appendLocked(b)
	return nil
}

// appendLocked spools b behind anything still in overflow.
func (s *Store) appendLocked(b domain.Batch) {
	if len(s.overflow) == 0 {
		_, err := s.spool.Append(b)
		if err == nil {
			return
		}
		s.logger.Error("failed to spool batch, keeping it in memory",
			ports.Err(err),
			ports.String("batch_id", b.ID),
		)
	}
	s.overflow = append(s.overflow, b)
}

func (s *Store) flushOverflowLocked() {
	for len(s.overflow) > 0 {
		if _, err := s.spool.Append(s.overflow[0]); err != nil {
			return
		}
		s.overflow = s.overflow[1:]
	}
}

func (s *Store) dropLocked(seq uint64, b domain.Batch) {
	if err := s.spool.Remove(seq); err != nil {
		s.logger.Error("failed to drop batch", ports.Err(err), ports.String("batch_id", b.ID))
		return
	}
	s.backoff.Reset()
	s.nextOffer = time.Time{}
	s.logger.Error("dropping batch after repeated delivery failures",
		ports.String("batch_id", b.ID),
		ports.Int("attempts", b.Attempts),
		ports.Int("messages", b.Messages),
	)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...ports.Field) {}
func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}
