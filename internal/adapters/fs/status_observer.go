package fs

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

// StatusObserver folds flush outcomes into a domain.Status and saves it
// after every change.
type StatusObserver struct {
	repo   ports.StatusRepository
	logger ports.Logger
	now    func() time.Time

	mu     sync.Mutex
	status domain.Status
}

// NewStatusObserver loads the previous status from repo. A status that
// cannot be read is logged and replaced.
func NewStatusObserver(ctx context.Context, repo ports.StatusRepository, logger ports.Logger) *StatusObserver {
	status, err := repo.Load(ctx)
	if err != nil {
		logger.Warn("ignoring unreadable status file", ports.Err(err))
		status = domain.Status{}
	}
	return &StatusObserver{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		status: status,
	}
}

// OnSubmit does nothing; status tracks batches only.
func (o *StatusObserver) OnSubmit(bool) {}

// OnCycle records out and persists the result.
func (o *StatusObserver) OnCycle(out domain.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.status.Record(out, o.now()) {
		return
	}
	if err := o.repo.Save(context.Background(), o.status); err != nil {
		o.logger.Warn("failed to save status", ports.Err(err))
	}
}

// Status returns a copy of the current status.
func (o *StatusObserver) Status() domain.Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}
