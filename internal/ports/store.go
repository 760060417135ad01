package ports

import "github.com/bft-labs/batchship/internal/domain"

// AccumulationStore buffers incoming messages and decides when a batch is
// ready. Implementations must be safe for concurrent use: producers call
// AddMessage while the scheduler polls.
type AccumulationStore interface {
	// AddMessage buffers one message. A non-nil error means the message was
	// rejected and is not part of any batch.
	AddMessage(text string) error

	// PollReadyBatch extracts the next ready compressed batch.
	// Returns nil (or an empty batch) when nothing is ready.
	// An error means the store could not answer; the caller skips the cycle.
	PollReadyBatch() (*domain.Batch, error)

	// HandleUnsentBatch takes back ownership of a batch that could not be
	// delivered so it can be offered again later. It never fails outward.
	HandleUnsentBatch(batch *domain.Batch)

	// Close flushes buffered messages and releases resources.
	Close() error
}

// UnsentHandler is the part of the store the delivery controller needs.
type UnsentHandler interface {
	HandleUnsentBatch(batch *domain.Batch)
}
