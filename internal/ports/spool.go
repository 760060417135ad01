package ports

import "github.com/bft-labs/batchship/internal/domain"

// Spool is ordered storage for sealed batches awaiting delivery.
// Entries are addressed by a monotonically increasing sequence number.
type Spool interface {
	// Append stores b after all existing entries and returns its sequence.
	Append(b domain.Batch) (uint64, error)

	// Oldest returns the entry with the lowest sequence.
	// ok is false when the spool is empty.
	Oldest() (seq uint64, b domain.Batch, ok bool, err error)

	// Update replaces the entry at seq.
	Update(seq uint64, b domain.Batch) error

	// Remove deletes the entry at seq. Removing a missing entry is not an error.
	Remove(seq uint64) error

	// Len returns the number of stored entries.
	Len() int

	Close() error
}
