package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the batchship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("batchship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("batchship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("batchship: shutdown timeout")

	// ErrInvalidConfig is returned when a required dependency or setting is missing.
	ErrInvalidConfig = errors.New("batchship: invalid configuration")

	// ErrMissingStore is wrapped by ErrInvalidConfig when no accumulation store is given.
	ErrMissingStore = errors.New("accumulation store is required")

	// ErrMissingCodec is wrapped by ErrInvalidConfig when no codec is given.
	ErrMissingCodec = errors.New("compression codec is required")

	// ErrMissingSpool is wrapped by ErrInvalidConfig when no spool is given.
	ErrMissingSpool = errors.New("unsent batch spool is required")

	// ErrStoreClosed is returned by the accumulation store after Close.
	ErrStoreClosed = errors.New("batchship: store closed")

	// ErrEmptyMessage rejects messages whose text is empty.
	ErrEmptyMessage = errors.New("batchship: empty message")

	// ErrMessageTooLarge rejects messages above the configured size limit.
	ErrMessageTooLarge = errors.New("batchship: message too large")

	// ErrNotConnected is returned by transports that have no live connection.
	ErrNotConnected = errors.New("batchship: transport not connected")
)

// Delivery stages reported by DeliveryError.
const (
	StagePublish    = "publish"
	StageDecompress = "decompress"
)

// DeliveryError describes a recovered delivery failure. The batch it refers
// to has already been handed back to the accumulation store.
type DeliveryError struct {
	Stage   string
	BatchID string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s batch %s: %v", e.Stage, e.BatchID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
