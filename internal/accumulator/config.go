package accumulator

import (
	"fmt"
	"time"

	"github.com/bft-labs/batchship/internal/domain"
)

// Default thresholds.
const (
	DefaultMaxBatchBytes    = 256 << 10
	DefaultMaxBatchMessages = 1000
	DefaultMaxBatchAge      = 10 * time.Second
	DefaultMaxMessageBytes  = 64 << 10
	DefaultRetryInitial     = time.Second
	DefaultRetryMax         = time.Minute
)

// Config controls when batches are sealed and how failed ones are retried.
type Config struct {
	// MaxBatchBytes seals a batch once its uncompressed size reaches this.
	MaxBatchBytes int

	// MaxBatchMessages seals a batch once it holds this many messages.
	MaxBatchMessages int

	// MaxBatchAge seals a non-empty batch this long after its first message.
	MaxBatchAge time.Duration

	// MaxMessageBytes rejects longer messages.
	MaxMessageBytes int

	// RetryInitial and RetryMax bound the delay before a handed-back batch
	// is offered again.
	RetryInitial time.Duration
	RetryMax     time.Duration

	// MaxAttempts drops a batch after this many failed deliveries.
	// Zero retries forever.
	MaxAttempts int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MaxBatchBytes:    DefaultMaxBatchBytes,
		MaxBatchMessages: DefaultMaxBatchMessages,
		MaxBatchAge:      DefaultMaxBatchAge,
		MaxMessageBytes:  DefaultMaxMessageBytes,
		RetryInitial:     DefaultRetryInitial,
		RetryMax:         DefaultRetryMax,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch {
	case c.MaxBatchBytes <= 0:
		return fmt.Errorf("%w: max batch bytes must be positive", domain.ErrInvalidConfig)
	case c.MaxBatchMessages <= 0:
		return fmt.Errorf("%w: max batch messages must be positive", domain.ErrInvalidConfig)
	case c.MaxBatchAge <= 0:
		return fmt.Errorf("%w: max batch age must be positive", domain.ErrInvalidConfig)
	case c.MaxMessageBytes <= 0:
		return fmt.Errorf("%w: max message bytes must be positive", domain.ErrInvalidConfig)
	case c.MaxMessageBytes > c.MaxBatchBytes:
		return fmt.Errorf("%w: max message bytes exceeds max batch bytes", domain.ErrInvalidConfig)
	case c.RetryInitial <= 0 || c.RetryMax < c.RetryInitial:
		return fmt.Errorf("%w: retry delays must satisfy 0 < initial <= max", domain.ErrInvalidConfig)
	case c.MaxAttempts < 0:
		return fmt.Errorf("%w: max attempts must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}
