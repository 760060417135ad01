package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

// DefaultTopic is the destination used when none is configured.
const DefaultTopic = "obv/batch"

// ControllerConfig holds the settings fixed at controller construction.
type ControllerConfig struct {
	// Topic is the destination every batch is published to.
	Topic string

	// PublishTimeout bounds a single publish call. Zero leaves the bound to
	// the caller's context.
	PublishTimeout time.Duration
}

// DeliveryController moves one batch to its terminal state: published,
// logged (no transport), or handed back to the store.
type DeliveryController struct {
	topic          string
	publishTimeout time.Duration
	transport      ports.Transport
	codec          ports.Codec
	unsent         ports.UnsentHandler
	logger         ports.Logger
}

// NewDeliveryController creates a controller. A nil transport selects
// diagnostic mode. The transport is wrapped so that publishes on it are
// serialized for the controller's lifetime.
func NewDeliveryController(
	cfg ControllerConfig,
	transport ports.Transport,
	codec ports.Codec,
	unsent ports.UnsentHandler,
	logger ports.Logger,
) (*DeliveryController, error) {
	if unsent == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, domain.ErrMissingStore)
	}
	if codec == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, domain.ErrMissingCodec)
	}
	if transport != nil && cfg.Topic == "" {
		return nil, fmt.Errorf("%w: topic is required when a transport is configured", domain.ErrInvalidConfig)
	}
	if logger == nil {
		logger = nopLogger{}
	}

	if transport == nil {
		logger.Info("no transport configured, batches will be decompressed and logged")
	}

	return &DeliveryController{
		topic:          cfg.Topic,
		publishTimeout: cfg.PublishTimeout,
		transport:      Serialize(transport),
		codec:          codec,
		unsent:         unsent,
		logger:         logger,
	}, nil
}

// Diagnostic returns true when no transport is configured.
func (c *DeliveryController) Diagnostic() bool {
	return c.transport == nil
}

// Transport returns the serialized transport handle, or nil in diagnostic
// mode. Other publishers on the same connection should go through it.
func (c *DeliveryController) Transport() ports.Transport {
	return c.transport
}

// Deliver attempts delivery of batch. Failures are recovered: the batch is
// handed back to the store and the error is reported in the Outcome.
func (c *DeliveryController) Deliver(ctx context.Context, batch *domain.Batch) domain.Outcome {
	start := time.Now()

	var out domain.Outcome
	if c.transport == nil {
		out = c.logBatch(batch)
	} else {
		out = c.publishBatch(ctx, batch)
	}

	out.Duration = time.Since(start)
	return out
}

func (c *DeliveryController) publishBatch(ctx context.Context, batch *domain.Batch) domain.Outcome {
	if c.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.publishTimeout)
		defer cancel()
	}

	err := guard(func() error {
		return c.transport.Publish(ctx, c.topic, batch.Payload)
	})
	if err != nil {
		c.logger.Error("batch failed to send",
			ports.Err(err),
			ports.String("batch_id", batch.ID),
			ports.String("topic", c.topic),
			ports.Int("bytes", batch.Size()),
			ports.Int("attempts", batch.Attempts),
		)
		return c.handBack(batch, domain.StagePublish, err)
	}

	c.logger.Debug("published batch",
		ports.String("batch_id", batch.ID),
		ports.String("topic", c.topic),
		ports.Int("bytes", batch.Size()),
		ports.Int("messages", batch.Messages),
	)
	return domain.OutcomeFor(domain.OutcomeDelivered, batch)
}

func (c *DeliveryController) logBatch(batch *domain.Batch) domain.Outcome {
	var data []byte
	err := guard(func() error {
		var err error
		data, err = c.codec.Decompress(batch.Payload)
		return err
	})
	if err != nil {
		c.logger.Error("decompression of batch failed",
			ports.Err(err),
			ports.String("batch_id", batch.ID),
			ports.String("codec", c.codec.Name()),
			ports.Int("bytes", batch.Size()),
		)
		return c.handBack(batch, domain.StageDecompress, err)
	}

	c.logger.Info("decompressed batch",
		ports.String("batch_id", batch.ID),
		ports.Int("messages", batch.Messages),
		ports.String("data", string(data)),
	)
	return domain.OutcomeFor(domain.OutcomeLogged, batch)
}

// handBack returns ownership of batch to the store.
func (c *DeliveryController) handBack(batch *domain.Batch, stage string, err error) domain.Outcome {
	out := domain.OutcomeFor(domain.OutcomeDeferred, batch)
	out.Err = &domain.DeliveryError{Stage: stage, BatchID: batch.ID, Err: err}

	c.unsent.HandleUnsentBatch(batch)
	c.logger.Debug("batch handed back to store for later delivery",
		ports.String("batch_id", batch.ID),
	)
	return out
}

// guard runs fn and converts a panic into an error carrying the stack.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}
