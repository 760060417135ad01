package app

import (
	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

// MessageSink is the part of the accumulation store producers write to.
type MessageSink interface {
	AddMessage(text string) error
}

// IngestPort accepts messages from producers, one at a time.
// It is safe for concurrent use if the sink is.
type IngestPort struct {
	sink     MessageSink
	logger   ports.Logger
	observer Observer
}

// NewIngestPort creates an ingest port writing to sink.
func NewIngestPort(sink MessageSink, logger ports.Logger, observer Observer) *IngestPort {
	if logger == nil {
		logger = nopLogger{}
	}
	return &IngestPort{
		sink:     sink,
		logger:   logger,
		observer: observer,
	}
}

// Submit forwards the message's text to the store. Returns false if msg is
// nil, its String panics (a typed nil pointer, for one) or the store
// rejected it; rejected messages are not retried.
func (p *IngestPort) Submit(msg domain.Message) bool {
	if msg == nil {
		p.logger.Debug("nil message rejected")
		p.notify(false)
		return false
	}

	var text string
	if err := guard(func() error { text = msg.String(); return nil }); err != nil {
		p.logger.Error("message text could not be read", ports.Err(err))
		p.notify(false)
		return false
	}
	if err := p.sink.AddMessage(text); err != nil {
		p.logger.Error("message was not added to the batch",
			ports.Err(err),
			ports.Int("bytes", len(text)),
		)
		p.notify(false)
		return false
	}

	p.notify(true)
	return true
}

func (p *IngestPort) notify(accepted bool) {
	if p.observer != nil {
		p.observer.OnSubmit(accepted)
	}
}
