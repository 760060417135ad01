package app

import (
	"context"

	"github.com/bft-labs/batchship/internal/ports"
)

// SerializedTransport admits one Publish at a time on the wrapped handle.
// Waiting publishers give up when their context is done.
type SerializedTransport struct {
	sem  chan struct{}
	next ports.Transport
}

// Serialize wraps t. A nil transport stays nil and an already serialized
// transport is returned as is, so every holder shares the same lock.
func Serialize(t ports.Transport) ports.Transport {
	if t == nil {
		return nil
	}
	if s, ok := t.(*SerializedTransport); ok {
		return s
	}
	return &SerializedTransport{
		sem:  make(chan struct{}, 1),
		next: t,
	}
}

// Publish forwards to the wrapped transport under the handle's lock.
func (s *SerializedTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	return s.next.Publish(ctx, topic, payload)
}

// Unwrap returns the underlying transport.
func (s *SerializedTransport) Unwrap() ports.Transport {
	return s.next
}
