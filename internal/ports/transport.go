package ports

import "context"

// Transport publishes payloads to a broker or ingestion service.
// Callers must serialize Publish calls on a shared handle.
type Transport interface {
	// Publish sends payload to topic. Returns nil once the remote side has
	// accepted the payload.
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Connector is implemented by transports that hold a connection open.
type Connector interface {
	Connect(ctx context.Context) error
	Close() error
}
