package batchship

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Plugin extends a Batchship instance. Plugins are initialized in
// registration order on Start and shut down in reverse order on Stop,
// before the store is closed.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize starts the plugin. An error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin. ctx carries the Stop deadline.
	Shutdown(ctx context.Context) error
}

// Submitter accepts messages for batching.
type Submitter interface {
	Submit(msg Message) bool
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	// Ingest feeds messages into the accumulation store.
	Ingest Submitter

	// Status reports the delivery summary, or the zero value when no state
	// directory is configured.
	Status func() DeliveryStatus

	// Pending reports the number of sealed batches awaiting delivery.
	Pending func() int

	// Gatherer exposes the metrics registered through
	// WithMetricsRegisterer. Nil when metrics are disabled or the
	// registerer cannot be gathered.
	Gatherer prometheus.Gatherer

	Topic  string
	Logger Logger
}
