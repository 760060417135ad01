package batchship

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/batchship/internal/adapters/log"
	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Transport publishes a payload to a topic. Publish calls on one instance
// are serialized.
type Transport = ports.Transport

// Message is anything with a stable textual form.
type Message = domain.Message

// Text is a Message backed by a plain string.
type Text = domain.Text

// Outcome is the result of one flush cycle.
type Outcome = domain.Outcome

// DeliveryStatus is the delivery summary kept in status.json.
type DeliveryStatus = domain.Status

// Option configures optional behavior of Batchship.
type Option func(*options)

// options holds the optional configuration for a Batchship instance.
type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
	plugins      []Plugin
	transport    ports.Transport
	registerer   prometheus.Registerer
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: logAdapter.NewNoopLogger(),
	}
}

// WithHTTPClient sets the client used by the http transport.
// If not provided, a client with a 30 second timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for batchship events.
// Events are called synchronously from the flush worker.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin. Plugins are initialized in registration
// order on Start and shut down in reverse order on Stop.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, p)
	}
}

// WithTransport overrides Config.Transport with a custom publisher.
// If t also implements Connect(ctx) and Close(), they are called on
// Start and Stop.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithMetricsRegisterer registers batchship's Prometheus collectors with
// reg. Passing a *prometheus.Registry also lets plugins serve them.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// NewZerologLogger adapts a zerolog logger to Logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return logAdapter.NewZerologAdapterWithLogger(l)
}
