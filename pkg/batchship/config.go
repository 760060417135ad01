package batchship

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bft-labs/batchship/internal/accumulator"
	"github.com/bft-labs/batchship/internal/adapters/codec"
	"github.com/bft-labs/batchship/internal/app"
	"github.com/bft-labs/batchship/internal/domain"
)

// Transport names accepted by Config.Transport.
const (
	TransportNone = ""
	TransportMQTT = "mqtt"
	TransportHTTP = "http"
)

// DefaultTopic is the destination batches are published to.
const DefaultTopic = app.DefaultTopic

// Config holds the configuration for a Batchship instance.
// Use DefaultConfig to get a Config with sensible defaults.
type Config struct {
	// Topic is the destination of every batch. Required when a transport is
	// configured. Default: "obv/batch"
	Topic string

	// Transport selects the publisher: "mqtt", "http" or empty for none.
	// With no transport, ready batches are decompressed and logged.
	Transport string

	// MQTT settings.
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	QoS       int

	// HTTP settings.
	ServiceURL string
	AuthKey    string

	// Hostname is reported to the ingest service. Default: os.Hostname()
	Hostname string

	// PublishTimeout bounds a single publish. Default: 30 seconds
	PublishTimeout time.Duration

	// InitialDelay is the wait before the first flush cycle. Default: 1 second
	InitialDelay time.Duration

	// FlushPeriod is the fixed rate of flush cycles. Default: 3 seconds
	FlushPeriod time.Duration

	// Compression names the batch codec: zlib, gzip or zstd. Default: zlib
	Compression string

	// Batch thresholds and re-offer backoff. Zero values take the
	// accumulator defaults.
	MaxBatchBytes    int
	MaxBatchMessages int
	MaxBatchAge      time.Duration
	MaxMessageBytes  int
	RetryInitial     time.Duration
	RetryMax         time.Duration

	// MaxAttempts drops a batch after that many failed deliveries.
	// Default: 0 (retry forever)
	MaxAttempts int

	// SpoolDir holds the durable spool of sealed batches. Empty keeps
	// batches in memory only.
	SpoolDir string

	// StateDir holds status.json. Empty disables the status file.
	StateDir string
}

// DefaultConfig returns a Config with default values and no transport.
func DefaultConfig() Config {
	cfg := Config{QoS: 1}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero-valued fields with defaults.
func (c *Config) SetDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.Hostname == "" {
		c.Hostname = hostname()
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = 30 * time.Second
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = app.DefaultInitialDelay
	}
	if c.FlushPeriod == 0 {
		c.FlushPeriod = app.DefaultFlushPeriod
	}
	if c.Compression == "" {
		c.Compression = codec.NameZlib
	}

	def := accumulator.DefaultConfig()
	if c.MaxBatchBytes == 0 {
		c.MaxBatchBytes = def.MaxBatchBytes
	}
	if c.MaxBatchMessages == 0 {
		c.MaxBatchMessages = def.MaxBatchMessages
	}
	if c.MaxBatchAge == 0 {
		c.MaxBatchAge = def.MaxBatchAge
	}
	if c.MaxMessageBytes == 0 {
		c.MaxMessageBytes = def.MaxMessageBytes
	}
	if c.RetryInitial == 0 {
		c.RetryInitial = def.RetryInitial
	}
	if c.RetryMax == 0 {
		c.RetryMax = def.RetryMax
	}
}

// Validate checks the configuration. Errors wrap domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case TransportNone:
	case TransportMQTT:
		if c.BrokerURL == "" {
			return fmt.Errorf("%w: broker url is required for the mqtt transport", domain.ErrInvalidConfig)
		}
	case TransportHTTP:
		if c.ServiceURL == "" {
			return fmt.Errorf("%w: service url is required for the http transport", domain.ErrInvalidConfig)
		}
		c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")
	default:
		return fmt.Errorf("%w: unknown transport %q", domain.ErrInvalidConfig, c.Transport)
	}
	if c.QoS < 0 || c.QoS > 2 {
		return fmt.Errorf("%w: qos must be 0, 1 or 2", domain.ErrInvalidConfig)
	}
	if c.PublishTimeout < 0 {
		return fmt.Errorf("%w: publish timeout must not be negative", domain.ErrInvalidConfig)
	}
	return c.accumulatorConfig().Validate()
}

func (c *Config) accumulatorConfig() accumulator.Config {
	return accumulator.Config{
		MaxBatchBytes:    c.MaxBatchBytes,
		MaxBatchMessages: c.MaxBatchMessages,
		MaxBatchAge:      c.MaxBatchAge,
		MaxMessageBytes:  c.MaxMessageBytes,
		RetryInitial:     c.RetryInitial,
		RetryMax:         c.RetryMax,
		MaxAttempts:      c.MaxAttempts,
	}
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
