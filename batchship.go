// Package batchship accumulates messages into compressed batches and ships
// them to a broker or ingest service on a fixed schedule.
//
// Example usage:
//
//	cfg := batchship.DefaultConfig()
//	cfg.Transport = batchship.TransportMQTT
//	cfg.BrokerURL = "tcp://localhost:1883"
//
//	b, err := batchship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	b.Submit(batchship.Text("hello"))
//
// The full API lives in github.com/bft-labs/batchship/pkg/batchship.
package batchship

import "github.com/bft-labs/batchship/pkg/batchship"

// Batchship is an embeddable batch shipping agent.
type Batchship = batchship.Batchship

// Config holds the configuration for a Batchship instance.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = batchship.Config

// Option configures optional behavior of Batchship.
type Option = batchship.Option

// Message is anything with a stable textual form.
type Message = batchship.Message

// Text is a Message backed by a plain string.
type Text = batchship.Text

// Transport names.
const (
	TransportNone = batchship.TransportNone
	TransportMQTT = batchship.TransportMQTT
	TransportHTTP = batchship.TransportHTTP
)

// New creates a Batchship instance in the stopped state.
func New(cfg Config, opts ...Option) (*Batchship, error) {
	return batchship.New(cfg, opts...)
}

// DefaultConfig returns a Config with sensible default values and no
// transport.
func DefaultConfig() Config {
	return batchship.DefaultConfig()
}
