package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Transport names.
const (
	TransportNone = ""
	TransportMQTT = "mqtt"
	TransportHTTP = "http"
)

// DefaultTopic is the destination batches are published to.
const DefaultTopic = "obv/batch"

// Config holds CLI configuration for batchship.
type Config struct {
	Topic     string
	Transport string

	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	QoS       int

	ServiceURL string
	AuthKey    string

	PublishTimeout time.Duration
	InitialDelay   time.Duration
	FlushPeriod    time.Duration

	Compression      string
	MaxBatchBytes    int
	MaxBatchMessages int
	MaxBatchAge      time.Duration
	MaxMessageBytes  int
	MaxAttempts      int
	RetryInitial     time.Duration
	RetryMax         time.Duration

	SpoolDir string
	StateDir string

	InboxDir   string
	ListenAddr string

	LogLevel string
	Once     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Topic:            DefaultTopic,
		QoS:              1,
		PublishTimeout:   30 * time.Second,
		InitialDelay:     time.Second,
		FlushPeriod:      3 * time.Second,
		Compression:      "zlib",
		MaxBatchBytes:    256 << 10,
		MaxBatchMessages: 1000,
		MaxBatchAge:      10 * time.Second,
		MaxMessageBytes:  64 << 10,
		RetryInitial:     time.Second,
		RetryMax:         time.Minute,
		LogLevel:         "info",
	}
}

// Validate checks the configuration for errors and normalizes it.
func (c *Config) Validate() error {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case TransportNone:
	case TransportMQTT:
		if c.BrokerURL == "" {
			return fmt.Errorf("broker-url is required for the mqtt transport")
		}
	case TransportHTTP:
		if c.ServiceURL == "" {
			return fmt.Errorf("service-url is required for the http transport")
		}
	default:
		return fmt.Errorf("unknown transport %q (want mqtt, http or none)", c.Transport)
	}

	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")

	if c.Transport != TransportNone && c.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if c.QoS < 0 || c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}
	switch c.Compression {
	case "zlib", "gzip", "zstd":
	default:
		return fmt.Errorf("unknown compression %q (want zlib, gzip or zstd)", c.Compression)
	}

	if c.InitialDelay <= 0 {
		return fmt.Errorf("initial delay must be positive")
	}
	if c.FlushPeriod <= 0 {
		return fmt.Errorf("flush period must be positive")
	}
	if c.MaxBatchBytes <= 0 || c.MaxBatchMessages <= 0 || c.MaxMessageBytes <= 0 {
		return fmt.Errorf("batch limits must be positive")
	}
	if c.MaxMessageBytes > c.MaxBatchBytes {
		return fmt.Errorf("max-message-bytes must not exceed max-batch-bytes")
	}
	if c.MaxBatchAge <= 0 {
		return fmt.Errorf("max batch age must be positive")
	}
	if c.RetryInitial <= 0 || c.RetryMax < c.RetryInitial {
		return fmt.Errorf("retry delays must satisfy 0 < retry-initial <= retry-max")
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int value, zero included, if present and flag not changed.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return fmt.Errorf("parse %s: must not be negative", flag)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
