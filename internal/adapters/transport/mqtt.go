// Package transport publishes compressed batches to a broker or service.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

// Default MQTT settings.
const (
	DefaultQoS                  = 1
	DefaultConnectTimeout       = 10 * time.Second
	DefaultConnectRetryInterval = 5 * time.Second
	DefaultKeepAlive            = 30 * time.Second
	disconnectQuiesceMillis     = 250
)

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	BrokerURL            string
	ClientID             string
	Username             string
	Password             string
	QoS                  byte
	ConnectTimeout       time.Duration
	ConnectRetryInterval time.Duration
	KeepAlive            time.Duration
}

func (c *MQTTConfig) setDefaults() {
	if c.ClientID == "" {
		c.ClientID = "batchship-" + uuid.NewString()
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ConnectRetryInterval <= 0 {
		c.ConnectRetryInterval = DefaultConnectRetryInterval
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = DefaultKeepAlive
	}
}

// mqttClient is the subset of mqtt.Client used here.
type mqttClient interface {
	Connect() mqtt.Token
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes batches to an MQTT broker. The client reconnects on its
// own; publishes made while disconnected fail fast so the batch goes back
// to the store instead of into the client's offline buffer.
type MQTT struct {
	cfg    MQTTConfig
	client mqttClient
	logger ports.Logger
}

// NewMQTT creates an MQTT transport. It does not connect.
func NewMQTT(cfg MQTTConfig, logger ports.Logger) (*MQTT, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("%w: broker url is required", domain.ErrInvalidConfig)
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("%w: qos must be 0, 1 or 2", domain.ErrInvalidConfig)
	}
	cfg.setDefaults()

	t := &MQTT{cfg: cfg, logger: logger}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetKeepAlive(cfg.KeepAlive).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(cfg.ConnectRetryInterval).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("connected to broker", ports.String("broker", cfg.BrokerURL))
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("broker connection lost", ports.Err(err), ports.String("broker", cfg.BrokerURL))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	t.client = mqtt.NewClient(opts)
	return t, nil
}

// Connect starts the connection. If the broker cannot be reached within the
// connect timeout the client keeps retrying in the background and Connect
// returns nil.
func (t *MQTT) Connect(ctx context.Context) error {
	tok := t.client.Connect()

	waitCtx, cancel := context.WithTimeout(ctx, t.cfg.ConnectTimeout)
	defer cancel()

	err := wait(waitCtx, tok)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		t.logger.Warn("broker not reachable yet, retrying in background",
			ports.String("broker", t.cfg.BrokerURL),
			ports.Duration("retry_interval", t.cfg.ConnectRetryInterval),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("connect to %s: %w", t.cfg.BrokerURL, err)
	}
	return nil
}

// Publish sends payload to topic and waits for the broker to acknowledge it
// at the configured QoS.
func (t *MQTT) Publish(ctx context.Context, topic string, payload []byte) error {
	if !t.client.IsConnectionOpen() {
		return domain.ErrNotConnected
	}
	tok := t.client.Publish(topic, t.cfg.QoS, false, payload)
	if err := wait(ctx, tok); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (t *MQTT) Close() error {
	t.client.Disconnect(disconnectQuiesceMillis)
	return nil
}

func wait(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
