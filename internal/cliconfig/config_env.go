package cliconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable batchship reads.
const EnvPrefix = "BATCHSHIP_"

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment. Variables that are already set are not overridden.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnvConfig applies configuration from environment variables (BATCHSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("topic", env("TOPIC"), &cfg.Topic)
	s.setString("transport", env("TRANSPORT"), &cfg.Transport)
	s.setString("broker-url", env("BROKER_URL"), &cfg.BrokerURL)
	s.setString("client-id", env("CLIENT_ID"), &cfg.ClientID)
	s.setString("username", env("USERNAME"), &cfg.Username)
	s.setString("password", env("PASSWORD"), &cfg.Password)
	s.setString("service-url", env("SERVICE_URL"), &cfg.ServiceURL)
	s.setString("auth-key", env("AUTH_KEY"), &cfg.AuthKey)
	s.setString("compression", env("COMPRESSION"), &cfg.Compression)
	s.setString("spool-dir", env("SPOOL_DIR"), &cfg.SpoolDir)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("inbox-dir", env("INBOX_DIR"), &cfg.InboxDir)
	s.setString("listen-addr", env("LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	durations := []struct {
		flag string
		key  string
		dst  *time.Duration
	}{
		{"publish-timeout", "PUBLISH_TIMEOUT", &cfg.PublishTimeout},
		{"initial-delay", "INITIAL_DELAY", &cfg.InitialDelay},
		{"flush-period", "FLUSH_PERIOD", &cfg.FlushPeriod},
		{"max-batch-age", "MAX_BATCH_AGE", &cfg.MaxBatchAge},
		{"retry-initial", "RETRY_INITIAL", &cfg.RetryInitial},
		{"retry-max", "RETRY_MAX", &cfg.RetryMax},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, env(d.key), d.dst); err != nil {
			return err
		}
	}

	ints := []struct {
		flag string
		key  string
		dst  *int
	}{
		{"qos", "QOS", &cfg.QoS},
		{"max-batch-bytes", "MAX_BATCH_BYTES", &cfg.MaxBatchBytes},
		{"max-batch-messages", "MAX_BATCH_MESSAGES", &cfg.MaxBatchMessages},
		{"max-message-bytes", "MAX_MESSAGE_BYTES", &cfg.MaxMessageBytes},
		{"max-attempts", "MAX_ATTEMPTS", &cfg.MaxAttempts},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, env(i.key), i.dst); err != nil {
			return err
		}
	}

	s.setBoolFromString("once", env("ONCE"), &cfg.Once)

	return nil
}
