package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Topic            string `toml:"topic"`
	Transport        string `toml:"transport"`
	BrokerURL        string `toml:"broker_url"`
	ClientID         string `toml:"client_id"`
	Username         string `toml:"username"`
	Password         string `toml:"password"`
	QoS              *int   `toml:"qos"`
	ServiceURL       string `toml:"service_url"`
	AuthKey          string `toml:"auth_key"`
	PublishTimeout   string `toml:"publish_timeout"`
	InitialDelay     string `toml:"initial_delay"`
	FlushPeriod      string `toml:"flush_period"`
	Compression      string `toml:"compression"`
	MaxBatchBytes    int    `toml:"max_batch_bytes"`
	MaxBatchMessages int    `toml:"max_batch_messages"`
	MaxBatchAge      string `toml:"max_batch_age"`
	MaxMessageBytes  int    `toml:"max_message_bytes"`
	MaxAttempts      int    `toml:"max_attempts"`
	RetryInitial     string `toml:"retry_initial"`
	RetryMax         string `toml:"retry_max"`
	SpoolDir         string `toml:"spool_dir"`
	StateDir         string `toml:"state_dir"`
	InboxDir         string `toml:"inbox_dir"`
	ListenAddr       string `toml:"listen_addr"`
	LogLevel         string `toml:"log_level"`
	Once             *bool  `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.batchship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".batchship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("topic", fc.Topic, &cfg.Topic)
	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("broker-url", fc.BrokerURL, &cfg.BrokerURL)
	s.setString("client-id", fc.ClientID, &cfg.ClientID)
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("password", fc.Password, &cfg.Password)
	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("compression", fc.Compression, &cfg.Compression)
	s.setString("spool-dir", fc.SpoolDir, &cfg.SpoolDir)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("inbox-dir", fc.InboxDir, &cfg.InboxDir)
	s.setString("listen-addr", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"publish-timeout", fc.PublishTimeout, &cfg.PublishTimeout},
		{"initial-delay", fc.InitialDelay, &cfg.InitialDelay},
		{"flush-period", fc.FlushPeriod, &cfg.FlushPeriod},
		{"max-batch-age", fc.MaxBatchAge, &cfg.MaxBatchAge},
		{"retry-initial", fc.RetryInitial, &cfg.RetryInitial},
		{"retry-max", fc.RetryMax, &cfg.RetryMax},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setIntPtr("qos", fc.QoS, &cfg.QoS)
	s.setInt("max-batch-bytes", fc.MaxBatchBytes, &cfg.MaxBatchBytes)
	s.setInt("max-batch-messages", fc.MaxBatchMessages, &cfg.MaxBatchMessages)
	s.setInt("max-message-bytes", fc.MaxMessageBytes, &cfg.MaxMessageBytes)
	s.setInt("max-attempts", fc.MaxAttempts, &cfg.MaxAttempts)

	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
