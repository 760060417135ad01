package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		changed map[string]bool
		initial Config
		check   func(t *testing.T, c Config)
		wantErr bool
	}{
		{
			name: "applies env vars",
			envVars: map[string]string{
				"BATCHSHIP_TOPIC":              "env/topic",
				"BATCHSHIP_TRANSPORT":          "mqtt",
				"BATCHSHIP_BROKER_URL":         "tcp://env:1883",
				"BATCHSHIP_FLUSH_PERIOD":       "10s",
				"BATCHSHIP_QOS":                "0",
				"BATCHSHIP_MAX_BATCH_MESSAGES": "25",
				"BATCHSHIP_ONCE":               "1",
			},
			changed: map[string]bool{},
			initial: DefaultConfig(),
			check: func(t *testing.T, c Config) {
				if c.Topic != "env/topic" || c.Transport != "mqtt" || c.BrokerURL != "tcp://env:1883" {
					t.Errorf("strings = %q %q %q", c.Topic, c.Transport, c.BrokerURL)
				}
				if c.FlushPeriod != 10*time.Second {
					t.Errorf("FlushPeriod = %v", c.FlushPeriod)
				}
				if c.QoS != 0 {
					t.Errorf("QoS = %d, want 0", c.QoS)
				}
				if c.MaxBatchMessages != 25 {
					t.Errorf("MaxBatchMessages = %d", c.MaxBatchMessages)
				}
				if !c.Once {
					t.Error("Once = false")
				}
			},
		},
		{
			name:    "respects changed flags",
			envVars: map[string]string{"BATCHSHIP_TOPIC": "env/topic"},
			changed: map[string]bool{"topic": true},
			initial: Config{Topic: "flag/topic"},
			check: func(t *testing.T, c Config) {
				if c.Topic != "flag/topic" {
					t.Errorf("Topic = %v, want flag/topic", c.Topic)
				}
			},
		},
		{
			name:    "handles bool false",
			envVars: map[string]string{"BATCHSHIP_ONCE": "false"},
			changed: map[string]bool{},
			initial: Config{Once: true},
			check: func(t *testing.T, c Config) {
				if c.Once {
					t.Error("Once = true, want false")
				}
			},
		},
		{
			name:    "invalid duration",
			envVars: map[string]string{"BATCHSHIP_INITIAL_DELAY": "later"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid int",
			envVars: map[string]string{"BATCHSHIP_MAX_BATCH_BYTES": "lots"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "negative int",
			envVars: map[string]string{"BATCHSHIP_MAX_ATTEMPTS": "-1"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "BATCHSHIP_TOPIC=dotenv/topic\nBATCHSHIP_COMPRESSION=zstd\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Already set variables win over the file.
	t.Setenv("BATCHSHIP_COMPRESSION", "gzip")
	t.Setenv("BATCHSHIP_TOPIC", "")
	os.Unsetenv("BATCHSHIP_TOPIC")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("BATCHSHIP_TOPIC") })

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err != nil {
		t.Fatal(err)
	}
	if cfg.Topic != "dotenv/topic" {
		t.Errorf("Topic = %v, want dotenv/topic", cfg.Topic)
	}
	if cfg.Compression != "gzip" {
		t.Errorf("Compression = %v, want gzip", cfg.Compression)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Error("LoadEnvFile() = nil for missing file")
	}
}
