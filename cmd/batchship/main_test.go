package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/batchship/internal/cliconfig"
)

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	content := "topic = \"from/file\"\ncompression = \"gzip\"\nflush_period = \"5s\"\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("BATCHSHIP_COMPRESSION=zstd\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BATCHSHIP_FLUSH_PERIOD", "7s")
	// Registers cleanup for the value the env file loads.
	t.Setenv("BATCHSHIP_COMPRESSION", "")
	os.Unsetenv("BATCHSHIP_COMPRESSION")

	cfg := cliconfig.DefaultConfig()
	cfg.Topic = "from/flag"
	changed := map[string]bool{"topic": true}

	if err := loadConfig(&cfg, file, envFile, changed); err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Topic != "from/flag" {
		t.Errorf("Topic = %q, want flag value", cfg.Topic)
	}
	if cfg.Compression != "zstd" {
		t.Errorf("Compression = %q, want env file value", cfg.Compression)
	}
	if cfg.FlushPeriod != 7*time.Second {
		t.Errorf("FlushPeriod = %v, want env value", cfg.FlushPeriod)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	cfg := cliconfig.DefaultConfig()
	err := loadConfig(&cfg, filepath.Join(t.TempDir(), "nope.toml"), "", map[string]bool{})
	if err == nil {
		t.Error("loadConfig() error = nil for a missing --config file")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty.toml")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := cliconfig.DefaultConfig()
	cfg.Transport = "mqtt"
	if err := loadConfig(&cfg, empty, "", map[string]bool{}); err == nil {
		t.Error("loadConfig() error = nil for mqtt without a broker")
	}
}

func TestLibConfig(t *testing.T) {
	cfg := cliconfig.DefaultConfig()
	cfg.Transport = "http"
	cfg.ServiceURL = "https://ingest.example.com"
	cfg.MaxAttempts = 5
	cfg.SpoolDir = "/var/lib/batchship"

	lib := libConfig(cfg)
	if lib.Transport != "http" || lib.ServiceURL != cfg.ServiceURL {
		t.Errorf("transport = %q %q", lib.Transport, lib.ServiceURL)
	}
	if lib.MaxAttempts != 5 || lib.SpoolDir != cfg.SpoolDir {
		t.Errorf("lib = %+v", lib)
	}
	if lib.InitialDelay != time.Second || lib.FlushPeriod != 3*time.Second {
		t.Errorf("cadence = %v/%v", lib.InitialDelay, lib.FlushPeriod)
	}
}

func TestOptions(t *testing.T) {
	cfg := cliconfig.DefaultConfig()
	cfg.ListenAddr = ":0"
	cfg.InboxDir = t.TempDir()

	if got := len(options(cfg, zerolog.Nop())); got != 4 {
		t.Errorf("len(options) = %d, want 4", got)
	}

	cfg.Once = true
	if got := len(options(cfg, zerolog.Nop())); got != 2 {
		t.Errorf("len(options) in once mode = %d, want 2", got)
	}
}
