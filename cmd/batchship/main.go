package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/batchship/internal/cliconfig"
	"github.com/bft-labs/batchship/pkg/batchship"
	"github.com/bft-labs/batchship/plugins/dirwatch"
	"github.com/bft-labs/batchship/plugins/httpingest"
)

const helpDescription = `
Accumulate messages into compressed batches and ship them on a fixed schedule.

Highlights:
  - One batch per cycle: first cycle after 1s, then every 3s.
  - Publishes to an MQTT broker or an HTTP ingest service; without a
    transport, batches are decompressed and logged for inspection.
  - Failed batches go back to a durable spool and are retried with backoff.
  - Feed it over HTTP (--listen-addr) or by dropping files into --inbox-dir.
`

var longHelp = "batchship\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  batchship --transport mqtt --broker-url tcp://localhost:1883 --listen-addr :8080
  batchship --transport http --service-url https://ingest.example.com --auth-key <key> --inbox-dir /var/spool/batchship/inbox
  batchship --config $HOME/.batchship/config.toml --spool-dir /var/lib/batchship --once
`)

// shutdownTimeout bounds Stop after a signal.
const shutdownTimeout = 30 * time.Second

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath, envFile string

	log := cliconfig.Logger(cfg.LogLevel)

	root := &cobra.Command{
		Use:     "batchship",
		Short:   "Accumulate messages into compressed batches and ship them on a fixed schedule",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := loadConfig(&cfg, cfgPath, envFile, changed); err != nil {
				return err
			}
			log = cliconfig.Logger(cfg.LogLevel)

			// Log configuration (masking secrets)
			logCfg := cfg
			if logCfg.AuthKey != "" {
				logCfg.AuthKey = "*****"
			}
			if logCfg.Password != "" {
				logCfg.Password = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			return run(cfg, log)
		},
	}

	// Flags
	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.batchship/config.toml)")
	f.StringVar(&envFile, "env-file", "", "dotenv file with BATCHSHIP_* variables")

	f.StringVar(&cfg.Topic, "topic", cfg.Topic, "destination topic for every batch")
	f.StringVar(&cfg.Transport, "transport", cfg.Transport, "publisher: mqtt, http, or empty to log batches")
	f.StringVar(&cfg.BrokerURL, "broker-url", cfg.BrokerURL, "MQTT broker URL (tcp://host:1883)")
	f.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "MQTT client ID (default: random)")
	f.StringVar(&cfg.Username, "username", cfg.Username, "MQTT username")
	f.StringVar(&cfg.Password, "password", cfg.Password, "MQTT password")
	f.IntVar(&cfg.QoS, "qos", cfg.QoS, "MQTT QoS (0, 1 or 2)")
	f.StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "HTTP ingest service base URL")
	f.StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "API key for the HTTP ingest service")

	f.DurationVar(&cfg.PublishTimeout, "publish-timeout", cfg.PublishTimeout, "timeout for a single publish")
	f.DurationVar(&cfg.InitialDelay, "initial-delay", cfg.InitialDelay, "delay before the first flush cycle")
	f.DurationVar(&cfg.FlushPeriod, "flush-period", cfg.FlushPeriod, "interval between flush cycles")

	f.StringVar(&cfg.Compression, "compression", cfg.Compression, "batch codec: zlib, gzip or zstd")
	f.IntVar(&cfg.MaxBatchBytes, "max-batch-bytes", cfg.MaxBatchBytes, "seal a batch at this many uncompressed bytes")
	f.IntVar(&cfg.MaxBatchMessages, "max-batch-messages", cfg.MaxBatchMessages, "seal a batch at this many messages")
	f.DurationVar(&cfg.MaxBatchAge, "max-batch-age", cfg.MaxBatchAge, "seal a batch this long after its first message")
	f.IntVar(&cfg.MaxMessageBytes, "max-message-bytes", cfg.MaxMessageBytes, "reject longer messages")
	f.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "drop a batch after this many failed deliveries (0: never)")
	f.DurationVar(&cfg.RetryInitial, "retry-initial", cfg.RetryInitial, "first retry delay for a failed batch")
	f.DurationVar(&cfg.RetryMax, "retry-max", cfg.RetryMax, "maximum retry delay for a failed batch")

	f.StringVar(&cfg.SpoolDir, "spool-dir", cfg.SpoolDir, "durable spool directory (default: in memory)")
	f.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for status.json (default: disabled)")
	f.StringVar(&cfg.InboxDir, "inbox-dir", cfg.InboxDir, "ingest files dropped into this directory")
	f.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "serve the ingest API and /metrics on this address")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.BoolVar(&cfg.Once, "once", cfg.Once, "deliver what is ready and exit")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("batchship")
		os.Exit(1)
	}
}

// loadConfig layers env file, config file and environment under the flags
// recorded in changed, then validates.
func loadConfig(cfg *cliconfig.Config, cfgPath, envFile string, changed map[string]bool) error {
	if envFile != "" {
		if err := cliconfig.LoadEnvFile(envFile); err != nil {
			return err
		}
	}

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgPath != "" && !cliconfig.FileExists(cfgPath) {
		return fmt.Errorf("config file %s not found", cfgPath)
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	// Environment overrides the file; flags override both.
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	return cfg.Validate()
}

func libConfig(cfg cliconfig.Config) batchship.Config {
	return batchship.Config{
		Topic:            cfg.Topic,
		Transport:        cfg.Transport,
		BrokerURL:        cfg.BrokerURL,
		ClientID:         cfg.ClientID,
		Username:         cfg.Username,
		Password:         cfg.Password,
		QoS:              cfg.QoS,
		ServiceURL:       cfg.ServiceURL,
		AuthKey:          cfg.AuthKey,
		PublishTimeout:   cfg.PublishTimeout,
		InitialDelay:     cfg.InitialDelay,
		FlushPeriod:      cfg.FlushPeriod,
		Compression:      cfg.Compression,
		MaxBatchBytes:    cfg.MaxBatchBytes,
		MaxBatchMessages: cfg.MaxBatchMessages,
		MaxBatchAge:      cfg.MaxBatchAge,
		MaxMessageBytes:  cfg.MaxMessageBytes,
		MaxAttempts:      cfg.MaxAttempts,
		RetryInitial:     cfg.RetryInitial,
		RetryMax:         cfg.RetryMax,
		SpoolDir:         cfg.SpoolDir,
		StateDir:         cfg.StateDir,
	}
}

// options wires logging, metrics and the ingest plugins. Plugins are left
// out in once mode.
func options(cfg cliconfig.Config, log zerolog.Logger) []batchship.Option {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []batchship.Option{
		batchship.WithLogger(batchship.NewZerologLogger(log)),
		batchship.WithMetricsRegisterer(reg),
	}
	if cfg.Once {
		return opts
	}
	if cfg.ListenAddr != "" {
		opts = append(opts, httpingest.WithHTTPIngest(httpingest.Config{ListenAddr: cfg.ListenAddr}))
	}
	if cfg.InboxDir != "" {
		opts = append(opts, dirwatch.WithDirWatch(dirwatch.Config{Dir: cfg.InboxDir}))
	}
	return opts
}

func run(cfg cliconfig.Config, log zerolog.Logger) error {
	b, err := batchship.New(libConfig(cfg), options(cfg, log)...)
	if err != nil {
		return fmt.Errorf("create batchship: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := b.Start(ctx); err != nil {
		_ = b.Stop(context.Background())
		return fmt.Errorf("start batchship: %w", err)
	}

	if cfg.Once {
		drainCtx, stopDrain := context.WithCancel(ctx)
		go func() {
			select {
			case <-sigCh:
				stopDrain()
			case <-drainCtx.Done():
			}
		}()
		outs := b.Drain(drainCtx)
		stopDrain()
		log.Info().Int("batches", len(outs)).Int("pending", b.Pending()).Msg("drain complete")
	} else {
		<-sigCh
		log.Info().Msg("received signal, stopping...")
	}

	// Graceful shutdown
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := b.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop batchship: %w", err)
	}
	return nil
}
