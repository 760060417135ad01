package batchship

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/batchship/internal/accumulator"
	"github.com/bft-labs/batchship/internal/adapters/codec"
	"github.com/bft-labs/batchship/internal/adapters/fs"
	"github.com/bft-labs/batchship/internal/adapters/metrics"
	"github.com/bft-labs/batchship/internal/adapters/spool"
	"github.com/bft-labs/batchship/internal/adapters/transport"
	"github.com/bft-labs/batchship/internal/app"
	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

// Batchship accumulates messages into compressed batches and delivers them
// on a fixed schedule. Use New to create an instance, Submit to feed it and
// Start to begin flushing. An instance is single-use: once stopped it
// cannot be started again.
type Batchship struct {
	config     Config
	opts       options
	lifecycle  *app.Lifecycle
	store      *accumulator.Store
	codec      ports.Codec
	transport  ports.Transport
	controller *app.DeliveryController
	scheduler  *app.FlushScheduler
	ingest     *app.IngestPort
	status     *fs.StatusObserver
	gatherer   prometheus.Gatherer
	logger     ports.Logger

	plugins []Plugin

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// New creates a Batchship instance with the given configuration.
// The instance is created in StateStopped and already accepts messages;
// call Start to begin flushing. Returns an error wrapping
// domain.ErrInvalidConfig if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Batchship, error) {
	// Set defaults
	cfg.SetDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply options
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	// Create event emitter wrapper
	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	lifecycle := app.NewLifecycle(logger, emitter)

	c, err := codec.New(cfg.Compression)
	if err != nil {
		return nil, err
	}

	sp, err := openSpool(cfg.SpoolDir)
	if err != nil {
		closeQuietly(c)
		return nil, err
	}

	store, err := accumulator.New(cfg.accumulatorConfig(), c, sp, accumulator.WithLogger(logger))
	if err != nil {
		_ = sp.Close()
		closeQuietly(c)
		return nil, err
	}

	// From here on the store owns the spool.
	w := &Batchship{
		config:    cfg,
		opts:      o,
		lifecycle: lifecycle,
		store:     store,
		codec:     c,
		logger:    logger,
		plugins:   o.plugins,
	}
	if err := w.wire(emitter); err != nil {
		_ = store.Close()
		closeQuietly(c)
		return nil, err
	}
	return w, nil
}

// wire builds the transport, controller, observers and scheduler.
func (w *Batchship) wire(emitter *eventEmitterWrapper) error {
	cfg := w.config

	t, err := w.newTransport()
	if err != nil {
		return err
	}
	w.transport = t

	controller, err := app.NewDeliveryController(
		app.ControllerConfig{Topic: cfg.Topic, PublishTimeout: cfg.PublishTimeout},
		t, w.codec, w.store, w.logger,
	)
	if err != nil {
		return err
	}
	w.controller = controller

	observers := app.Observers{emitter}

	if w.opts.registerer != nil {
		m, err := metrics.NewObserver(w.opts.registerer, w.store.Pending)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		observers = append(observers, m)
		if g, ok := w.opts.registerer.(prometheus.Gatherer); ok {
			w.gatherer = g
		}
	}

	if cfg.StateDir != "" {
		repo := fs.NewStatusFileRepository(cfg.StateDir)
		w.status = fs.NewStatusObserver(context.Background(), repo, w.logger)
		observers = append(observers, w.status)
	}

	scheduler, err := app.NewFlushScheduler(
		app.SchedulerConfig{InitialDelay: cfg.InitialDelay, Period: cfg.FlushPeriod},
		w.store, controller, w.logger, observers,
	)
	if err != nil {
		return err
	}
	w.scheduler = scheduler
	w.ingest = app.NewIngestPort(w.store, w.logger, observers)
	return nil
}

func (w *Batchship) newTransport() (ports.Transport, error) {
	if w.opts.transport != nil {
		return w.opts.transport, nil
	}

	cfg := w.config
	switch cfg.Transport {
	case TransportMQTT:
		t, err := transport.NewMQTT(transport.MQTTConfig{
			BrokerURL: cfg.BrokerURL,
			ClientID:  cfg.ClientID,
			Username:  cfg.Username,
			Password:  cfg.Password,
			QoS:       byte(cfg.QoS),
		}, w.logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case TransportHTTP:
		t, err := transport.NewHTTP(transport.HTTPConfig{
			ServiceURL:      cfg.ServiceURL,
			AuthKey:         cfg.AuthKey,
			Hostname:        cfg.Hostname,
			ContentEncoding: w.codec.ContentEncoding(),
		}, w.opts.httpClient, w.logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, nil
	}
}

func openSpool(dir string) (ports.Spool, error) {
	if dir == "" {
		return spool.NewMemory(), nil
	}
	return spool.OpenPebble(dir)
}

// Start connects the transport, initializes plugins and begins flushing.
// Returns immediately after the flush worker is started. The provided
// context bounds the lifetime of the worker and the plugins.
func (w *Batchship) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("batchship: instance already stopped: %w", domain.ErrStoreClosed)
	}
	if !w.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}

	// Transition to starting
	if err := w.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	if conn, ok := w.transport.(ports.Connector); ok {
		if err := conn.Connect(runCtx); err != nil {
			cancel()
			_ = w.lifecycle.TransitionTo(app.StateCrashed, "transport connect failed")
			return fmt.Errorf("connect transport: %w", err)
		}
	}

	// Initialize plugins
	pluginCfg := PluginConfig{
		Ingest:   w,
		Status:   w.DeliveryStatus,
		Pending:  w.store.Pending,
		Gatherer: w.gatherer,
		Topic:    w.config.Topic,
		Logger:   w.logger,
	}
	for i, p := range w.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			w.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			w.shutdownPlugins(context.Background(), w.plugins[:i])
			w.closeTransport()
			cancel()
			_ = w.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		w.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if err := w.scheduler.Start(runCtx); err != nil {
		w.shutdownPlugins(context.Background(), w.plugins)
		w.closeTransport()
		cancel()
		_ = w.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}

	w.cancel = cancel
	return w.lifecycle.TransitionTo(app.StateRunning, "flush scheduler started")
}

// Stop shuts down plugins, waits for an in-flight flush cycle, closes the
// store (sealing buffered messages into the spool) and closes the
// transport. ctx bounds the wait; on expiry ErrShutdownTimeout is returned
// and the instance is left in StateCrashed. Stopping an instance that is
// not running only closes the store. A second call returns ErrNotRunning.
func (w *Batchship) Stop(ctx context.Context) error {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()
		return domain.ErrNotRunning
	}
	w.closed = true

	// Never started, or Start failed: release the store and codec only.
	if !w.lifecycle.CanStop() {
		w.mu.Unlock()
		err := w.scheduler.Stop(ctx)
		closeQuietly(w.codec)
		return err
	}

	// Transition to stopping
	if err := w.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		w.mu.Unlock()
		return err
	}
	cancel := w.cancel
	w.mu.Unlock()

	// Producers first, so nothing is submitted to a closed store.
	w.shutdownPlugins(ctx, w.plugins)

	err := w.scheduler.Stop(ctx)
	if cancel != nil {
		cancel()
	}

	w.closeTransport()
	closeQuietly(w.codec)

	// Transition to stopped
	if err != nil {
		_ = w.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}
	return w.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
}

func (w *Batchship) closeTransport() {
	if conn, ok := w.transport.(ports.Connector); ok {
		if err := conn.Close(); err != nil {
			w.logger.Warn("transport close failed", ports.Err(err))
		}
	}
}

// shutdownPlugins shuts plugins down in reverse order.
func (w *Batchship) shutdownPlugins(ctx context.Context, plugins []Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			w.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			w.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// Submit offers msg for batching. It returns false if the message was
// rejected (nil, empty, too large, or the instance is stopped). Rejected
// messages are never retried. Safe for concurrent use.
func (w *Batchship) Submit(msg Message) bool {
	return w.ingest.Submit(msg)
}

// Flush runs one flush cycle now. After Stop it reports an idle outcome.
func (w *Batchship) Flush(ctx context.Context) Outcome {
	return w.scheduler.Flush(ctx)
}

// Drain seals the open batch and runs flush cycles until nothing is ready,
// a delivery is deferred, or ctx is done. It returns the outcome of each
// non-idle cycle.
func (w *Batchship) Drain(ctx context.Context) []Outcome {
	if err := w.store.Seal(); err != nil && !errors.Is(err, domain.ErrStoreClosed) {
		w.logger.Error("failed to seal open batch", ports.Err(err))
	}
	return w.scheduler.Drain(ctx)
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (w *Batchship) Status() State {
	return convertState(w.lifecycle.State())
}

// DeliveryStatus returns the persisted delivery summary. It is the zero
// value when Config.StateDir is empty.
func (w *Batchship) DeliveryStatus() DeliveryStatus {
	if w.status == nil {
		return DeliveryStatus{}
	}
	return w.status.Status()
}

// Pending returns the number of sealed batches awaiting delivery.
func (w *Batchship) Pending() int {
	return w.store.Pending()
}

// Diagnostic returns true when no transport is configured.
func (w *Batchship) Diagnostic() bool {
	return w.controller.Diagnostic()
}

func closeQuietly(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}

// eventEmitterWrapper adapts EventHandler to the internal lifecycle and
// observer interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnSubmit(bool) {}

func (e *eventEmitterWrapper) OnCycle(out domain.Outcome) {
	if e.handler == nil {
		return
	}
	switch out.Kind {
	case domain.OutcomeDelivered, domain.OutcomeLogged:
		e.handler.OnSendSuccess(SendSuccessEvent{
			BatchID:    out.BatchID,
			Messages:   out.Messages,
			Bytes:      out.Bytes,
			Duration:   out.Duration,
			Diagnostic: out.Kind == domain.OutcomeLogged,
		})
	case domain.OutcomeDeferred:
		err := out.Err
		if err == nil {
			err = errors.New("delivery deferred")
		}
		e.handler.OnSendError(SendErrorEvent{
			Error:    err,
			BatchID:  out.BatchID,
			Messages: out.Messages,
		})
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
