// Package httpingest exposes a batchship instance over HTTP. Producers POST
// newline-delimited messages; operators get a health endpoint and, when a
// metrics registry is configured, a Prometheus scrape endpoint.
package httpingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/batchship/internal/ports"
	"github.com/bft-labs/batchship/pkg/batchship"
)

const messagesEndpoint = "/v1/messages"

// Config holds configuration options for the HTTP ingest plugin.
type Config struct {
	// ListenAddr is the TCP address to serve on.
	// Default: ":8080"
	ListenAddr string

	// MaxBodyBytes caps a request body.
	// Default: 1 MiB
	MaxBodyBytes int64

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 5 seconds
	ReadHeaderTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        ":8080",
		MaxBodyBytes:      1 << 20,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Plugin serves the ingest API for the lifetime of a batchship instance.
type Plugin struct {
	cfg Config

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	logger   batchship.Logger
	done     chan struct{}
}

// New creates a new HTTP ingest plugin with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = def.ReadHeaderTimeout
	}
	return &Plugin{cfg: cfg}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "httpingest"
}

// Initialize binds the listen address and starts serving. A bind failure
// aborts Start.
func (p *Plugin) Initialize(ctx context.Context, cfg batchship.PluginConfig) error {
	ln, err := net.Listen("tcp", p.cfg.ListenAddr)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger = cfg.Logger
	p.listener = ln
	p.server = &http.Server{
		Handler:           newRouter(cfg, p.cfg.MaxBodyBytes),
		ReadHeaderTimeout: p.cfg.ReadHeaderTimeout,
	}
	p.done = make(chan struct{})

	go p.serve(p.server, ln, p.done)

	p.logger.Info("http ingest listening", ports.String("addr", ln.Addr().String()))
	return nil
}

func (p *Plugin) serve(srv *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		p.logger.Error("http ingest server exited", ports.Err(err))
	}
}

// Addr returns the bound address, or "" before Initialize.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded
// by ctx.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	srv, done := p.server, p.done
	p.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	<-done
	return nil
}

// newRouter builds the ingest routes.
func newRouter(cfg batchship.PluginConfig, maxBody int64) http.Handler {
	h := &handler{ingest: cfg.Ingest, status: cfg.Status, pending: cfg.Pending, maxBody: maxBody}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post(messagesEndpoint, h.postMessages)
	r.Get("/healthz", h.healthz)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type handler struct {
	ingest  batchship.Submitter
	status  func() batchship.DeliveryStatus
	pending func() int
	maxBody int64
}

type submitResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// postMessages submits each non-empty line of the body as one message.
// The body is read in full first so an oversized request submits nothing.
// 202 when all were accepted, 503 when any was rejected, 400 when the body
// holds no message, 413 when it exceeds the limit.
func (h *handler) postMessages(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var resp submitResponse
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if h.ingest.Submit(batchship.Text(line)) {
			resp.Accepted++
		} else {
			resp.Rejected++
		}
	}

	switch {
	case resp.Accepted+resp.Rejected == 0:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no messages"})
	case resp.Rejected > 0:
		writeJSON(w, http.StatusServiceUnavailable, resp)
	default:
		writeJSON(w, http.StatusAccepted, resp)
	}
}

type healthResponse struct {
	Status   string                   `json:"status"`
	Pending  int                      `json:"pending"`
	Delivery batchship.DeliveryStatus `json:"delivery"`
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.pending != nil {
		resp.Pending = h.pending()
	}
	if h.status != nil {
		resp.Delivery = h.status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
