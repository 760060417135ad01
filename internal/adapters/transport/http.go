package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

const batchesEndpoint = "/v1/ingest/batches"

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 4 << 10

// HTTPConfig configures the ingest service endpoint.
type HTTPConfig struct {
	ServiceURL string
	AuthKey    string
	Hostname   string

	// ContentEncoding is sent with each payload; it names the codec.
	ContentEncoding string
}

// HTTP posts each batch to the ingest service.
type HTTP struct {
	cfg    HTTPConfig
	client ports.HTTPClient
	logger ports.Logger
}

// NewHTTP creates an HTTP transport. A nil client uses one with a 30s
// timeout.
func NewHTTP(cfg HTTPConfig, client ports.HTTPClient, logger ports.Logger) (*HTTP, error) {
	if cfg.ServiceURL == "" {
		return nil, fmt.Errorf("%w: service url is required", domain.ErrInvalidConfig)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{cfg: cfg, client: client, logger: logger}, nil
}

// Publish posts payload. Any non-2xx response is an error.
func (t *HTTP) Publish(ctx context.Context, topic string, payload []byte) error {
	url := t.cfg.ServiceURL + batchesEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if t.cfg.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.AuthKey)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if t.cfg.ContentEncoding != "" {
		req.Header.Set("Content-Encoding", t.cfg.ContentEncoding)
	}
	req.Header.Set("X-Batch-Topic", topic)
	req.Header.Set("X-Agent-Hostname", t.cfg.Hostname)
	req.Header.Set("X-Agent-OSArch", runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
