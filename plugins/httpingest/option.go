package httpingest

import "github.com/bft-labs/batchship/pkg/batchship"

// WithHTTPIngest returns a batchship Option that serves the ingest API.
// Pair it with batchship.WithMetricsRegisterer to expose /metrics.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	b, err := batchship.New(cfg,
//	    batchship.WithMetricsRegisterer(reg),
//	    httpingest.WithHTTPIngest(httpingest.Config{ListenAddr: ":9090"}),
//	)
func WithHTTPIngest(cfg Config) batchship.Option {
	return batchship.WithPlugin(New(cfg))
}

// WithDefaultHTTPIngest serves the ingest API on :8080.
func WithDefaultHTTPIngest() batchship.Option {
	return WithHTTPIngest(DefaultConfig())
}
