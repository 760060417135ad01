// Package metrics exports ingest and flush cycle statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/batchship/internal/domain"
)

// Observer implements app.Observer by updating Prometheus collectors.
type Observer struct {
	accepted  prometheus.Counter
	rejected  prometheus.Counter
	cycles    *prometheus.CounterVec
	bytes     prometheus.Counter
	messages  prometheus.Counter
	durations prometheus.Histogram
}

// NewObserver creates the collectors and registers them with reg. pending,
// if non-nil, backs a gauge of sealed batches awaiting delivery.
func NewObserver(reg prometheus.Registerer, pending func() int) (*Observer, error) {
	o := &Observer{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchship_messages_accepted_total",
			Help: "Messages accepted into a batch.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchship_messages_rejected_total",
			Help: "Messages rejected at submission.",
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchship_flush_cycles_total",
			Help: "Flush cycles by outcome.",
		}, []string{"outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchship_delivered_bytes_total",
			Help: "Compressed bytes published or logged.",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchship_delivered_messages_total",
			Help: "Messages in batches published or logged.",
		}),
		durations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batchship_flush_cycle_duration_seconds",
			Help:    "Duration of flush cycles that handled a batch.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}

	collectors := []prometheus.Collector{
		o.accepted, o.rejected, o.cycles, o.bytes, o.messages, o.durations,
	}
	if pending != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "batchship_pending_batches",
			Help: "Sealed batches awaiting delivery.",
		}, func() float64 { return float64(pending()) }))
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) OnSubmit(accepted bool) {
	if accepted {
		o.accepted.Inc()
	} else {
		o.rejected.Inc()
	}
}

func (o *Observer) OnCycle(out domain.Outcome) {
	o.cycles.WithLabelValues(out.Kind.String()).Inc()
	if out.Kind == domain.OutcomeIdle {
		return
	}
	o.durations.Observe(out.Duration.Seconds())
	if out.Success() {
		o.bytes.Add(float64(out.Bytes))
		o.messages.Add(float64(out.Messages))
	}
}
