package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bft-labs/batchship/internal/domain"
)

func TestObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	pending := 4
	o, err := NewObserver(reg, func() int { return pending })
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}

	o.OnSubmit(true)
	o.OnSubmit(true)
	o.OnSubmit(false)
	o.OnCycle(domain.Outcome{Kind: domain.OutcomeIdle})
	o.OnCycle(domain.Outcome{Kind: domain.OutcomeDelivered, Bytes: 100, Messages: 3, Duration: time.Millisecond})
	o.OnCycle(domain.Outcome{Kind: domain.OutcomeDeferred, Bytes: 50, Messages: 2, Err: errors.New("down")})

	if got := testutil.ToFloat64(o.accepted); got != 2 {
		t.Errorf("accepted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(o.rejected); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(o.cycles.WithLabelValues("delivered")); got != 1 {
		t.Errorf("delivered cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(o.cycles.WithLabelValues("idle")); got != 1 {
		t.Errorf("idle cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(o.bytes); got != 100 {
		t.Errorf("delivered bytes = %v, want 100", got)
	}
	if got := testutil.ToFloat64(o.messages); got != 3 {
		t.Errorf("delivered messages = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(o.durations); n != 1 {
		t.Errorf("duration histogram count = %d, want 1", n)
	}

	expected := `
# HELP batchship_pending_batches Sealed batches awaiting delivery.
# TYPE batchship_pending_batches gauge
batchship_pending_batches 4
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "batchship_pending_batches"); err != nil {
		t.Error(err)
	}
}

func TestNewObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewObserver(reg, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := NewObserver(reg, nil); err == nil {
		t.Error("second registration succeeded")
	}
}
