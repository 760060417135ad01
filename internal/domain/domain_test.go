package domain

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestBatch_Empty(t *testing.T) {
	var nilBatch *Batch
	tests := []struct {
		name  string
		batch *Batch
		want  bool
	}{
		{"nil", nilBatch, true},
		{"no payload", &Batch{ID: "a"}, true},
		{"payload", &Batch{ID: "a", Payload: []byte{1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.batch.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
	if nilBatch.Size() != 0 {
		t.Errorf("nil Size() = %d, want 0", nilBatch.Size())
	}
}

func TestDeliveryError_Unwrap(t *testing.T) {
	err := &DeliveryError{Stage: StagePublish, BatchID: "b1", Err: io.ErrClosedPipe}
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("errors.Is(%v, io.ErrClosedPipe) = false", err)
	}
	if got, want := err.Error(), "publish batch b1: io: read/write on closed pipe"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestOutcomeKind_String(t *testing.T) {
	tests := []struct {
		kind OutcomeKind
		want string
	}{
		{OutcomeIdle, "idle"},
		{OutcomeDelivered, "delivered"},
		{OutcomeLogged, "logged"},
		{OutcomeDeferred, "deferred"},
		{OutcomePollFailed, "poll_failed"},
		{OutcomeKind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("OutcomeKind(%d).String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestStatus_Record(t *testing.T) {
	now := time.Unix(1700000000, 0)
	var st Status

	if st.Record(Outcome{Kind: OutcomeIdle}, now) {
		t.Fatal("idle outcome changed status")
	}
	if !st.IsEmpty() {
		t.Fatal("status not empty after idle outcome")
	}

	st.Record(Outcome{Kind: OutcomeDelivered, BatchID: "b1"}, now)
	st.Record(Outcome{Kind: OutcomeDeferred, BatchID: "b2", Err: errors.New("broker down")}, now)

	if st.Delivered != 1 || st.Deferred != 1 {
		t.Errorf("counters = %d/%d, want 1/1", st.Delivered, st.Deferred)
	}
	if st.LastBatchID != "b2" || st.LastOutcome != "deferred" {
		t.Errorf("last = %s/%s, want b2/deferred", st.LastBatchID, st.LastOutcome)
	}
	if st.LastError != "broker down" {
		t.Errorf("LastError = %q, want broker down", st.LastError)
	}
	if !st.LastDeliveredAt.Equal(now) || !st.LastDeferredAt.Equal(now) {
		t.Error("timestamps not recorded")
	}
}
