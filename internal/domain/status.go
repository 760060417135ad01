package domain

import "time"

// Status is the operator-facing delivery summary persisted between runs.
type Status struct {
	// LastBatchID is the last batch that reached a terminal outcome.
	LastBatchID string `json:"last_batch_id"`

	// LastOutcome is the kind of that outcome.
	LastOutcome string `json:"last_outcome"`

	// LastError is the recovered error of the last deferred batch, if any.
	LastError string `json:"last_error,omitempty"`

	// Delivered counts batches accepted by the transport.
	Delivered uint64 `json:"delivered"`

	// Logged counts batches consumed by the diagnostic path.
	Logged uint64 `json:"logged"`

	// Deferred counts batches handed back to the store.
	Deferred uint64 `json:"deferred"`

	// LastDeliveredAt is the timestamp of the last successful delivery.
	LastDeliveredAt time.Time `json:"last_delivered_at"`

	// LastDeferredAt is the timestamp of the last hand-back.
	LastDeferredAt time.Time `json:"last_deferred_at"`
}

// IsEmpty returns true if the status has never been recorded.
func (s Status) IsEmpty() bool {
	return s.LastBatchID == ""
}

// Record folds a cycle outcome into the status. Idle and poll failures do
// not change it.
func (s *Status) Record(o Outcome, at time.Time) bool {
	switch o.Kind {
	case OutcomeDelivered:
		s.Delivered++
		s.LastDeliveredAt = at
	case OutcomeLogged:
		s.Logged++
		s.LastDeliveredAt = at
	case OutcomeDeferred:
		s.Deferred++
		s.LastDeferredAt = at
		if o.Err != nil {
			s.LastError = o.Err.Error()
		}
	default:
		return false
	}
	s.LastBatchID = o.BatchID
	s.LastOutcome = o.Kind.String()
	return true
}
