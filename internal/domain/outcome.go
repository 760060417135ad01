package domain

import "time"

// OutcomeKind classifies the result of a flush cycle.
type OutcomeKind int

const (
	// OutcomeIdle means the store had nothing ready.
	OutcomeIdle OutcomeKind = iota
	// OutcomeDelivered means the transport accepted the batch.
	OutcomeDelivered
	// OutcomeLogged means no transport was configured and the batch was
	// decompressed and logged.
	OutcomeLogged
	// OutcomeDeferred means the batch was handed back to the store.
	OutcomeDeferred
	// OutcomePollFailed means the store reported an error and the cycle was skipped.
	OutcomePollFailed
)

// String returns a human-readable representation of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeIdle:
		return "idle"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeLogged:
		return "logged"
	case OutcomeDeferred:
		return "deferred"
	case OutcomePollFailed:
		return "poll_failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one flush cycle.
type Outcome struct {
	Kind     OutcomeKind
	BatchID  string
	Bytes    int
	Messages int
	Duration time.Duration

	// Err is the recovered error for Deferred and PollFailed outcomes.
	Err error
}

// OutcomeFor returns an Outcome of the given kind describing batch.
func OutcomeFor(kind OutcomeKind, b *Batch) Outcome {
	o := Outcome{Kind: kind}
	if b != nil {
		o.BatchID = b.ID
		o.Bytes = len(b.Payload)
		o.Messages = b.Messages
	}
	return o
}

// Success returns true if the batch left the process or was consumed by the
// diagnostic path.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeDelivered || o.Kind == OutcomeLogged
}
