package batchship

import "time"

// State represents the lifecycle state of a Batchship instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// EventHandler receives notifications about lifecycle changes and batch
// delivery. Methods are called synchronously from the flush worker and must
// return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSendSuccess(event SendSuccessEvent)
	OnSendError(event SendErrorEvent)
}

// BaseEventHandler implements EventHandler with no-op methods. Embed it to
// handle only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent) {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent describes a batch that left the process. Diagnostic is
// true when no transport is configured and the batch was only logged.
type SendSuccessEvent struct {
	BatchID    string
	Messages   int
	Bytes      int
	Duration   time.Duration
	Diagnostic bool
}

// SendErrorEvent describes a batch that was handed back for a later retry.
type SendErrorEvent struct {
	Error    error
	BatchID  string
	Messages int
}
