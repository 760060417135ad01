package app

import (
	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

// Observer is notified of ingest results and flush cycle outcomes.
// Calls are synchronous; implementations must return quickly.
type Observer interface {
	OnSubmit(accepted bool)
	OnCycle(out domain.Outcome)
}

// Observers fans notifications out to each member in order.
type Observers []Observer

// OnSubmit notifies every observer.
func (os Observers) OnSubmit(accepted bool) {
	for _, o := range os {
		if o != nil {
			o.OnSubmit(accepted)
		}
	}
}

// OnCycle notifies every observer.
func (os Observers) OnCycle(out domain.Outcome) {
	for _, o := range os {
		if o != nil {
			o.OnCycle(out)
		}
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...ports.Field) {}
func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}
