package log

import "github.com/bft-labs/batchship/internal/ports"

var _ ports.Logger = NoopLogger{}

// NoopLogger discards everything. It is the logger of an instance built
// without WithLogger.
type NoopLogger struct{}

func NewNoopLogger() NoopLogger { return NoopLogger{} }

func (NoopLogger) Debug(string, ...ports.Field) {}
func (NoopLogger) Info(string, ...ports.Field)  {}
func (NoopLogger) Warn(string, ...ports.Field)  {}
func (NoopLogger) Error(string, ...ports.Field) {}
