package cliconfig

import (
	"os"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/batchship/internal/adapters/log"
)

// Logger returns a console logger on stderr. An unparsable level falls
// back to info.
func Logger(level string) zerolog.Logger {
	return logAdapter.ConsoleLogger(os.Stderr, parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
