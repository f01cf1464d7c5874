// Package logging builds the application logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console zerolog logger at the given level. An unparseable
// level falls back to info.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}
