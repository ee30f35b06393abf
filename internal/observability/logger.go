package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the service-wide structured logger. Pretty output is for
// local development; production gets JSON lines on stdout.
func NewLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}

// WithCall scopes a logger to one call identifier.
func WithCall(logger zerolog.Logger, callSID string) zerolog.Logger {
	return logger.With().Str("call_sid", callSID).Logger()
}
