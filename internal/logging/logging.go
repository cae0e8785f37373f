// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a LOG_LEVEL value to a zerolog level. Unknown values are info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init replaces the global logger. Output is JSON on stdout unless pretty is
// set, in which case a human-readable console writer is used.
func Init(level string, pretty bool) {
	log.Logger = New(os.Stdout, level, pretty)
	if log.Logger.GetLevel() == zerolog.DebugLevel {
		log.Debug().Msg("Log level set to DEBUG")
	}
}

// New builds a logger writing to w.
func New(w io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}
