// Package logger builds the application's zerolog logger.
package logger

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger configured for the given environment.
//
// dev: human-readable console output at debug level.
// staging: JSON at debug level.
// prod: JSON at info level.
func New(env string, w io.Writer) zerolog.Logger {
	switch env {
	case "prod":
		return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	case "staging":
		return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	default:
		console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(console).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}
}
