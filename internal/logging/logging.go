// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the process-wide diagnostic logger.
// Implements: docs/ARCHITECTURE § Observability.
//
// Diagnostics go to stderr so they never interleave with the progress
// lines the converter prints on stdout.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a console-formatted logger writing to w. Verbose lowers the
// level from Info to Debug.
func New(w io.Writer, verbose bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Init installs the global logger for the process and returns it.
func Init(verbose bool) zerolog.Logger {
	logger := New(os.Stderr, verbose)
	log.Logger = logger
	return logger
}
