// Package logging sets up the subsystem loggers and renders the session
// report printed when playback ends.
package logging

import (
	"io"

	"github.com/decred/slog"
)

// Subsystem tags.
const (
	Main     = "MAIN"
	Control  = "CTRL"
	Audio    = "AUDI"
	Renderer = "RNDR"
)

// Backend hands out subsystem loggers that share one writer and level.
type Backend struct {
	backend *slog.Backend
	level   slog.Level
}

// NewBackend writes to w at info level, or debug level when verbose is set.
// A nil writer discards everything.
func NewBackend(w io.Writer, verbose bool) *Backend {
	if w == nil {
		w = io.Discard
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &Backend{backend: slog.NewBackend(w), level: level}
}

// Logger returns the logger for a subsystem tag.
func (b *Backend) Logger(subsystem string) slog.Logger {
	l := b.backend.Logger(subsystem)
	l.SetLevel(b.level)
	return l
}

// SetLevel parses a level name ("trace", "debug", "info", "warn", "error",
// "critical", "off") and applies it to loggers created afterwards.
func (b *Backend) SetLevel(name string) bool {
	level, ok := slog.LevelFromString(name)
	if ok {
		b.level = level
	}
	return ok
}
