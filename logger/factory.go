package logger

import (
	"io"
	"log/slog"
	"os"
)

// Options configure NewWithOptions.
type Options struct {
	// Writer receives the output. Defaults to os.Stdout.
	Writer io.Writer
	// Level is the minimum level. Defaults to slog.LevelInfo.
	Level slog.Leveler
	// Text selects the text handler instead of JSON.
	Text bool
}

// New creates a JSON-formatted logger writing to stdout with optional
// context extractors.
func New(extractors ...ContextExtractor) *slog.Logger {
	return NewWithOptions(Options{}, extractors...)
}

// NewWithOptions creates a logger from opts with optional context
// extractors.
func NewWithOptions(opts Options, extractors ...ContextExtractor) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if opts.Text {
		h = slog.NewTextHandler(w, handlerOpts)
	} else {
		h = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(WithExtractors(h, extractors...))
}
