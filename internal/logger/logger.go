// Package logger builds *slog.Logger instances from textual settings (flags,
// environment, config files).
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures a logger.
type Options struct {
	// Output is "stderr", "stdout", "discard" or a file path (appended to).
	// Default: stderr
	Output string

	// Level is one of DEBUG, INFO, WARN, ERROR (case-insensitive).
	// Default: INFO
	Level string

	// Format is "text" or "json".
	// Default: text
	Format string
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("logger: unknown level %q", s)
	}
	return lvl, nil
}

// New builds a logger from opts. The returned close function releases a log
// file opened for Output and is never nil.
func New(opts Options) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }

	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, noop, err
	}

	var (
		w       io.Writer
		closeFn = noop
	)
	switch opts.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	case "discard":
		return Discard(), noop, nil
	default:
		f, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, noop, fmt.Errorf("logger: open %s: %w", opts.Output, err)
		}
		w, closeFn = f, f.Close
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(opts.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), closeFn, nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), closeFn, nil
	default:
		_ = closeFn()
		return nil, noop, fmt.Errorf("logger: unknown format %q", opts.Format)
	}
}
