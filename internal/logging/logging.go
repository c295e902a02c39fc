// Package logging configures the process-wide slog logger for the
// notice-generator CLI: a per-run log file plus console output.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/term"
)

// DefaultFile is where a run's log is written when no path is configured.
const DefaultFile = "logs/notice_generation.log"

// Options controls Configure.
type Options struct {
	// File is truncated at the start of every run. Empty means DefaultFile.
	File string
	// Verbose lowers the console level to debug. The file always gets debug.
	Verbose bool
	// Console defaults to os.Stderr.
	Console io.Writer
}

// Setup holds the one-time logging configuration of a process. The zero
// value is ready to use; only the first Configure call has any effect.
type Setup struct {
	once   sync.Once
	file   *os.File
	logger *slog.Logger
	err    error
}

// Configure opens the log file and installs the logger as the slog default.
// Later calls return the logger built by the first one.
func (s *Setup) Configure(opts Options) (*slog.Logger, error) {
	s.once.Do(func() {
		s.logger, s.file, s.err = build(opts)
		if s.err == nil {
			slog.SetDefault(s.logger)
		}
	})
	return s.logger, s.err
}

// Close flushes and closes the log file.
func (s *Setup) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

func build(opts Options) (*slog.Logger, *os.File, error) {
	path := opts.File
	if path == "" {
		path = DefaultFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	consoleOpts := &slog.HandlerOptions{Level: level}
	var consoleHandler slog.Handler
	if isTerminal(console) {
		consoleHandler = slog.NewTextHandler(console, consoleOpts)
	} else {
		consoleHandler = slog.NewJSONHandler(console, consoleOpts)
	}
	fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(teeHandler{fileHandler, consoleHandler}), f, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// teeHandler sends each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
