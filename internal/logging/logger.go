package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vidinsight/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	Development bool
	// Writer receives terminal output. Nil means stderr; stdout is reserved
	// for rendered results.
	Writer io.Writer
	// File, when set, receives every record as JSON, appended to the file.
	File string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	addSource := opts.Development || level.Level() <= slog.LevelDebug

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	terminal, err := terminalHandler(opts.Format, w, level, addSource)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.File) == "" {
		return slog.New(terminal), nil
	}

	file, err := openLogFile(opts.File)
	if err != nil {
		return nil, err
	}
	archive, err := newJSONHandler(file, level, addSource)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return slog.New(newTeeHandler(terminal, archive)), nil
}

// NewFromConfig creates a logger from the [logging] section. Terminal output
// goes to w, or stderr when w is nil.
func NewFromConfig(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Writer: w})
	}
	return New(Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Writer: w,
	})
}

func terminalHandler(format string, w io.Writer, level *slog.LevelVar, addSource bool) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return newConsoleHandler(w, level, addSource), nil
	case "json":
		return newJSONHandler(w, level, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

// parseLevel maps a configured level name to slog; unknown names mean info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	path = strings.TrimSpace(path)
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
