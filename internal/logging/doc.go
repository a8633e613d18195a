// Package logging assembles structured slog loggers and formatting helpers used
// across vidinsight.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can automatically
// tag log lines with the run's correlation ID, stage, and video URL. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Log output goes to stderr by default because stdout carries the analysis
// report. When [logging] file is configured, a tee handler also appends every
// record to that file as JSON.
package logging
