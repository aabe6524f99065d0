// Package logging assembles structured slog loggers and formatting helpers used
// across tvrecs.
//
// It owns the console and JSON handlers, writes a per-run log file next to the
// terminal output, prunes old log files, and exposes context-aware helpers so
// pipeline code can tag log lines with the run id, user context, and phase.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
