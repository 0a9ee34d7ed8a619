// Package logging assembles structured slog loggers and formatting helpers used
// across cogify.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so batch code can tag log lines with
// the run identifier, raster path and workflow stage. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
