// Package main hosts the cogify CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds the slog logger,
// and hands the work to internal packages: batch runs, validation reports,
// source watching, run history, and environment checks. Commands stay thin;
// new behavior belongs in internal/ first.
package main
