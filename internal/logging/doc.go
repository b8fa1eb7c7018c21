// ABOUTME: Package documentation for the shared logging setup.

// Package logging configures slog for both binaries: a JSON handler for
// machine consumption or a colorized text handler for terminals.
package logging
