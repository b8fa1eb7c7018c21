// ABOUTME: Package documentation for the exchange journal.

// Package journal persists relay exchanges to SQLite: each admitted
// inbound message with the reply (or fallback) it received, keyed by the
// transport message id. The relay writes best-effort; the history
// subcommand reads.
package journal
