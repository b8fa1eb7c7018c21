// ABOUTME: Console state machines: list reconciler, detail reconciler, and the hand-off controller.
// ABOUTME: All three are rendering-agnostic; the TUI drives them and draws whatever they hold.

// Package console holds the operator console's state machines.
//
// The list reconciler owns the ordered conversation slice, the detail
// reconciler owns the single open conversation, and the hand-off
// controller flips the per-conversation bot flag optimistically.
//
// Each reconciler splits I/O from state: Fetch* methods call the backend
// and return a result tagged with the identity it was issued for (the
// conversation id or the active filter), and Apply* methods mutate state,
// discarding results whose tag no longer matches the current selection.
// Callers run fetches on whatever goroutine suits them and funnel every
// Apply call through a single loop, so the reconcilers themselves need no
// locking and stale fetches are cancelled structurally rather than
// through a cancellation primitive.
package console
