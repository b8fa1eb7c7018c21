// ABOUTME: Terminal front end for the operator console, built on bubbletea.

// Package tui renders the conversation list and the open conversation in a
// two-pane terminal layout. It owns no synchronization logic of its own:
// push events and poll results arrive as bubbletea messages and are handed
// to the reconcilers in internal/console, whose state View draws.
package tui
