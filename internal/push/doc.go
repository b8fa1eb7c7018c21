// Package push maintains the client side of the backend's live-update
// channel: a single websocket connection whose events are fanned out to a
// channel-keyed subscriber registry. Subscriptions are explicit tokens, so
// the same handler function can be registered and cancelled independently.
//
// Reconnection is automatic with capped exponential backoff. The bus never
// replays events missed during a gap; connection-status subscribers are
// expected to force a full poll resync when connectivity returns.
package push
