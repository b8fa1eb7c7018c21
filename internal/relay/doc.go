// Package relay implements the ingestion edge of the system: the inbound
// transport webhook, message admission through the dedup cache, forwarding
// to the reasoning backend, and delivery of exactly one reply (real or the
// canned fallback apology) per admitted message. It also hosts the status
// broadcaster that publishes transport connection state to the backend.
package relay
