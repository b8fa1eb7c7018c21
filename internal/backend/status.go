// ABOUTME: Best-effort status ingress call used by the relay's status broadcaster.
// ABOUTME: No response contract beyond success or failure; the caller only logs errors.

package backend

import "context"

// PostStatus publishes a transport connection-state snapshot to the backend
// status ingress. Fire-and-forget from the broadcaster's perspective: the
// caller logs a failure and moves on without retrying or queueing.
func (c *Client) PostStatus(ctx context.Context, update StatusUpdate) error {
	return c.postJSON(ctx, "/admin/status", update, nil)
}
