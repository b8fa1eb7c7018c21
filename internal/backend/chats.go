// ABOUTME: Poll endpoints for conversation snapshots: full list, filtered search, single chat.
// ABOUTME: Snapshots are authoritative for everything they include but may be stale versus later pushes.

package backend

import (
	"context"
	"net/url"
)

// ListChats fetches the full conversation list snapshot. A non-empty query
// asks the backend to filter server-side (sender, preview, and message
// content matching).
func (c *Client) ListChats(ctx context.Context, query string) ([]Chat, error) {
	path := "/admin/chats"
	var params url.Values
	if query != "" {
		path = "/admin/chats/search"
		params = url.Values{"q": []string{query}}
	}

	var chats []Chat
	if err := c.getJSON(ctx, path, params, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// GetChat fetches the authoritative snapshot of a single conversation.
func (c *Client) GetChat(ctx context.Context, id string) (*Chat, error) {
	var chat Chat
	if err := c.getJSON(ctx, "/admin/chats/"+url.PathEscape(id), nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}
