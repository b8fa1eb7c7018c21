// ABOUTME: Per-conversation bot-enabled flag: read and persist.
// ABOUTME: Callers treat a read failure as "enabled", the documented default for the unset flag.

package backend

import (
	"context"
	"net/url"
)

// GetBotEnabled fetches the bot-enabled flag for a conversation.
func (c *Client) GetBotEnabled(ctx context.Context, chatID string) (bool, error) {
	var resp struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.getJSON(ctx, "/admin/chats/"+url.PathEscape(chatID)+"/bot", nil, &resp); err != nil {
		return false, err
	}
	return resp.Enabled, nil
}

// SetBotEnabled persists the bot-enabled flag for a conversation. The
// backend broadcasts the resulting bot_status_change to all push
// subscribers, including the caller.
func (c *Client) SetBotEnabled(ctx context.Context, chatID string, enabled bool) error {
	body := struct {
		Enabled bool `json:"enabled"`
	}{Enabled: enabled}
	return c.postJSON(ctx, "/admin/chats/"+url.PathEscape(chatID)+"/bot", body, nil)
}
