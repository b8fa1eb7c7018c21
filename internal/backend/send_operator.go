// ABOUTME: Send-message-as-operator call used when a human replies from the console.
// ABOUTME: The backend relays the text over the transport and logs it against the conversation.

package backend

import (
	"context"
	"net/url"
)

// SendOperatorMessage delivers a human reply into a conversation. The
// console does not insert the message optimistically; it re-fetches the
// authoritative snapshot after this call succeeds.
func (c *Client) SendOperatorMessage(ctx context.Context, chatID, text string) error {
	body := struct {
		Message string `json:"message"`
	}{Message: text}
	return c.postJSON(ctx, "/admin/chats/"+url.PathEscape(chatID)+"/send", body, nil)
}
