// ABOUTME: Ask call forwarding one normalized inbound message to the reasoning backend.
// ABOUTME: A 200 without a usable response string is treated as a malformed reply, not a success.

package backend

import (
	"context"
	"fmt"
)

// AskRequest is the normalized inbound message forwarded by the relay.
type AskRequest struct {
	Sender     string `json:"sender"`
	Message    string `json:"message"`
	SenderName string `json:"senderName,omitempty"`
	RequestID  string `json:"requestId"`
	Timestamp  string `json:"timestamp"`
}

// AskResponse is the backend's reply. Response may be empty with
// BotDisabled set, meaning the message was logged for manual handling and
// no outbound reply should be sent by the bot.
type AskResponse struct {
	Response    string `json:"response"`
	Sender      string `json:"sender"`
	BotDisabled bool   `json:"bot_disabled,omitempty"`
}

// Ask forwards one inbound message and returns the generated reply. The
// context deadline bounds the call; callers pass the configured backend
// timeout. A well-formed reply carries a non-empty response string unless
// the bot is disabled for this sender.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	var resp AskResponse
	if err := c.postJSON(ctx, "/ask", req, &resp); err != nil {
		return nil, err
	}

	if resp.Response == "" && !resp.BotDisabled {
		return nil, fmt.Errorf("%w: empty response field", ErrMalformedReply)
	}

	c.logger.Debug("ask completed",
		"request_id", req.RequestID,
		"sender", req.Sender,
		"bot_disabled", resp.BotDisabled)
	return &resp, nil
}
