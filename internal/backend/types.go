// ABOUTME: Wire model shared between the backend REST API, the push channel, and the console.
// ABOUTME: Chat and Message mirror the backend's JSON shapes, with explicit optional fields.

package backend

import (
	"fmt"
	"time"
)

// Chat is one end-user conversation as the backend serializes it. The same
// shape arrives from poll snapshots (full) and push events (possibly
// partial: an empty Messages list on a push means "unchanged", not "empty").
type Chat struct {
	ID            string    `json:"id"`
	Sender        string    `json:"sender"`
	SenderName    string    `json:"senderName,omitempty"`
	LastMessage   string    `json:"lastMessage"`
	LastTimestamp string    `json:"lastTimestamp"`
	Messages      []Message `json:"messages,omitempty"`

	// BotEnabled is tri-state: nil means unset, which defaults to enabled.
	BotEnabled *bool `json:"botEnabled,omitempty"`

	// UnansweredCount is nil when absent (meaning zero). A pointer to zero
	// is an explicit reset signal on push events; list snapshots never
	// carry an explicit zero.
	UnansweredCount *int `json:"unansweredCount,omitempty"`
}

// Message is a single entry in a conversation's history.
type Message struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	IsFromUser bool   `json:"isFromUser"`
}

// BotEnabledOrDefault resolves the tri-state flag: unset defaults to enabled.
func (c *Chat) BotEnabledOrDefault() bool {
	if c.BotEnabled == nil {
		return true
	}
	return *c.BotEnabled
}

// UnansweredOrZero resolves the optional count: absence means zero.
func (c *Chat) UnansweredOrZero() int {
	if c.UnansweredCount == nil {
		return 0
	}
	return *c.UnansweredCount
}

// FallbackMessageID synthesizes a message id from sender and timestamp for
// transports that omit one. Ids must stay unique within one conversation.
func FallbackMessageID(sender string, ts time.Time) string {
	return fmt.Sprintf("%s_%d", sender, ts.Unix())
}

// BotStatusChange is the payload of a bot_status_change push event.
type BotStatusChange struct {
	ChatID  string `json:"chatId"`
	Enabled bool   `json:"enabled"`
}

// StatusUpdate is the payload posted to the backend status ingress.
type StatusUpdate struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	QRCode          string `json:"qrCode,omitempty"`
	ConnectedNumber string `json:"connectedNumber,omitempty"`
}
