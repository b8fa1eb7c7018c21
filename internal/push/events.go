// ABOUTME: Typed subscription helpers decoding push payloads into the wire model.
// ABOUTME: Malformed payloads are logged and dropped rather than delivered half-decoded.

package push

import (
	"encoding/json"

	"github.com/sehatops/handoff/internal/backend"
)

// OnNewMessage subscribes to new_message events carrying one conversation.
func (b *Bus) OnNewMessage(fn func(backend.Chat)) *Subscription {
	return b.Subscribe(ChannelNewMessage, func(data json.RawMessage) {
		var chat backend.Chat
		if err := json.Unmarshal(data, &chat); err != nil {
			b.logger.Warn("dropping malformed new_message payload", "error", err)
			return
		}
		fn(chat)
	})
}

// OnChatsUpdate subscribes to authoritative full-list resyncs.
func (b *Bus) OnChatsUpdate(fn func([]backend.Chat)) *Subscription {
	return b.Subscribe(ChannelChatsUpdate, func(data json.RawMessage) {
		var chats []backend.Chat
		if err := json.Unmarshal(data, &chats); err != nil {
			b.logger.Warn("dropping malformed chats_update payload", "error", err)
			return
		}
		fn(chats)
	})
}

// OnBotStatus subscribes to per-conversation bot flag changes.
func (b *Bus) OnBotStatus(fn func(backend.BotStatusChange)) *Subscription {
	return b.Subscribe(ChannelBotStatus, func(data json.RawMessage) {
		var change backend.BotStatusChange
		if err := json.Unmarshal(data, &change); err != nil {
			b.logger.Warn("dropping malformed bot_status_change payload", "error", err)
			return
		}
		fn(change)
	})
}

// OnConnection subscribes to push-channel connectivity transitions. There is
// no replay after a gap: handlers receiving true after false must trigger a
// full poll resync.
func (b *Bus) OnConnection(fn func(bool)) *Subscription {
	return b.Subscribe(ChannelConnection, func(data json.RawMessage) {
		var connected bool
		if err := json.Unmarshal(data, &connected); err != nil {
			b.logger.Warn("dropping malformed connection_status payload", "error", err)
			return
		}
		fn(connected)
	})
}
