// ABOUTME: Detail reconciler: state of the single open conversation, merged from polls and pushes.
// ABOUTME: Every fetch is tagged with its target id; results for a superseded selection are discarded.

package console

import (
	"context"
	"log/slog"

	"github.com/sehatops/handoff/internal/backend"
)

// ChatStore is the slice of the backend client the detail reconciler needs.
type ChatStore interface {
	GetChat(ctx context.Context, id string) (*backend.Chat, error)
	GetBotEnabled(ctx context.Context, id string) (bool, error)
	SendOperatorMessage(ctx context.Context, id, text string) error
}

// Snapshot is one single-conversation poll result, tagged with the id it
// was issued for.
type Snapshot struct {
	For  string
	Chat *backend.Chat
	Err  error
}

// BotFlag is one bot-enabled fetch result, tagged like Snapshot.
type BotFlag struct {
	For     string
	Enabled bool
}

// Detail owns the open conversation shown in the right pane.
type Detail struct {
	store  ChatStore
	logger *slog.Logger

	id         string
	chat       backend.Chat
	messages   []backend.Message
	botEnabled bool
	unanswered int
	loading    bool
	err        error
}

// NewDetail creates a detail reconciler with no conversation selected.
func NewDetail(store ChatStore, logger *slog.Logger) *Detail {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detail{
		store:  store,
		logger: logger.With("component", "console.detail"),
	}
}

// Select switches the open conversation. The message buffer and error
// state are cleared here, synchronously, before any fetch is issued, so
// the previous conversation's content can never show under the new id.
// The caller follows up with FetchSnapshot and FetchBotFlag for the id.
func (d *Detail) Select(id string) {
	d.id = id
	d.chat = backend.Chat{ID: id}
	d.messages = nil
	d.botEnabled = true
	d.unanswered = 0
	d.loading = true
	d.err = nil
}

// FetchSnapshot polls the authoritative snapshot for id. Safe to call off
// the apply loop.
func (d *Detail) FetchSnapshot(ctx context.Context, id string) Snapshot {
	chat, err := d.store.GetChat(ctx, id)
	return Snapshot{For: id, Chat: chat, Err: err}
}

// FetchBotFlag reads the bot-enabled flag for id. A read failure resolves
// to enabled, the documented default for the unset flag.
func (d *Detail) FetchBotFlag(ctx context.Context, id string) BotFlag {
	enabled, err := d.store.GetBotEnabled(ctx, id)
	if err != nil {
		d.logger.Warn("bot flag fetch failed, assuming enabled", "chat_id", id, "error", err)
		return BotFlag{For: id, Enabled: true}
	}
	return BotFlag{For: id, Enabled: enabled}
}

// ApplySnapshot adopts a poll result for the open conversation. A result
// tagged with any other id is dropped: the operator has moved on.
func (d *Detail) ApplySnapshot(s Snapshot) {
	if s.For != d.id {
		d.logger.Debug("discarding stale snapshot", "for", s.For, "current", d.id)
		return
	}
	d.loading = false
	if s.Err != nil {
		d.err = s.Err
		d.logger.Warn("detail poll failed, keeping last-known state", "chat_id", s.For, "error", s.Err)
		return
	}

	d.chat = *s.Chat
	d.messages = s.Chat.Messages
	d.unanswered = s.Chat.UnansweredOrZero()
	d.err = nil
}

// ApplyBotFlag adopts a flag fetch result, subject to the same staleness
// rule as ApplySnapshot.
func (d *Detail) ApplyBotFlag(f BotFlag) {
	if f.For != d.id {
		return
	}
	d.botEnabled = f.Enabled
}

// ApplyNewMessage merges a pushed update for the open conversation.
// Preview and timestamp are adopted unconditionally; pushed messages only
// when non-empty, so a partial push never erases loaded history. A pushed
// count of exactly zero clears the local count; an absent count leaves it
// unchanged.
func (d *Detail) ApplyNewMessage(chat backend.Chat) {
	if chat.ID != d.id {
		return
	}

	d.chat.LastMessage = chat.LastMessage
	d.chat.LastTimestamp = chat.LastTimestamp
	if len(chat.Messages) > 0 {
		d.messages = chat.Messages
	}
	if chat.UnansweredCount != nil {
		d.unanswered = *chat.UnansweredCount
	}
}

// ApplyBotStatus adopts a pushed flag change for the open conversation.
// The push is authoritative over any optimistic local value.
func (d *Detail) ApplyBotStatus(change backend.BotStatusChange) {
	if change.ChatID != d.id {
		return
	}
	d.botEnabled = change.Enabled
}

// Send delivers an operator reply and, on success, re-fetches the
// authoritative snapshot for the same id. There is no optimistic
// insertion; the refetched snapshot is the only source of the new
// message. The returned snapshot carries no unanswered count: a human
// reply means the queue is answered.
func (d *Detail) Send(ctx context.Context, id, text string) Snapshot {
	if err := d.store.SendOperatorMessage(ctx, id, text); err != nil {
		return Snapshot{For: id, Err: err}
	}

	chat, err := d.store.GetChat(ctx, id)
	if err != nil {
		return Snapshot{For: id, Err: err}
	}
	chat.UnansweredCount = nil
	return Snapshot{For: id, Chat: chat}
}

// ID returns the id of the open conversation, or "" when none is selected.
func (d *Detail) ID() string { return d.id }

// Chat returns the open conversation's metadata (preview, timestamp,
// sender). Messages are exposed separately via Messages.
func (d *Detail) Chat() backend.Chat { return d.chat }

// Messages returns the loaded history of the open conversation.
func (d *Detail) Messages() []backend.Message { return d.messages }

// BotEnabled reports the bot flag as currently displayed, optimistic
// values included.
func (d *Detail) BotEnabled() bool { return d.botEnabled }

// Unanswered returns the displayed unanswered count; zero means cleared.
func (d *Detail) Unanswered() int { return d.unanswered }

// Loading reports whether the initial snapshot for the selection is still
// in flight.
func (d *Detail) Loading() bool { return d.loading }

// Err returns the last fetch or send error for the open conversation.
func (d *Detail) Err() error { return d.err }
