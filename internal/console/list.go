// ABOUTME: List reconciler: merges poll snapshots and push events into the ordered conversation list.
// ABOUTME: Poll snapshots replace wholesale; push events patch in place or insert at the head.

package console

import (
	"context"
	"log/slog"

	"github.com/sehatops/handoff/internal/backend"
)

// ListStore is the slice of the backend client the list reconciler needs.
type ListStore interface {
	ListChats(ctx context.Context, query string) ([]backend.Chat, error)
}

// ListSnapshot is one poll result, tagged with the filter it was issued
// for so a late result from a previous filter is discarded on arrival.
type ListSnapshot struct {
	Query string
	Chats []backend.Chat
	Err   error
}

// List owns the conversation list shown in the left pane.
type List struct {
	store  ListStore
	logger *slog.Logger

	chats        []backend.Chat
	query        string
	reconnecting bool
	err          error
}

// NewList creates an empty list reconciler backed by the given store.
func NewList(store ListStore, logger *slog.Logger) *List {
	if logger == nil {
		logger = slog.Default()
	}
	return &List{
		store:  store,
		logger: logger.With("component", "console.list"),
	}
}

// SetQuery records the active search filter. The caller follows up with a
// Fetch for the new filter; results tagged with an older filter are then
// stale and ApplySnapshot drops them.
func (l *List) SetQuery(query string) {
	l.query = query
}

// Query returns the active search filter.
func (l *List) Query() string { return l.query }

// Fetch polls the backend for the list snapshot matching the given filter.
// Safe to call off the apply loop: it touches no reconciler state.
func (l *List) Fetch(ctx context.Context, query string) ListSnapshot {
	chats, err := l.store.ListChats(ctx, query)
	return ListSnapshot{Query: query, Chats: chats, Err: err}
}

// ApplySnapshot replaces the list wholesale with a poll result. Snapshots
// for a filter other than the current one are discarded. On error the
// previous list is kept and the error is surfaced via Err.
func (l *List) ApplySnapshot(s ListSnapshot) {
	if s.Query != l.query {
		l.logger.Debug("discarding stale list snapshot", "for", s.Query, "current", l.query)
		return
	}
	if s.Err != nil {
		l.err = s.Err
		l.logger.Warn("list poll failed, keeping last-known state", "error", s.Err)
		return
	}

	chats := make([]backend.Chat, len(s.Chats))
	copy(chats, s.Chats)
	for i := range chats {
		suppressZeroCount(&chats[i])
	}
	l.chats = chats
	l.err = nil
}

// ApplyNewMessage patches an existing conversation in place, keeping its
// position, or inserts an unseen conversation at the head.
func (l *List) ApplyNewMessage(chat backend.Chat) {
	for i := range l.chats {
		if l.chats[i].ID != chat.ID {
			continue
		}
		l.chats[i].LastMessage = chat.LastMessage
		l.chats[i].LastTimestamp = chat.LastTimestamp
		if chat.UnansweredCount != nil {
			l.chats[i].UnansweredCount = cloneCount(chat.UnansweredCount)
			suppressZeroCount(&l.chats[i])
		}
		return
	}

	suppressZeroCount(&chat)
	l.chats = append([]backend.Chat{chat}, l.chats...)
}

// ApplyChatsUpdate replaces the list with an authoritative pushed resync.
func (l *List) ApplyChatsUpdate(chats []backend.Chat) {
	next := make([]backend.Chat, len(chats))
	copy(next, chats)
	for i := range next {
		suppressZeroCount(&next[i])
	}
	l.chats = next
	l.err = nil
}

// ApplyBotStatus patches the bot flag of the matching conversation. All
// other conversations are untouched.
func (l *List) ApplyBotStatus(change backend.BotStatusChange) {
	for i := range l.chats {
		if l.chats[i].ID == change.ChatID {
			enabled := change.Enabled
			l.chats[i].BotEnabled = &enabled
			return
		}
	}
}

// SetConnected records a push-channel transition. It reports whether the
// caller should run one poll resync: true exactly when the channel came
// back after a gap, since missed events are never replayed.
func (l *List) SetConnected(connected bool) (resync bool) {
	was := l.reconnecting
	l.reconnecting = !connected
	return connected && was
}

// Chats returns the current ordered list.
func (l *List) Chats() []backend.Chat { return l.chats }

// Reconnecting reports whether the push channel is down.
func (l *List) Reconnecting() bool { return l.reconnecting }

// Err returns the last poll error, or nil after a successful snapshot.
func (l *List) Err() error { return l.err }

// suppressZeroCount normalizes an explicit zero count to absent. The list
// never displays "0"; only positive counts carry information here.
func suppressZeroCount(c *backend.Chat) {
	if c.UnansweredCount != nil && *c.UnansweredCount == 0 {
		c.UnansweredCount = nil
	}
}

func cloneCount(n *int) *int {
	v := *n
	return &v
}
