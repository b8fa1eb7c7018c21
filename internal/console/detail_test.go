// ABOUTME: Tests for the detail reconciler: selection resets, stale-fetch discard, push merging.
// ABOUTME: The fake store scripts per-id snapshots so cross-conversation races are reproducible.

package console

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatops/handoff/internal/backend"
)

type fakeChatStore struct {
	chats    map[string]*backend.Chat
	botFlags map[string]bool
	chatErr  error
	botErr   error
	sendErr  error
	sent     []string
}

func (s *fakeChatStore) GetChat(ctx context.Context, id string) (*backend.Chat, error) {
	if s.chatErr != nil {
		return nil, s.chatErr
	}
	c, ok := s.chats[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *fakeChatStore) GetBotEnabled(ctx context.Context, id string) (bool, error) {
	if s.botErr != nil {
		return false, s.botErr
	}
	return s.botFlags[id], nil
}

func (s *fakeChatStore) SendOperatorMessage(ctx context.Context, id, text string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, id+":"+text)
	return nil
}

func detailFixture() (*Detail, *fakeChatStore) {
	store := &fakeChatStore{
		chats: map[string]*backend.Chat{
			"a": {
				ID: "a", Sender: "a@transport", LastMessage: "how do I pay",
				LastTimestamp:   "2026-08-29T10:00:00Z",
				UnansweredCount: intp(2),
				Messages: []backend.Message{
					{ID: "m1", Content: "hi", IsFromUser: true},
					{ID: "m2", Content: "hello", IsFromUser: false},
					{ID: "m3", Content: "how do I pay", IsFromUser: true},
				},
			},
			"b": {
				ID: "b", Sender: "b@transport", LastMessage: "thanks",
				LastTimestamp: "2026-08-29T09:00:00Z",
				Messages:      []backend.Message{{ID: "n1", Content: "thanks", IsFromUser: true}},
			},
		},
		botFlags: map[string]bool{"a": true, "b": false},
	}
	return NewDetail(store, nil), store
}

func TestDetail_SelectResetsSynchronously(t *testing.T) {
	d, _ := detailFixture()
	d.Select("a")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "a"))
	require.Len(t, d.Messages(), 3)

	// The reset happens inside Select, before any fetch resolves.
	d.Select("b")
	assert.Equal(t, "b", d.ID())
	assert.Empty(t, d.Messages())
	assert.Zero(t, d.Unanswered())
	assert.True(t, d.BotEnabled(), "flag defaults to enabled until fetched")
	assert.True(t, d.Loading())
	assert.NoError(t, d.Err())
}

func TestDetail_SnapshotAdoptedForCurrentSelection(t *testing.T) {
	d, _ := detailFixture()
	d.Select("a")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "a"))

	assert.False(t, d.Loading())
	assert.Equal(t, "how do I pay", d.Chat().LastMessage)
	assert.Len(t, d.Messages(), 3)
	assert.Equal(t, 2, d.Unanswered())
}

func TestDetail_StaleFetchDiscardedAfterSwitch(t *testing.T) {
	d, _ := detailFixture()

	// Select a, fetch still pending when the operator switches to b.
	d.Select("a")
	pendingA := d.FetchSnapshot(context.Background(), "a")

	d.Select("b")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "b"))
	require.Equal(t, "thanks", d.Chat().LastMessage)

	// a's late result arrives. Displayed state must still be b's.
	d.ApplySnapshot(pendingA)
	assert.Equal(t, "b", d.ID())
	assert.Equal(t, "thanks", d.Chat().LastMessage)
	assert.Len(t, d.Messages(), 1)
}

func TestDetail_StaleBotFlagDiscarded(t *testing.T) {
	d, _ := detailFixture()
	d.Select("b")
	pendingB := d.FetchBotFlag(context.Background(), "b")
	require.False(t, pendingB.Enabled)

	d.Select("a")
	d.ApplyBotFlag(pendingB)
	assert.True(t, d.BotEnabled(), "flag result for a superseded selection must not land")
}

func TestDetail_BotFlagFetchErrorDefaultsEnabled(t *testing.T) {
	d, store := detailFixture()
	store.botErr = errors.New("backend down")

	d.Select("b")
	d.ApplyBotFlag(d.FetchBotFlag(context.Background(), "b"))
	assert.True(t, d.BotEnabled())
}

func TestDetail_SnapshotErrorKeepsHistory(t *testing.T) {
	d, store := detailFixture()
	d.Select("a")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "a"))
	require.Len(t, d.Messages(), 3)

	store.chatErr = errors.New("backend down")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "a"))

	assert.Error(t, d.Err())
	assert.Len(t, d.Messages(), 3, "last-known state survives a failed poll")
}

func TestDetail_PushWithEmptyMessagesPreservesHistory(t *testing.T) {
	d, _ := detailFixture()
	d.Select("a")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "a"))
	require.Len(t, d.Messages(), 3)

	d.ApplyNewMessage(backend.Chat{
		ID:            "a",
		LastMessage:   "one more question",
		LastTimestamp: "2026-08-29T10:05:00Z",
	})

	assert.Len(t, d.Messages(), 3, "an empty pushed list never erases loaded history")
	assert.Equal(t, "one more question", d.Chat().LastMessage)
	assert.Equal(t, "2026-08-29T10:05:00Z", d.Chat().LastTimestamp)
}

func TestDetail_PushWithMessagesAdoptsThem(t *testing.T) {
	d, _ := detailFixture()
	d.Select("a")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "a"))

	d.ApplyNewMessage(backend.Chat{
		ID:          "a",
		LastMessage: "one more question",
		Messages: []backend.Message{
			{ID: "m1", Content: "hi", IsFromUser: true},
			{ID: "m4", Content: "one more question", IsFromUser: true},
		},
	})

	assert.Len(t, d.Messages(), 2)
}

func TestDetail_PushCountSemantics(t *testing.T) {
	d, _ := detailFixture()
	d.Select("a")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "a"))
	require.Equal(t, 2, d.Unanswered())

	// Absent count: no change.
	d.ApplyNewMessage(backend.Chat{ID: "a", LastMessage: "x"})
	assert.Equal(t, 2, d.Unanswered())

	// Explicit zero: clears.
	d.ApplyNewMessage(backend.Chat{ID: "a", LastMessage: "y", UnansweredCount: intp(0)})
	assert.Zero(t, d.Unanswered())

	d.ApplyNewMessage(backend.Chat{ID: "a", LastMessage: "z", UnansweredCount: intp(5)})
	assert.Equal(t, 5, d.Unanswered())
}

func TestDetail_PushForOtherConversationIgnored(t *testing.T) {
	d, _ := detailFixture()
	d.Select("a")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "a"))

	d.ApplyNewMessage(backend.Chat{ID: "b", LastMessage: "elsewhere"})
	d.ApplyBotStatus(backend.BotStatusChange{ChatID: "b", Enabled: false})

	assert.Equal(t, "how do I pay", d.Chat().LastMessage)
	assert.True(t, d.BotEnabled())
}

func TestDetail_BotStatusPushAuthoritative(t *testing.T) {
	d, _ := detailFixture()
	d.Select("a")
	d.ApplyBotStatus(backend.BotStatusChange{ChatID: "a", Enabled: false})
	assert.False(t, d.BotEnabled())
}

func TestDetail_SendRefetchesAndClearsCount(t *testing.T) {
	d, store := detailFixture()
	d.Select("a")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "a"))
	require.Equal(t, 2, d.Unanswered())

	d.ApplySnapshot(d.Send(context.Background(), "a", "let me help"))

	assert.Equal(t, []string{"a:let me help"}, store.sent)
	assert.Zero(t, d.Unanswered(), "a human reply means the queue is answered")
	assert.Len(t, d.Messages(), 3, "history comes from the refetched snapshot")
	assert.NoError(t, d.Err())
}

func TestDetail_SendFailureSurfacedWithoutInsertion(t *testing.T) {
	d, store := detailFixture()
	d.Select("a")
	d.ApplySnapshot(d.FetchSnapshot(context.Background(), "a"))

	store.sendErr = errors.New("transport down")
	d.ApplySnapshot(d.Send(context.Background(), "a", "hello?"))

	assert.Error(t, d.Err())
	assert.Empty(t, store.sent)
	assert.Len(t, d.Messages(), 3, "no optimistic insertion, no loss")
}
