// ABOUTME: Tests for the SQLite exchange journal.
// ABOUTME: Covers record/read round trips, ordering, and stats aggregation.

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordAndGet(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	ex := &Exchange{
		ID:            "msg-1",
		CorrelationID: "corr-1",
		Sender:        "6281234567890@s.whatsapp.net",
		SenderName:    "John Doe",
		Message:       "Apa itu program 7 hari?",
		Reply:         "Program 7 Hari adalah...",
		RoundTrip:     1200 * time.Millisecond,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, j.Record(ctx, ex))

	got, err := j.Get(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, ex.Sender, got.Sender)
	assert.Equal(t, ex.Message, got.Message)
	assert.Equal(t, ex.Reply, got.Reply)
	assert.False(t, got.Fallback)
	assert.Equal(t, 1200*time.Millisecond, got.RoundTrip)
}

func TestJournal_Get_NotFound(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJournal_Recent_NewestFirst(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, j.Record(ctx, &Exchange{
			ID:        id,
			Sender:    "u@transport",
			Message:   "m",
			Reply:     "r",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recent, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)
}

func TestJournal_Stats(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, j.Record(ctx, &Exchange{ID: "1", Sender: "alice@t", Message: "m", Reply: "r", CreatedAt: now}))
	require.NoError(t, j.Record(ctx, &Exchange{ID: "2", Sender: "alice@t", Message: "m", Reply: "r", Fallback: true, CreatedAt: now}))
	require.NoError(t, j.Record(ctx, &Exchange{ID: "3", Sender: "bob@t", Message: "m", Reply: "r", CreatedAt: now}))

	stats, err := j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Exchanges)
	assert.Equal(t, 2, stats.UniqueSenders)
	assert.Equal(t, 1, stats.Fallbacks)
}

func TestJournal_DuplicateID(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	ex := &Exchange{ID: "dup", Sender: "u@t", Message: "m", Reply: "r", CreatedAt: time.Now()}
	require.NoError(t, j.Record(ctx, ex))
	assert.Error(t, j.Record(ctx, ex), "primary key collision should surface")
}
