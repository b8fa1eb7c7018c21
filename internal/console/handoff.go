// ABOUTME: Hand-off controller: optimistic per-conversation bot toggle with rollback on failure.
// ABOUTME: Rapid toggles are never coalesced; each call persists and can fail independently.

package console

import (
	"context"
	"log/slog"
)

// BotToggler is the slice of the backend client the controller needs.
type BotToggler interface {
	SetBotEnabled(ctx context.Context, id string, enabled bool) error
}

// ToggleResult reports one persistence attempt. Want is the value the
// toggle flipped to; on Err the caller reverts the display to !Want and
// surfaces the error inline.
type ToggleResult struct {
	ID   string
	Want bool
	Err  error
}

// Handoff flips the bot-enabled flag. It holds no per-conversation state
// of its own: the reconcilers display the flag, this controller only
// persists transitions.
type Handoff struct {
	store  BotToggler
	logger *slog.Logger
}

// NewHandoff creates a controller backed by the given store.
func NewHandoff(store BotToggler, logger *slog.Logger) *Handoff {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handoff{
		store:  store,
		logger: logger.With("component", "console.handoff"),
	}
}

// Toggle computes the optimistic value for the caller to display
// immediately and returns the persistence call to run afterwards. The
// eventual bot_status_change push carries the same value on success, so
// applying it over the optimistic flag is a no-op. Each Toggle call is
// independent; when calls overlap, whichever result lands last decides
// the displayed state.
func (h *Handoff) Toggle(id string, current bool) (optimistic bool, persist func(ctx context.Context) ToggleResult) {
	want := !current
	return want, func(ctx context.Context) ToggleResult {
		if err := h.store.SetBotEnabled(ctx, id, want); err != nil {
			h.logger.Warn("bot toggle persistence failed, reverting", "chat_id", id, "want", want, "error", err)
			return ToggleResult{ID: id, Want: want, Err: err}
		}
		return ToggleResult{ID: id, Want: want}
	}
}
