// ABOUTME: Status broadcaster: samples transport connection state on a timer and publishes it.
// ABOUTME: Best-effort fire-and-forget; restart-safe because Start re-arms by stopping any running timer.

package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sehatops/handoff/internal/backend"
	"github.com/sehatops/handoff/internal/transport"
)

// StatusPoster publishes one connection-state snapshot.
type StatusPoster interface {
	PostStatus(ctx context.Context, update backend.StatusUpdate) error
}

// Broadcaster periodically samples local transport state and posts it to the
// backend status ingress. Failures are logged and dropped: no retry, no
// queue.
type Broadcaster struct {
	poster   StatusPoster
	state    transport.StateFunc
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
}

// NewBroadcaster creates a stopped broadcaster.
func NewBroadcaster(poster StatusPoster, state transport.StateFunc, interval time.Duration, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		poster:   poster,
		state:    state,
		interval: interval,
		logger:   logger.With("component", "status"),
	}
}

// Start arms the broadcast timer. Idempotent in the re-arming sense: any
// existing timer is stopped first so two Start calls never produce duplicate
// broadcasts.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stop != nil {
		close(b.stop)
	}
	stop := make(chan struct{})
	b.stop = stop

	go b.run(stop)
	b.logger.Debug("status broadcaster started", "interval", b.interval)
}

// Stop disarms the timer. Idempotent.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
}

func (b *Broadcaster) run(stop chan struct{}) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.broadcast()
		case <-stop:
			return
		}
	}
}

// broadcast posts one snapshot. Errors are logged and forgotten.
func (b *Broadcaster) broadcast() {
	status := b.state()

	update := backend.StatusUpdate{
		Status:          "disconnected",
		Timestamp:       time.Now().Format(time.RFC3339),
		ConnectedNumber: status.ConnectedNumber,
		QRCode:          status.QRCode,
	}
	if status.Connected {
		update.Status = "connected"
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.interval)
	defer cancel()

	if err := b.poster.PostStatus(ctx, update); err != nil {
		b.logger.Warn("status broadcast failed", "error", err)
	}
}
