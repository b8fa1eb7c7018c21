// ABOUTME: Client-side push event bus: one websocket connection fanned out to token-based subscribers.
// ABOUTME: Reconnects with capped backoff; missed events are never replayed, so consumers resync via poll.

package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Channel names as the backend emits them.
const (
	ChannelNewMessage  = "new_message"
	ChannelChatsUpdate = "chats_update"
	ChannelBotStatus   = "bot_status_change"
	ChannelConnection  = "connection_status"
)

const (
	reconnectMin = 1 * time.Second
	reconnectMax = 30 * time.Second
)

// Handler receives the raw JSON payload of one event.
type Handler func(data json.RawMessage)

// envelope is the wire shape of one push event.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsConn abstracts the websocket connection so the bus can be tested
// without a real server. *websocket.Conn satisfies this interface.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Close(code websocket.StatusCode, reason string) error
}

// dialFunc establishes one connection attempt.
type dialFunc func(ctx context.Context) (wsConn, error)

// Subscription identifies one registration on the bus. Cancelling removes
// exactly this registration; other subscriptions of the same function are
// untouched.
type Subscription struct {
	bus     *Bus
	channel string
	id      string
}

// Cancel removes the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.bus != nil {
		s.bus.unsubscribe(s.channel, s.id)
	}
}

// Bus maintains one logical push connection and a channel-keyed subscriber
// registry. Handlers run on the dispatch goroutine in subscription order,
// preserving the per-connection event ordering guarantee.
type Bus struct {
	dial   dialFunc
	logger *slog.Logger

	mu    sync.RWMutex
	subs  map[string]map[string]Handler // channel -> subID -> handler
	order map[string][]string           // channel -> subIDs in subscription order

	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// New creates a bus that connects to the given push channel URL. The bus is
// idle until Start is called.
func New(url string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := newBus(logger)
	b.dial = func(ctx context.Context) (wsConn, error) {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return b
}

func newBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger.With("component", "push"),
		subs:   make(map[string]map[string]Handler),
		order:  make(map[string][]string),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a handler for a channel and returns a token for later
// cancellation. Subscribing the same function twice yields two independent
// registrations.
func (b *Bus) Subscribe(channel string, fn Handler) *Subscription {
	id := uuid.New().String()

	b.mu.Lock()
	if _, ok := b.subs[channel]; !ok {
		b.subs[channel] = make(map[string]Handler)
	}
	b.subs[channel][id] = fn
	b.order[channel] = append(b.order[channel], id)
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "channel", channel, "sub_id", id)
	return &Subscription{bus: b, channel: channel, id: id}
}

// unsubscribe removes one registration by token identity.
func (b *Bus) unsubscribe(channel, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[channel]
	if !ok {
		return
	}
	if _, exists := subs[id]; !exists {
		return
	}

	delete(subs, id)
	ids := b.order[channel]
	for i, sid := range ids {
		if sid == id {
			b.order[channel] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subs, channel)
		delete(b.order, channel)
	}

	b.logger.Debug("subscriber removed", "channel", channel, "sub_id", id)
}

// Start runs the connect/read/reconnect loop until ctx is cancelled or the
// bus is closed.
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.run(ctx)
	}()
}

func (b *Bus) run(ctx context.Context) {
	backoff := reconnectMin
	notifiedDown := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		default:
		}

		conn, err := b.dial(ctx)
		if err != nil {
			b.logger.Warn("push connection failed", "error", err, "retry_in", backoff)
			// Announce the gap once, even when no connection was ever
			// established, so the reconnecting indicator shows from the
			// start.
			if !notifiedDown {
				b.notifyConnection(false)
				notifiedDown = true
			}
			if !b.sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = reconnectMin
		notifiedDown = false
		b.logger.Info("push channel connected")
		b.notifyConnection(true)

		b.readLoop(ctx, conn)
		conn.Close(websocket.StatusNormalClosure, "reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		default:
		}

		b.logger.Warn("push channel dropped, reconnecting")
		b.notifyConnection(false)
		notifiedDown = true

		if !b.sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// readLoop reads and dispatches events until the connection errors out.
func (b *Bus) readLoop(ctx context.Context, conn wsConn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			b.logger.Warn("dropping malformed push frame", "error", err)
			continue
		}
		b.dispatch(env.Event, env.Data)
	}
}

// dispatch invokes all handlers of a channel in subscription order.
func (b *Bus) dispatch(channel string, data json.RawMessage) {
	b.mu.RLock()
	ids := append([]string(nil), b.order[channel]...)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		if fn, ok := b.subs[channel][id]; ok {
			handlers = append(handlers, fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(data)
	}
}

// notifyConnection synthesizes a connection_status event for local
// subscribers. The payload matches the backend's own emission so handlers
// cannot tell a local notification from a pushed one.
func (b *Bus) notifyConnection(connected bool) {
	payload, _ := json.Marshal(connected)
	b.dispatch(ChannelConnection, payload)
}

// sleep waits for d, returning false if the bus is shutting down.
func (b *Bus) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	}
}

// nextBackoff doubles the delay with jitter, capped at reconnectMax.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > reconnectMax {
		next = reconnectMax
	}
	return next + rand.N(next/2)
}

// Close shuts the bus down. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if !b.closed {
		close(b.done)
		b.closed = true
	}
	b.mu.Unlock()
	b.wg.Wait()
}
