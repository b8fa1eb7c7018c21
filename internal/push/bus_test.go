// ABOUTME: Tests for the push event bus: registry semantics, dispatch order, and reconnect notifications.
// ABOUTME: Uses a scripted fake connection instead of a live websocket server.

package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sehatops/handoff/internal/backend"
)

// fakeConn feeds scripted frames to the read loop, then fails.
type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn(frames ...string) *fakeConn {
	c := &fakeConn{
		frames: make(chan []byte, len(frames)),
		closed: make(chan struct{}),
	}
	for _, f := range frames {
		c.frames <- []byte(f)
	}
	return c
}

func (c *fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case data := <-c.frames:
		return websocket.MessageText, data, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (c *fakeConn) Close(websocket.StatusCode, string) error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) drop() {
	c.once.Do(func() { close(c.closed) })
}

func testBus() *Bus {
	return newBus(slog.Default())
}

func TestBus_DispatchInSubscriptionOrder(t *testing.T) {
	b := testBus()

	var order []string
	b.Subscribe("ch", func(json.RawMessage) { order = append(order, "first") })
	b.Subscribe("ch", func(json.RawMessage) { order = append(order, "second") })
	b.Subscribe("ch", func(json.RawMessage) { order = append(order, "third") })

	b.dispatch("ch", json.RawMessage(`{}`))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBus_SameHandlerTwiceIsTwoRegistrations(t *testing.T) {
	b := testBus()

	count := 0
	fn := func(json.RawMessage) { count++ }

	sub1 := b.Subscribe("ch", fn)
	sub2 := b.Subscribe("ch", fn)

	b.dispatch("ch", nil)
	assert.Equal(t, 2, count, "two registrations, two deliveries")

	// Cancelling one token leaves the other registration active.
	sub1.Cancel()
	b.dispatch("ch", nil)
	assert.Equal(t, 3, count)

	sub2.Cancel()
	b.dispatch("ch", nil)
	assert.Equal(t, 3, count)
}

func TestBus_CancelIsIdempotent(t *testing.T) {
	b := testBus()

	count := 0
	sub := b.Subscribe("ch", func(json.RawMessage) { count++ })
	sub.Cancel()
	sub.Cancel()

	b.dispatch("ch", nil)
	assert.Equal(t, 0, count)
}

func TestBus_DispatchOnlyMatchingChannel(t *testing.T) {
	b := testBus()

	var hits []string
	b.Subscribe("a", func(json.RawMessage) { hits = append(hits, "a") })
	b.Subscribe("b", func(json.RawMessage) { hits = append(hits, "b") })

	b.dispatch("a", nil)
	assert.Equal(t, []string{"a"}, hits)
}

func TestBus_TypedHelpers(t *testing.T) {
	b := testBus()

	var gotChat backend.Chat
	b.OnNewMessage(func(c backend.Chat) { gotChat = c })

	var gotChange backend.BotStatusChange
	b.OnBotStatus(func(ch backend.BotStatusChange) { gotChange = ch })

	b.dispatch(ChannelNewMessage, json.RawMessage(`{"id":"1","sender":"a@t","lastMessage":"hi","unansweredCount":2}`))
	b.dispatch(ChannelBotStatus, json.RawMessage(`{"chatId":"1","enabled":false}`))

	assert.Equal(t, "1", gotChat.ID)
	require.NotNil(t, gotChat.UnansweredCount)
	assert.Equal(t, 2, *gotChat.UnansweredCount)
	assert.Equal(t, "1", gotChange.ChatID)
	assert.False(t, gotChange.Enabled)
}

func TestBus_TypedHelpers_MalformedPayloadDropped(t *testing.T) {
	b := testBus()

	called := false
	b.OnChatsUpdate(func([]backend.Chat) { called = true })

	b.dispatch(ChannelChatsUpdate, json.RawMessage(`"not a list"`))
	assert.False(t, called)
}

func TestBus_ReadLoopDispatchesFrames(t *testing.T) {
	b := testBus()

	var mu sync.Mutex
	var previews []string
	b.OnNewMessage(func(c backend.Chat) {
		mu.Lock()
		previews = append(previews, c.LastMessage)
		mu.Unlock()
	})

	conn := newFakeConn(
		`{"event":"new_message","data":{"id":"1","sender":"a@t","lastMessage":"one"}}`,
		`not even json`,
		`{"event":"new_message","data":{"id":"1","sender":"a@t","lastMessage":"two"}}`,
	)

	done := make(chan struct{})
	go func() {
		b.readLoop(context.Background(), conn)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(previews) == 2
	}, time.Second, 5*time.Millisecond)

	conn.drop()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"one", "two"}, previews, "frames delivered in send order")
}

func TestBus_ReconnectNotifiesConnectionSubscribers(t *testing.T) {
	b := testBus()

	var mu sync.Mutex
	var transitions []bool
	b.OnConnection(func(connected bool) {
		mu.Lock()
		transitions = append(transitions, connected)
		mu.Unlock()
	})

	conns := make(chan *fakeConn, 2)
	first := newFakeConn()
	second := newFakeConn()
	conns <- first
	conns <- second

	b.dial = func(ctx context.Context) (wsConn, error) {
		select {
		case c := <-conns:
			return c, nil
		default:
			return nil, errors.New("no more connections")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	// First connection up.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transitions) >= 1 && transitions[0]
	}, time.Second, 5*time.Millisecond)

	// Drop it: subscribers see false, then true once the second dial lands.
	first.drop()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transitions) >= 3
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	got := append([]bool(nil), transitions[:3]...)
	mu.Unlock()
	assert.Equal(t, []bool{true, false, true}, got)

	cancel()
	b.Close()
}

func TestBus_FirstDialFailureNotifiesDisconnected(t *testing.T) {
	b := testBus()

	var mu sync.Mutex
	var transitions []bool
	b.OnConnection(func(connected bool) {
		mu.Lock()
		transitions = append(transitions, connected)
		mu.Unlock()
	})

	dials := 0
	b.dial = func(ctx context.Context) (wsConn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return nil, errors.New("unreachable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	// Subscribers hear about the gap even though no connection ever
	// existed, and only once across retries.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transitions) >= 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials >= 2
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	got := append([]bool(nil), transitions...)
	mu.Unlock()
	assert.Equal(t, []bool{false}, got)

	cancel()
	b.Close()
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	b := testBus()
	b.dial = func(ctx context.Context) (wsConn, error) {
		return nil, errors.New("unreachable")
	}
	b.Start(context.Background())
	b.Close()
	b.Close()
}

func TestNextBackoff_Caps(t *testing.T) {
	d := reconnectMin
	for i := 0; i < 20; i++ {
		d = nextBackoff(d)
	}
	assert.LessOrEqual(t, d, reconnectMax+reconnectMax/2)
	assert.Greater(t, d, time.Duration(0))
}
