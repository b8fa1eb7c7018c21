// ABOUTME: Ingestion relay: consumes raw transport webhook batches, dedupes, forwards to the backend.
// ABOUTME: Guarantees exactly one outbound reply (real or fallback) per admitted inbound message.

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sehatops/handoff/internal/backend"
	"github.com/sehatops/handoff/internal/dedupe"
	"github.com/sehatops/handoff/internal/journal"
	"github.com/sehatops/handoff/internal/transport"
)

// Asker forwards one normalized message to the reasoning backend.
type Asker interface {
	Ask(ctx context.Context, req backend.AskRequest) (*backend.AskResponse, error)
}

// Recorder persists completed exchanges. Failures are logged, never fatal.
type Recorder interface {
	Record(ctx context.Context, ex *journal.Exchange) error
}

// Options configures a Relay.
type Options struct {
	// Addr is the webhook listen address.
	Addr string

	// AskTimeout bounds each backend forwarding call (default 60s).
	AskTimeout time.Duration

	// FallbackMessage is the canned apology sent when forwarding fails.
	FallbackMessage string
}

// Relay is the edge process core: webhook ingestion, admission, forwarding,
// and reply delivery. One goroutine per webhook delivery processes its batch
// sequentially; concurrent deliveries are serialized only at the dedup
// cache's atomic admission.
type Relay struct {
	dedupe   *dedupe.Cache
	asker    Asker
	sender   transport.Sender
	recorder Recorder
	opts     Options
	logger   *slog.Logger

	server *http.Server

	mu      sync.Mutex
	started bool

	// wg tracks in-flight batch goroutines so Stop can drain them.
	wg sync.WaitGroup
}

// New creates a relay. The recorder may be nil to disable journaling.
func New(cache *dedupe.Cache, asker Asker, sender transport.Sender, recorder Recorder, opts Options, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AskTimeout == 0 {
		opts.AskTimeout = 60 * time.Second
	}
	return &Relay{
		dedupe:   cache,
		asker:    asker,
		sender:   sender,
		recorder: recorder,
		opts:     opts,
		logger:   logger.With("component", "relay"),
	}
}

// Start begins serving the webhook endpoint. Idempotent: a second call on a
// running relay is a no-op.
func (r *Relay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", r.handleWebhook)
	mux.HandleFunc("GET /healthz", r.handleHealth)

	r.server = &http.Server{
		Addr:              r.opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	r.started = true

	go func() {
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("webhook server failed", "error", err)
		}
	}()

	r.logger.Info("relay started", "addr", r.opts.Addr)
	return nil
}

// Stop shuts down the webhook server and waits for in-flight batches.
// Idempotent.
func (r *Relay) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	server := r.server
	r.mu.Unlock()

	err := server.Shutdown(ctx)
	r.wg.Wait()
	return err
}

// batchResult counts outcomes within one webhook delivery.
type batchResult struct {
	Received   int `json:"received"`
	Admitted   int `json:"admitted"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// handleWebhook accepts a JSON array of raw transport events. Invalid
// entries are skipped, not fatal. The batch is acknowledged immediately and
// processed sequentially on its own goroutine; admission happens here,
// synchronously, so the acknowledgment counts are accurate and transport
// retries of the same delivery dedupe cleanly.
func (r *Relay) handleWebhook(w http.ResponseWriter, req *http.Request) {
	var raw []json.RawMessage
	if err := json.NewDecoder(req.Body).Decode(&raw); err != nil {
		http.Error(w, "body must be a JSON array of events", http.StatusBadRequest)
		return
	}

	result := batchResult{Received: len(raw)}
	var admitted []transport.Event

	for _, entry := range raw {
		var ev transport.Event
		if err := json.Unmarshal(entry, &ev); err != nil {
			result.Skipped++
			continue
		}
		if ev.ID == "" && ev.Sender != "" && !ev.Timestamp.IsZero() {
			// Some transports omit the message id; identity is then
			// synthesized from sender and timestamp so the event still
			// dedupes and gets its one reply.
			ev.ID = backend.FallbackMessageID(ev.Sender, ev.Timestamp)
		}
		if !ev.Valid() {
			result.Skipped++
			continue
		}
		if ev.Kind != transport.KindText || ev.FromSelf {
			// Non-text events and our own echoes are not relayed.
			result.Skipped++
			continue
		}
		if !r.dedupe.ShouldProcess(ev.ID) {
			r.logger.Debug("duplicate inbound message ignored", "message_id", ev.ID)
			result.Duplicates++
			continue
		}
		result.Admitted++
		admitted = append(admitted, ev)
	}

	if len(admitted) > 0 {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for i := range admitted {
				r.processEvent(&admitted[i])
			}
		}()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

func (r *Relay) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","pending":%d}`, r.dedupe.Len())
}

// processEvent runs the forwarding state machine for one admitted event:
// forwarded -> {replied | failed}. Exactly one outbound message (reply or
// fallback apology) leaves here, except when the backend reports the bot
// disabled for this sender, in which case the message waits for a human.
func (r *Relay) processEvent(ev *transport.Event) {
	correlationID := uuid.New().String()
	logger := r.logger.With("message_id", ev.ID, "correlation_id", correlationID)

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.AskTimeout)
	defer cancel()

	resp, err := r.asker.Ask(ctx, backend.AskRequest{
		Sender:     ev.Sender,
		Message:    ev.Text,
		SenderName: ev.SenderName,
		RequestID:  correlationID,
		Timestamp:  ev.Timestamp.Format(time.RFC3339),
	})

	switch {
	case err != nil:
		// Timeout, unreachable, or malformed reply: same handling.
		logger.Warn("backend forwarding failed, sending fallback", "error", err)
		r.deliver(ev, r.opts.FallbackMessage, true, start, correlationID)

	case resp.BotDisabled:
		logger.Info("bot disabled for sender, message awaits manual reply", "sender", ev.Sender)
		r.record(ev, "", false, start, correlationID)

	default:
		r.deliver(ev, resp.Response, false, start, correlationID)
		r.dedupe.MarkProcessed(ev.ID)
	}
}

// deliver sends exactly one outbound message for the event and records the
// exchange. A failed send is logged; it is never retried here, because a
// retry risks a double reply if the first send actually went through.
func (r *Relay) deliver(ev *transport.Event, text string, fallback bool, start time.Time, correlationID string) {
	sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.sender.Send(sendCtx, ev.Sender, text); err != nil {
		r.logger.Error("outbound send failed",
			"message_id", ev.ID,
			"recipient", ev.Sender,
			"fallback", fallback,
			"error", err)
		return
	}

	r.record(ev, text, fallback, start, correlationID)
}

// record journals the completed exchange. Best-effort: failures are logged
// and never affect the reply path.
func (r *Relay) record(ev *transport.Event, reply string, fallback bool, start time.Time, correlationID string) {
	if r.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.recorder.Record(ctx, &journal.Exchange{
		ID:            ev.ID,
		CorrelationID: correlationID,
		Sender:        ev.Sender,
		SenderName:    ev.SenderName,
		Message:       ev.Text,
		Reply:         reply,
		Fallback:      fallback,
		RoundTrip:     time.Since(start),
		CreatedAt:     time.Now(),
	})
	if err != nil {
		r.logger.Error("journal write failed", "message_id", ev.ID, "error", err)
	}
}

// Webhook returns the relay's webhook handler for tests and embedding.
func (r *Relay) Webhook() http.HandlerFunc {
	return r.handleWebhook
}
