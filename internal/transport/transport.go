// ABOUTME: Transport abstraction for the messaging edge: inbound events, outbound sends, connection state.
// ABOUTME: Concrete transport clients live outside this repository; the relay depends only on these interfaces.

package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Event kinds as reported by the transport client.
const (
	KindText  = "text"
	KindMedia = "media"
	KindOther = "other"
)

// Event is a raw inbound transport event. One webhook delivery carries a
// batch of these; entries that fail validation are skipped individually.
type Event struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"senderName,omitempty"`
	Text       string    `json:"text"`
	Kind       string    `json:"kind"`
	FromSelf   bool      `json:"fromSelf,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Valid reports whether the event carries enough to be relayed at all.
func (e *Event) Valid() bool {
	return e.ID != "" && e.Sender != ""
}

// Sender delivers one outbound message over the transport.
type Sender interface {
	Send(ctx context.Context, recipient, text string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, recipient, text string) error

func (f SenderFunc) Send(ctx context.Context, recipient, text string) error {
	return f(ctx, recipient, text)
}

// Status is a snapshot of the transport client's connection state, sampled
// by the status broadcaster.
type Status struct {
	Connected       bool   `json:"connected"`
	ConnectedNumber string `json:"connectedNumber,omitempty"`
	QRCode          string `json:"qrCode,omitempty"`
}

// StateFunc samples the current connection state.
type StateFunc func() Status

// ErrAllSendersFailed is returned by MultiSender once every strategy in the
// chain has been exhausted.
var ErrAllSendersFailed = errors.New("all send strategies failed")

// MultiSender tries an ordered list of send strategies in sequence and
// reports a unified failure only after all are exhausted.
type MultiSender struct {
	senders []Sender
}

// NewMultiSender builds a sender chain. At least one strategy is required.
func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{senders: senders}
}

// Send attempts each strategy in order, stopping at the first success.
func (m *MultiSender) Send(ctx context.Context, recipient, text string) error {
	if len(m.senders) == 0 {
		return ErrAllSendersFailed
	}

	var lastErr error
	for _, s := range m.senders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Send(ctx, recipient, text); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("%w: %w", ErrAllSendersFailed, lastErr)
}
