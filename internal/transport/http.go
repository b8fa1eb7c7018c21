// ABOUTME: HTTP adapter onto a running transport client: outbound sends and connection state sampling.
// ABOUTME: Multiple send endpoints are composed via MultiSender for the ordered-fallback behavior.

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPSender posts outbound messages to one transport client send endpoint.
type HTTPSender struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPSender builds a sender for one endpoint URL.
func NewHTTPSender(url string, timeout time.Duration, logger *slog.Logger) *HTTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "transport", "endpoint", url),
	}
}

// Send delivers one message. Any non-2xx response is a failure, letting
// MultiSender move on to the next endpoint in the chain.
func (s *HTTPSender) Send(ctx context.Context, recipient, text string) error {
	body, err := json.Marshal(struct {
		Recipient string `json:"recipient"`
		Message   string `json:"message"`
	}{Recipient: recipient, Message: text})
	if err != nil {
		return fmt.Errorf("encoding send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending via %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send via %s: status %d", s.url, resp.StatusCode)
	}
	return nil
}

// NewHTTPStateFunc samples a transport client's status endpoint. Any
// failure reads as disconnected; the broadcaster reports whatever it sees.
func NewHTTPStateFunc(url string, timeout time.Duration, logger *slog.Logger) StateFunc {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "transport")
	client := &http.Client{Timeout: timeout}

	return func() Status {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return Status{}
		}
		resp, err := client.Do(req)
		if err != nil {
			logger.Debug("transport status probe failed", "error", err)
			return Status{}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return Status{}
		}
		var st Status
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			logger.Debug("transport status decode failed", "error", err)
			return Status{}
		}
		return st
	}
}
