// ABOUTME: HTTP client for the reasoning backend and its admin REST API.
// ABOUTME: One exported call per file; this file holds the shared client plumbing.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors callers branch on.
var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrMalformedReply is returned when the backend answers 200 but the
	// body does not conform to the expected shape.
	ErrMalformedReply = errors.New("malformed backend reply")
)

// Client talks to the reasoning backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a backend client. The timeout bounds every call, including
// the long Ask round trip; pass the configured backend timeout.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("component", "backend"),
	}
}

// getJSON performs a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer drain(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: %w: %w", path, ErrMalformedReply, err)
	}
	return nil
}

// postJSON performs a POST with a JSON body and optionally decodes the
// response into out (pass nil to ignore the body).
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer drain(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("POST %s: %w: %w", path, ErrMalformedReply, err)
	}
	return nil
}

// drain reads the body to completion so the connection can be reused.
func drain(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
