// Package webhook provides a transport that POSTs batched events to an HTTP
// endpoint as JSON. Retry on server errors lives here, in the transport; the
// core never retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

const (
	defaultBatchSize = 20
	defaultTimeout   = 10 * time.Second
	maxRetries       = 3
)

// Option configures the webhook transport.
type Option func(*webhookTransport)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(t *webhookTransport) {
		t.headers = h
	}
}

// WithBatchSize sets the number of events accumulated before a flush.
// Default: 20.
func WithBatchSize(n int) Option {
	return func(t *webhookTransport) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(t *webhookTransport) {
		t.client.Timeout = d
	}
}

// envelope is the wire shape of one delivered item.
type envelope struct {
	Kind    string             `json:"kind"`
	Event   *faultline.Event   `json:"event,omitempty"`
	Session *faultline.Session `json:"session,omitempty"`
}

// webhookTransport POSTs batched envelopes to an HTTP endpoint.
type webhookTransport struct {
	client    *http.Client
	url       string
	headers   map[string]string
	batchSize int

	mu      sync.Mutex
	pending []envelope
	closed  bool
}

// New creates a webhook transport targeting the given URL.
func New(url string, opts ...Option) faultline.Transport {
	t := &webhookTransport{
		client:    &http.Client{Timeout: defaultTimeout},
		url:       url,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SendEvent appends the event to the batch, flushing when the batch is full.
func (t *webhookTransport) SendEvent(ctx context.Context, event *faultline.Event) error {
	return t.append(envelope{Kind: "event", Event: event})
}

// SendSession appends the session to the batch, flushing when the batch is
// full.
func (t *webhookTransport) SendSession(ctx context.Context, session *faultline.Session) error {
	return t.append(envelope{Kind: "session", Session: session})
}

func (t *webhookTransport) append(env envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("webhook: transport is closed")
	}
	t.pending = append(t.pending, env)
	if len(t.pending) >= t.batchSize {
		return t.flushLocked()
	}
	return nil
}

// Flush delivers any pending batch.
func (t *webhookTransport) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

// Close flushes remaining items and rejects further sends.
func (t *webhookTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.flushLocked()
	t.closed = true
	return err
}

// flushLocked sends the pending batch via HTTP POST. Caller must hold t.mu.
func (t *webhookTransport) flushLocked() error {
	if len(t.pending) == 0 {
		return nil
	}
	batch := t.pending
	t.pending = nil

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}
	return t.postWithRetry(body)
}

// postWithRetry sends the body via HTTP POST, retrying 5xx responses with
// exponential backoff.
func (t *webhookTransport) postWithRetry(body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<(attempt-1)) * 250 * time.Millisecond)
		}

		req, err := http.NewRequest(http.MethodPost, t.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = fmt.Errorf("webhook: HTTP %d", resp.StatusCode)

		// Only retry on 5xx server errors.
		if resp.StatusCode < 500 {
			return lastErr
		}
	}
	return lastErr
}
