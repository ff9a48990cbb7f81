// Package stream provides a transport that pushes events over a WebSocket
// connection to a live debugging endpoint.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

const defaultDialTimeout = 10 * time.Second

// Option configures the stream transport.
type Option func(*streamTransport)

// WithHeader sets HTTP headers sent with the WebSocket handshake.
func WithHeader(h http.Header) Option {
	return func(t *streamTransport) {
		t.header = h
	}
}

// WithDialTimeout bounds the handshake. Default: 10s.
func WithDialTimeout(d time.Duration) Option {
	return func(t *streamTransport) {
		t.dialTimeout = d
	}
}

// envelope is the wire shape of one streamed item.
type envelope struct {
	Kind    string             `json:"kind"`
	Event   *faultline.Event   `json:"event,omitempty"`
	Session *faultline.Session `json:"session,omitempty"`
}

// streamTransport writes JSON envelopes to one WebSocket connection. The
// connection is dialed lazily on first send and re-dialed after a write
// failure.
type streamTransport struct {
	url         string
	header      http.Header
	dialTimeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// New creates a transport streaming to the given ws:// or wss:// URL.
func New(url string, opts ...Option) faultline.Transport {
	t := &streamTransport{
		url:         url,
		dialTimeout: defaultDialTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *streamTransport) SendEvent(ctx context.Context, event *faultline.Event) error {
	return t.write(ctx, envelope{Kind: "event", Event: event})
}

func (t *streamTransport) SendSession(ctx context.Context, session *faultline.Session) error {
	return t.write(ctx, envelope{Kind: "session", Session: session})
}

func (t *streamTransport) write(ctx context.Context, env envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("stream: transport is closed")
	}
	if err := t.ensureConnLocked(ctx); err != nil {
		return err
	}
	if err := t.conn.WriteJSON(env); err != nil {
		// Drop the connection so the next send re-dials.
		t.conn.Close()
		t.conn = nil
		return fmt.Errorf("stream: write: %w", err)
	}
	return nil
}

// ensureConnLocked dials the endpoint when no live connection exists. Caller
// must hold t.mu.
func (t *streamTransport) ensureConnLocked(ctx context.Context) error {
	if t.conn != nil {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, t.dialTimeout)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, t.url, t.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("stream: dial %s: %w", t.url, err)
	}
	t.conn = conn
	return nil
}

// Flush is a no-op; writes are synchronous.
func (t *streamTransport) Flush(ctx context.Context) error {
	return nil
}

// Close sends a close frame and tears the connection down.
func (t *streamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := t.conn.Close()
	t.conn = nil
	return err
}
