// client.go wires the capture pipeline: classify, tag, fingerprint, filter,
// dispatch.

package faultline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ClientOptions is the configuration surface relevant to the core pipeline.
// The URL and ignore lists are the client-level partial composed with the
// inbound filter's instance-level options.
type ClientOptions struct {
	// AttachStacktrace enables call-site stack recovery for captures without
	// a native trace.
	AttachStacktrace bool

	AllowURLs    []Pattern
	DenyURLs     []Pattern
	IgnoreErrors []Pattern

	// IgnoreInternal drops SDK-internal errors; nil defaults to enabled.
	IgnoreInternal *bool
}

// filterOptions extracts the client-level filter partial.
func (o ClientOptions) filterOptions() FilterOptions {
	return FilterOptions{
		AllowURLs:      o.AllowURLs,
		DenyURLs:       o.DenyURLs,
		IgnoreErrors:   o.IgnoreErrors,
		IgnoreInternal: o.IgnoreInternal,
	}
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	transport  Transport
	source     StackSource
	guard      ReentrancyGuard
	options    ClientOptions
	instance   FilterOptions
	scrubber   *Scrubber
	processors []EventProcessor
}

// WithTransport sets the delivery channel.
func WithTransport(t Transport) ClientOption {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithStackSource sets the stack source consulted by the classifier.
func WithStackSource(s StackSource) ClientOption {
	return func(c *clientConfig) {
		c.source = s
	}
}

// WithGuard injects the reentrancy guard shared by the wrapper and ambient
// handlers, mainly so tests can drive the decay by hand.
func WithGuard(g ReentrancyGuard) ClientOption {
	return func(c *clientConfig) {
		c.guard = g
	}
}

// WithOptions sets the client-level configuration surface.
func WithOptions(options ClientOptions) ClientOption {
	return func(c *clientConfig) {
		c.options = options
	}
}

// WithFilterOptions sets the instance-level filter partial composed with the
// client-level one.
func WithFilterOptions(instance FilterOptions) ClientOption {
	return func(c *clientConfig) {
		c.instance = instance
	}
}

// WithScrubber registers a scrubbing processor behind the inbound filter.
func WithScrubber(cfg ScrubConfig) ClientOption {
	return func(c *clientConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing enables scrubbing with production-safe defaults.
func WithDefaultScrubbing() ClientOption {
	return func(c *clientConfig) {
		c.scrubber = NewScrubber(DefaultScrubConfig())
	}
}

// WithProcessor registers an additional filter-stage processor. Processors
// run in registration order, after the inbound filter and scrubber.
func WithProcessor(p EventProcessor) ClientOption {
	return func(c *clientConfig) {
		c.processors = append(c.processors, p)
	}
}

// Client is the public capture entry point exposed to the surrounding SDK.
// Raw failures flow classifier → tagger → filter stage → transport; no
// condition originating inside the client ever propagates to the caller.
type Client struct {
	transport Transport
	source    StackSource
	guard     ReentrancyGuard
	options   ClientOptions
	chain     *ProcessorChain
	registry  *wrapRegistry

	sessionMu sync.Mutex
	session   *Session
}

// NewClient creates a Client with the given options. Without a transport,
// events are discarded.
func NewClient(opts ...ClientOption) *Client {
	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.transport == nil {
		cfg.transport = noopTransportInternal{}
	}
	if cfg.source == nil {
		cfg.source = RuntimeStackSource{}
	}
	if cfg.guard == nil {
		cfg.guard = NewGuard(defaultSuppressionWindow)
	}

	chain := &ProcessorChain{}
	chain.Register(NewInboundFilter(cfg.instance).Processor(cfg.options.filterOptions()))
	if cfg.scrubber != nil {
		chain.Register(cfg.scrubber.Processor())
	}
	for _, p := range cfg.processors {
		chain.Register(p)
	}

	return &Client{
		transport: cfg.transport,
		source:    cfg.source,
		guard:     cfg.guard,
		options:   cfg.options,
		chain:     chain,
		registry:  newWrapRegistry(),
	}
}

// Guard exposes the client's reentrancy guard for ambient handlers that
// share its suppression window.
func (c *Client) Guard() ReentrancyGuard {
	return c.guard
}

// Processors exposes the filter-stage chain for late registration.
func (c *Client) Processors() *ProcessorChain {
	return c.chain
}

// CaptureException classifies and reports a raw failure. It returns the
// event id of the dispatched event, or "" when the filter stage dropped it.
func (c *Client) CaptureException(ctx context.Context, raw any, hint *EventHint) string {
	event := EventFromException(c.source, &c.options, raw, hint)
	return c.capture(ctx, event)
}

// CaptureMessage reports a plain message at the given level (info when
// empty).
func (c *Client) CaptureMessage(ctx context.Context, text string, level Level, hint *EventHint) string {
	event := EventFromMessage(c.source, &c.options, text, level, hint)
	return c.capture(ctx, event)
}

// CaptureEvent runs an already-built event through the filter stage and
// dispatches it.
func (c *Client) CaptureEvent(event *Event) string {
	return c.capture(context.Background(), event)
}

// eventFromUnknown classifies a raw failure with the client's source and
// stack attachment setting; used by the instrumentation wrapper.
func (c *Client) eventFromUnknown(raw any) *Event {
	var opts []ClassifyOption
	if c.options.AttachStacktrace {
		opts = append(opts, WithAttachStacktrace())
	}
	return EventFromUnknownInput(c.source, raw, opts...)
}

// capture finalizes identity fields, runs the filter stage, and dispatches.
// Delivery failures are logged, never propagated or retried.
func (c *Client) capture(ctx context.Context, event *Event) string {
	if event == nil {
		return ""
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Fingerprint == "" {
		event.Fingerprint = FingerprintEvent(event)
	}

	processed := c.chain.Run(event)
	if processed == nil {
		return ""
	}

	c.countSessionError(processed)

	if err := c.transport.SendEvent(ctx, processed); err != nil {
		slog.Error("faultline: event dispatch failed", "event_id", processed.EventID, "error", err)
	}
	return processed.EventID
}

// StartSession begins a session and announces it through the transport.
func (c *Client) StartSession(ctx context.Context) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Status:    SessionOK,
	}
	c.sessionMu.Lock()
	c.session = session
	c.sessionMu.Unlock()

	c.sendSession(ctx, session)
	return session
}

// EndSession closes the current session with the given status and delivers
// the final record. Sessions with recorded errors default to crashed when no
// status is supplied.
func (c *Client) EndSession(ctx context.Context, status SessionStatus) {
	c.sessionMu.Lock()
	session := c.session
	c.session = nil
	c.sessionMu.Unlock()
	if session == nil {
		return
	}

	if status == "" {
		status = SessionExited
		if session.Errors > 0 {
			status = SessionCrashed
		}
	}
	session.Status = status
	session.Duration = time.Since(session.StartedAt).Seconds()
	c.sendSession(ctx, session)
}

func (c *Client) countSessionError(event *Event) {
	if event.Level != LevelError && event.Level != LevelFatal {
		return
	}
	c.sessionMu.Lock()
	if c.session != nil {
		c.session.Errors++
	}
	c.sessionMu.Unlock()
}

func (c *Client) sendSession(ctx context.Context, session *Session) {
	if err := c.transport.SendSession(ctx, session); err != nil {
		slog.Error("faultline: session dispatch failed", "session_id", session.ID, "error", err)
	}
}

// Flush delegates to the transport.
func (c *Client) Flush(ctx context.Context) error {
	return c.transport.Flush(ctx)
}

// Close delegates to the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}
