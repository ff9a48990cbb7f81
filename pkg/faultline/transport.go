// transport.go defines the Transport interface for event delivery.

package faultline

import "context"

// Transport is the delivery channel for filtered events and sessions. It is
// fire-and-forget from the core's perspective: the client logs delivery
// failures and never retries. Implementations must be safe for concurrent
// use.
type Transport interface {
	// SendEvent delivers one event. Called only after the filter stage has
	// passed it; the event is immutable from this point on.
	SendEvent(ctx context.Context, event *Event) error

	// SendSession delivers one session record.
	SendSession(ctx context.Context, session *Session) error

	// Flush ensures any buffered items are delivered. Synchronous transports
	// may treat this as a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the transport. After Close, sends
	// should return errors.
	Close() error
}

// noopTransportInternal is the default transport, kept internal to avoid an
// import cycle with the transports packages.
type noopTransportInternal struct{}

func (noopTransportInternal) SendEvent(ctx context.Context, event *Event) error {
	return nil
}

func (noopTransportInternal) SendSession(ctx context.Context, session *Session) error {
	return nil
}

func (noopTransportInternal) Flush(ctx context.Context) error {
	return nil
}

func (noopTransportInternal) Close() error {
	return nil
}
