// Package noop provides a transport that discards everything.
// Useful for tests and for disabling delivery without touching call sites.
package noop

import (
	"context"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

// noopTransport discards all events and sessions.
type noopTransport struct{}

// New creates a transport that silently discards everything it receives.
func New() faultline.Transport {
	return noopTransport{}
}

func (noopTransport) SendEvent(ctx context.Context, event *faultline.Event) error {
	return nil
}

func (noopTransport) SendSession(ctx context.Context, session *faultline.Session) error {
	return nil
}

func (noopTransport) Flush(ctx context.Context) error {
	return nil
}

func (noopTransport) Close() error {
	return nil
}
