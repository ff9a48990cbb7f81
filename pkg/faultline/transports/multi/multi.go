// Package multi provides a transport that fans out to multiple transports.
// All transports receive all items; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

// multiTransport fans out to multiple transports.
type multiTransport struct {
	transports []faultline.Transport
}

// New creates a transport that delivers to every given transport. Errors are
// aggregated via errors.Join; every transport is called even if some fail.
func New(transports ...faultline.Transport) faultline.Transport {
	return &multiTransport{transports: transports}
}

func (t *multiTransport) SendEvent(ctx context.Context, event *faultline.Event) error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.SendEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *multiTransport) SendSession(ctx context.Context, session *faultline.Session) error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.SendSession(ctx, session); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *multiTransport) Flush(ctx context.Context) error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *multiTransport) Close() error {
	var errs []error
	for _, tr := range t.transports {
		if err := tr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
