// recover.go provides the ambient failure hook for code outside the
// instrumentation wrapper: HTTP handlers, goroutines, deferred cleanups.

package faultline

import (
	"context"
	"log/slog"
)

// Recover captures a panic, reports it through the client, and returns the
// recovered value. It does not re-panic.
//
// Recover is the ambient observer of the reentrancy guard: when the
// instrumentation wrapper already reported the failure in the current turn,
// the suppression counter is positive and Recover skips reporting, so one
// underlying failure yields exactly one event.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer faultline.Recover(ctx, client)
//	    // code that might panic
//	}
func Recover(ctx context.Context, client *Client) any {
	r := recover()
	if r == nil {
		return nil
	}
	if client == nil {
		return r
	}
	if client.guard.Suppressed() {
		slog.Debug("faultline: ambient capture suppressed, failure already reported")
		return r
	}

	event := client.eventFromUnknown(r)
	AddExceptionMechanism(event, &Mechanism{Handled: boolp(false), Type: "ambient"})
	event.Level = LevelFatal
	client.capture(ctx, event)
	return r
}
