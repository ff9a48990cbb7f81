// session.go defines the minimal session record handed to transports.

package faultline

import "time"

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	// SessionOK is a healthy, running session.
	SessionOK SessionStatus = "ok"

	// SessionExited is a session that ended normally.
	SessionExited SessionStatus = "exited"

	// SessionCrashed is a session ended by an unhandled failure.
	SessionCrashed SessionStatus = "crashed"
)

// Session summarizes one run of the instrumented application for release
// health. It is delivered through the same transport as events.
type Session struct {
	ID        string        `json:"sid"`
	StartedAt time.Time     `json:"started"`
	Status    SessionStatus `json:"status"`
	Errors    int           `json:"errors"`
	Duration  float64       `json:"duration,omitempty"`
}
