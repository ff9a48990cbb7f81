// guard.go holds the process-wide reentrancy suppression counter.

package faultline

import (
	"sync/atomic"
	"time"
)

// ReentrancyGuard prevents duplicate reporting when one failure is observed
// by multiple capture paths. The instrumentation wrapper calls Suppress after
// reporting; an ambient handler observing the same failure shortly after must
// check Suppressed and skip while it is positive.
//
// The guard is an explicit counter: Suppress increments it and schedules the
// matching Decrement, Suppressed reads it. Implementations are injectable so
// tests can drive the decay by hand.
type ReentrancyGuard interface {
	// Suppress increments the counter and schedules its decrement at the end
	// of the suppression window. Overlapping suppressions stack.
	Suppress()

	// Decrement undoes one Suppress. The counter never goes below zero.
	Decrement()

	// Suppressed reports whether the counter is positive.
	Suppressed() bool
}

// defaultSuppressionWindow approximates "the end of the current cooperative
// turn": long enough for an ambient handler fired by the same failure to
// observe the counter, short enough not to mask unrelated failures.
const defaultSuppressionWindow = 100 * time.Millisecond

// timedGuard is the default guard: an atomic counter whose decrements are
// scheduled on a timer.
type timedGuard struct {
	count  atomic.Int64
	window time.Duration
}

// NewGuard creates a guard whose suppressions decay after the given window.
// A non-positive window uses the default.
func NewGuard(window time.Duration) ReentrancyGuard {
	if window <= 0 {
		window = defaultSuppressionWindow
	}
	return &timedGuard{window: window}
}

func (g *timedGuard) Suppress() {
	g.count.Add(1)
	time.AfterFunc(g.window, g.Decrement)
}

func (g *timedGuard) Decrement() {
	for {
		n := g.count.Load()
		if n <= 0 {
			return
		}
		if g.count.CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (g *timedGuard) Suppressed() bool {
	return g.count.Load() > 0
}
