// stacksource.go converts native failures into ordered stack frames.

package faultline

import (
	"runtime"
	"strings"
)

// StackSource converts a native failure into an ordered sequence of stack
// frames. Frame 0 is nearest the throw site; the last frame is nearest the
// program entry point.
type StackSource interface {
	Frames(failure any) []StackFrame
}

// pcCarrier is satisfied by failures that recorded program counters at the
// point they were created.
type pcCarrier interface {
	Callers() []uintptr
}

// SyntheticError records the program counters of its creation site. It exists
// so call-site context can be recovered for captures that have no real
// failure object, such as plain string messages.
type SyntheticError struct {
	pcs []uintptr
}

// NewSyntheticError captures the caller's stack. skip counts additional
// frames to omit above the caller, for helpers that create the error on
// behalf of their own caller.
func NewSyntheticError(skip int) *SyntheticError {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	return &SyntheticError{pcs: pcs[:n]}
}

// Error satisfies the error interface; the text is a placeholder and never
// surfaces in events.
func (e *SyntheticError) Error() string {
	return "synthetic failure"
}

// Callers returns the recorded program counters.
func (e *SyntheticError) Callers() []uintptr {
	return e.pcs
}

// RuntimeStackSource is the default StackSource. Failures that carry program
// counters are symbolized directly; anything else is attributed to the
// current goroutine's stack at the point of capture.
type RuntimeStackSource struct{}

const sdkFunctionPrefix = "github.com/faultline-dev/faultline/pkg/faultline"

// Frames implements StackSource.
func (RuntimeStackSource) Frames(failure any) []StackFrame {
	if carrier, ok := failure.(pcCarrier); ok {
		return framesFromPCs(carrier.Callers())
	}
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	return framesFromPCs(pcs[:n])
}

// framesFromPCs symbolizes program counters, dropping runtime internals and
// the SDK's own capture machinery.
func framesFromPCs(pcs []uintptr) []StackFrame {
	if len(pcs) == 0 {
		return nil
	}
	var out []StackFrame
	iter := runtime.CallersFrames(pcs)
	for {
		frame, more := iter.Next()
		if keepFrame(frame) {
			out = append(out, StackFrame{
				Function: frame.Function,
				Filename: frame.File,
				Lineno:   frame.Line,
			})
		}
		if !more {
			break
		}
	}
	return out
}

// keepFrame filters out runtime plumbing and non-test SDK frames so traces
// start at user code.
func keepFrame(frame runtime.Frame) bool {
	if frame.Function == "" {
		return false
	}
	if strings.HasPrefix(frame.Function, "runtime.") {
		return false
	}
	if strings.HasPrefix(frame.Function, sdkFunctionPrefix) && !strings.HasSuffix(frame.File, "_test.go") {
		return false
	}
	return true
}
