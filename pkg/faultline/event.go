// event.go defines the canonical event data structures for faultline.

package faultline

import "time"

// Level indicates the severity of an event.
type Level string

const (
	// LevelDebug is diagnostic-only output.
	LevelDebug Level = "debug"

	// LevelInfo is the default level for plain message captures.
	LevelInfo Level = "info"

	// LevelWarning indicates a non-fatal issue that may need attention.
	LevelWarning Level = "warning"

	// LevelError indicates a failure that caused an operation to fail.
	LevelError Level = "error"

	// LevelFatal indicates an unrecoverable failure such as a panic that
	// reached an ambient handler.
	LevelFatal Level = "fatal"
)

// internalErrorType is the reserved exception type marker for failures raised
// by the SDK itself. The inbound filter drops events carrying it unless
// IgnoreInternal is disabled.
const internalErrorType = "FaultlineError"

// StackFrame is one entry of a stack trace. Frame 0 of a trace is nearest the
// throw site; the last frame is nearest the program entry point.
type StackFrame struct {
	// Function is the fully qualified function name, when known.
	Function string `json:"function,omitempty"`

	// Filename is the file the frame points into. The last frame's filename
	// is the canonical origin URL used by URL-based filtering.
	Filename string `json:"filename,omitempty"`

	// Lineno is the 1-based line number, 0 when unknown.
	Lineno int `json:"lineno,omitempty"`

	// Colno is the 1-based column number, 0 when unknown.
	Colno int `json:"colno,omitempty"`
}

// Stacktrace is an ordered sequence of stack frames.
type Stacktrace struct {
	Frames []StackFrame `json:"frames,omitempty"`
}

// Mechanism describes how an event was captured. Once a field is set, later
// tagger calls must not overwrite it (first writer wins, per field).
type Mechanism struct {
	// Type names the capture path ("generic", "instrument", "ambient", ...).
	Type string `json:"type,omitempty"`

	// Handled reports whether user code observed the failure before the SDK.
	// Pointer distinguishes "not set" from false.
	Handled *bool `json:"handled,omitempty"`

	// Synthetic is true when no real failure object existed and the SDK
	// fabricated the exception shape.
	Synthetic *bool `json:"synthetic,omitempty"`

	// Data carries free-form capture metadata.
	Data map[string]any `json:"data,omitempty"`
}

// ExceptionValue is one classified failure entry within an event. The core
// produces at most one per raw failure; index 0 is the canonical slot all
// taggers read and write.
type ExceptionValue struct {
	Type       string      `json:"type,omitempty"`
	Value      string      `json:"value,omitempty"`
	Mechanism  *Mechanism  `json:"mechanism,omitempty"`
	Stacktrace *Stacktrace `json:"stacktrace,omitempty"`
}

// Exception holds the ordered exception values of an event.
type Exception struct {
	Values []ExceptionValue `json:"values,omitempty"`
}

// Event is the canonical reportable record describing one captured failure or
// message. After classification completes, exactly one of Message or a
// non-empty Exception.Values is populated.
type Event struct {
	// EventID is a unique identifier for this event (UUID).
	EventID string `json:"event_id,omitempty"`

	// Timestamp is when the event was captured.
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Level is the event severity.
	Level Level `json:"level,omitempty"`

	// Message is the plain text of a message-only capture.
	Message string `json:"message,omitempty"`

	// Exception carries the classified failure, when one exists.
	Exception *Exception `json:"exception,omitempty"`

	// Stacktrace is an event-level trace, populated for message captures
	// when call-site recovery is enabled.
	Stacktrace *Stacktrace `json:"stacktrace,omitempty"`

	// Fingerprint is a stable hash for grouping similar events.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Extra contains arbitrary diagnostic context.
	Extra map[string]any `json:"extra,omitempty"`
}

// exceptionValue returns a pointer to the canonical exception slot, or nil
// when the event carries no exception values.
func (e *Event) exceptionValue() *ExceptionValue {
	if e == nil || e.Exception == nil || len(e.Exception.Values) == 0 {
		return nil
	}
	return &e.Exception.Values[0]
}

// Clone returns a deep enough copy of the event for processors that rewrite
// it: the exception values, frames, mechanism data, and extra map are copied;
// scalar fields are value-copied.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	if e.Exception != nil {
		values := make([]ExceptionValue, len(e.Exception.Values))
		copy(values, e.Exception.Values)
		for i := range values {
			values[i].Mechanism = values[i].Mechanism.clone()
			values[i].Stacktrace = values[i].Stacktrace.clone()
		}
		out.Exception = &Exception{Values: values}
	}
	out.Stacktrace = e.Stacktrace.clone()
	if e.Extra != nil {
		extra := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}
	return &out
}

func (m *Mechanism) clone() *Mechanism {
	if m == nil {
		return nil
	}
	out := *m
	if m.Data != nil {
		data := make(map[string]any, len(m.Data))
		for k, v := range m.Data {
			data[k] = v
		}
		out.Data = data
	}
	return &out
}

func (s *Stacktrace) clone() *Stacktrace {
	if s == nil {
		return nil
	}
	frames := make([]StackFrame, len(s.Frames))
	copy(frames, s.Frames)
	return &Stacktrace{Frames: frames}
}
