package faultline

import (
	"errors"
	"fmt"
	"testing"
)

// boxedFailure is an event-like envelope exposing its inner failure through
// Unwrap without itself being an error.
type boxedFailure struct {
	inner error
}

func (b boxedFailure) Unwrap() error { return b.inner }

// reportPayload carries a failure in an exported field.
type reportPayload struct {
	Code int
	Err  error
}

func canonicalValue(t *testing.T, event *Event) ExceptionValue {
	t.Helper()
	if event == nil || event.Exception == nil || len(event.Exception.Values) == 0 {
		t.Fatal("event has no exception values")
	}
	return event.Exception.Values[0]
}

func TestClassifyFailure_Order(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want failureKind
	}{
		{"native error", errors.New("kaput"), kindNativeError},
		{"unwrap carrier", boxedFailure{inner: errors.New("kaput")}, kindWrappedEvent},
		{"map with error entry", map[string]any{"error": errors.New("kaput")}, kindWrappedEvent},
		{"struct with error field", reportPayload{Code: 7, Err: errors.New("kaput")}, kindWrappedEvent},
		{"plain map", map[string]any{"code": 500}, kindPlainRecord},
		{"plain struct", struct{ Code int }{Code: 500}, kindPlainRecord},
		{"slice", []int{1, 2, 3}, kindPlainRecord},
		{"string", "kaput", kindOther},
		{"number", 42, kindOther},
		{"nil", nil, kindOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyFailure(tc.raw); got != tc.want {
				t.Errorf("classifyFailure(%v) = %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}

func TestEventFromUnknownInput_NativeError(t *testing.T) {
	source := &fakeStackSource{frames: []StackFrame{
		{Function: "app.handler", Filename: "https://host/app.js", Lineno: 42},
		{Function: "app.main", Filename: "https://host/main.js", Lineno: 3},
	}}

	event := EventFromUnknownInput(source, errors.New("kaput"))

	value := canonicalValue(t, event)
	if value.Type != "errors.errorString" {
		t.Errorf("Type = %q, want errors.errorString", value.Type)
	}
	if value.Value != "kaput" {
		t.Errorf("Value = %q, want kaput", value.Value)
	}
	if value.Stacktrace == nil {
		t.Fatal("native error capture should carry frames from the stack source")
	}
	if len(value.Stacktrace.Frames) != 2 || value.Stacktrace.Frames[0].Function != "app.handler" {
		t.Errorf("frames do not match the source: %+v", value.Stacktrace.Frames)
	}
	if value.Mechanism != nil && value.Mechanism.Synthetic != nil && *value.Mechanism.Synthetic {
		t.Error("native error capture must not be marked synthetic")
	}
}

func TestEventFromUnknownInput_UnwrapsEnvelopes(t *testing.T) {
	inner := errors.New("the real failure")
	cases := []struct {
		name string
		raw  any
	}{
		{"unwrap carrier", boxedFailure{inner: inner}},
		{"map with error entry", map[string]any{"error": inner, "detail": "extra"}},
		{"struct with error field", reportPayload{Code: 7, Err: inner}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := EventFromUnknownInput(&fakeStackSource{}, tc.raw)
			value := canonicalValue(t, event)
			if value.Value != "the real failure" {
				t.Errorf("Value = %q, want the inner failure text", value.Value)
			}
		})
	}
}

func TestEventFromUnknownInput_PlainRecord(t *testing.T) {
	event := EventFromUnknownInput(&fakeStackSource{}, map[string]any{"b": 1, "a": 2})

	value := canonicalValue(t, event)
	if value.Value != `{"a":2,"b":1}` {
		t.Errorf("Value = %q, want deterministic key-sorted serialization", value.Value)
	}
	if value.Mechanism == nil || value.Mechanism.Synthetic == nil || !*value.Mechanism.Synthetic {
		t.Error("record capture must be marked synthetic")
	}
	if value.Stacktrace != nil {
		t.Error("record capture without attach must not carry a trace")
	}
	if event.Message != "" {
		t.Errorf("record capture should not set a message, got %q", event.Message)
	}
}

func TestEventFromUnknownInput_RecordGroupingIsDeterministic(t *testing.T) {
	source := &fakeStackSource{}
	a := EventFromUnknownInput(source, map[string]any{"code": 500, "route": "/api"})
	b := EventFromUnknownInput(source, map[string]any{"route": "/api", "code": 500})

	if FingerprintEvent(a) != FingerprintEvent(b) {
		t.Error("structurally identical records must produce the same fingerprint")
	}
}

func TestEventFromUnknownInput_RecordWithAttachedTrace(t *testing.T) {
	source := &fakeStackSource{frames: []StackFrame{{Function: "app.report"}}}
	event := EventFromUnknownInput(source, map[string]any{"code": 500},
		WithAttachStacktrace(), WithSyntheticTrace(NewSyntheticError(0)))

	value := canonicalValue(t, event)
	if value.Stacktrace == nil || len(value.Stacktrace.Frames) != 1 {
		t.Fatal("record capture with attach and synthetic trace should carry frames")
	}
}

func TestEventFromUnknownInput_StringifyFallback(t *testing.T) {
	event := EventFromUnknownInput(&fakeStackSource{}, 42)

	if event.Message != "42" {
		t.Errorf("Message = %q, want 42", event.Message)
	}
	value := canonicalValue(t, event)
	if value.Value != "42" || value.Type != "" {
		t.Errorf("forced exception slot = {%q %q}, want {42 \"\"}", value.Type, value.Value)
	}
	if value.Mechanism == nil || value.Mechanism.Synthetic == nil || !*value.Mechanism.Synthetic {
		t.Error("stringified capture must be marked synthetic")
	}
}

func TestEventFromUnknownInput_NilInput(t *testing.T) {
	event := EventFromUnknownInput(&fakeStackSource{}, nil)
	if event.Message != "<nil>" {
		t.Errorf("Message = %q, want <nil>", event.Message)
	}
}

func TestEventFromUnknownInput_RejectionFlag(t *testing.T) {
	event := EventFromUnknownInput(&fakeStackSource{}, map[string]any{"code": 1}, WithRejection())
	value := canonicalValue(t, event)
	if value.Mechanism == nil || value.Mechanism.Data["rejection"] != true {
		t.Error("rejection flag should be recorded as mechanism data")
	}
}

func TestEventFromException_StampsGenericMechanism(t *testing.T) {
	event := EventFromException(&fakeStackSource{}, nil, errors.New("kaput"), nil)

	value := canonicalValue(t, event)
	if value.Mechanism == nil {
		t.Fatal("mechanism missing")
	}
	if value.Mechanism.Type != "generic" {
		t.Errorf("mechanism type = %q, want generic", value.Mechanism.Type)
	}
	if value.Mechanism.Handled == nil || !*value.Mechanism.Handled {
		t.Error("handled should be true for explicit captures")
	}
	if event.Level != LevelError {
		t.Errorf("Level = %q, want error", event.Level)
	}
}

func TestEventFromException_MergePreservesClassifierFields(t *testing.T) {
	// A record capture sets synthetic before the generic stamp arrives; both
	// must survive.
	event := EventFromException(&fakeStackSource{}, nil, map[string]any{"code": 1}, nil)

	m := canonicalValue(t, event).Mechanism
	if m == nil {
		t.Fatal("mechanism missing")
	}
	if m.Synthetic == nil || !*m.Synthetic {
		t.Error("classifier's synthetic marking was lost")
	}
	if m.Type != "generic" || m.Handled == nil || !*m.Handled {
		t.Error("generic handled stamp was not merged in")
	}
}

func TestEventFromMessage_Levels(t *testing.T) {
	event := EventFromMessage(&fakeStackSource{}, nil, "hello", "", nil)
	if event.Level != LevelInfo {
		t.Errorf("default level = %q, want info", event.Level)
	}

	event = EventFromMessage(&fakeStackSource{}, nil, "hello", LevelWarning, nil)
	if event.Level != LevelWarning {
		t.Errorf("level = %q, want warning", event.Level)
	}
}

func TestEventFromString_StackOnlyWithSynthetic(t *testing.T) {
	source := &fakeStackSource{frames: []StackFrame{{Function: "app.log"}}}

	if event := EventFromString(source, "hello", nil, true); event.Stacktrace != nil {
		t.Error("no synthetic failure: stack must not be attached")
	}
	if event := EventFromString(source, "hello", NewSyntheticError(0), false); event.Stacktrace != nil {
		t.Error("attach disabled: stack must not be attached")
	}
	if event := EventFromString(source, "hello", NewSyntheticError(0), true); event.Stacktrace == nil {
		t.Error("attach enabled with synthetic failure: stack should be attached")
	}
	if source.calls.Load() != 1 {
		t.Errorf("stack source consulted %d times, want exactly 1", source.calls.Load())
	}
}

func TestErrorTypeName(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errors.New("x"), "errors.errorString"},
		{fmt.Errorf("wrapped: %w", errors.New("x")), "fmt.wrapError"},
		{&SyntheticError{}, "github.com/faultline-dev/faultline/pkg/faultline.SyntheticError"},
	}
	for _, tc := range cases {
		if got := errorTypeName(tc.err); got != tc.want {
			t.Errorf("errorTypeName(%T) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
