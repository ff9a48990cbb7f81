// classify.go turns arbitrary captured values into canonical events.

package faultline

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// failureKind is the closed set of shapes a raw failure can classify as.
// Discrimination is structural; host object tags are never consulted.
type failureKind int

const (
	// kindWrappedEvent is an event-like envelope carrying an inner failure.
	kindWrappedEvent failureKind = iota

	// kindNativeError is a value satisfying the error interface.
	kindNativeError

	// kindPlainRecord is a structured non-error value (map, struct, slice).
	kindPlainRecord

	// kindOther is anything else; it is coerced to its string form.
	kindOther
)

// EventHint carries optional capture context supplied by the caller: a
// pre-assigned event id and/or a synthetic failure used for call-site
// recovery of pure string captures.
type EventHint struct {
	EventID   string
	Synthetic error

	// Original is the raw value the capture started from, recorded for
	// downstream consumers that want the unclassified input.
	Original any
}

// ClassifyOption configures EventFromUnknownInput.
type ClassifyOption func(*classifyConfig)

type classifyConfig struct {
	attachStacktrace bool
	rejection        bool
	synthetic        error
}

// WithAttachStacktrace enables call-site stack recovery for captures that
// have no native trace of their own.
func WithAttachStacktrace() ClassifyOption {
	return func(c *classifyConfig) {
		c.attachStacktrace = true
	}
}

// WithRejection marks the capture as originating from a rejected
// asynchronous operation; the flag is recorded as mechanism data.
func WithRejection() ClassifyOption {
	return func(c *classifyConfig) {
		c.rejection = true
	}
}

// WithSyntheticTrace supplies a synthetic failure whose recorded call site is
// used when a stack must be attached to a non-error capture.
func WithSyntheticTrace(synthetic error) ClassifyOption {
	return func(c *classifyConfig) {
		c.synthetic = synthetic
	}
}

// classifyFailure decides the shape of a raw failure. The order of the checks
// mirrors the classification order in EventFromUnknownInput: envelopes are
// recognized before errors so a boxed failure is never misread as a record.
func classifyFailure(v any) failureKind {
	if v == nil {
		return kindOther
	}
	if _, isErr := v.(error); !isErr && innerFailure(v) != nil {
		return kindWrappedEvent
	}
	if _, ok := v.(error); ok {
		return kindNativeError
	}
	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		return kindPlainRecord
	}
	return kindOther
}

// innerFailure extracts the failure boxed inside an event-like envelope:
// an Unwrap carrier, a map with an "error" entry, or a struct exposing an
// exported error-typed field. Returns nil when no inner failure exists.
func innerFailure(v any) error {
	if carrier, ok := v.(interface{ Unwrap() error }); ok {
		if err := carrier.Unwrap(); err != nil {
			return err
		}
	}
	if m, ok := v.(map[string]any); ok {
		if err, ok := m["error"].(error); ok {
			return err
		}
		return nil
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	errType := reflect.TypeFor[error]()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		if !field.CanInterface() || !field.Type().Implements(errType) {
			continue
		}
		if err, ok := field.Interface().(error); ok && err != nil {
			return err
		}
	}
	return nil
}

// EventFromUnknownInput normalizes a raw failure of unknown shape into a
// canonical event. The decision order is fixed: wrapped envelopes are
// unwrapped first (hosts routinely box real failures), native errors are
// classified from their own trace, structured values are serialized
// deterministically to preserve field-based grouping, and everything else is
// coerced to its string form.
func EventFromUnknownInput(source StackSource, raw any, opts ...ClassifyOption) *Event {
	cfg := classifyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if source == nil {
		source = RuntimeStackSource{}
	}

	switch classifyFailure(raw) {
	case kindWrappedEvent:
		return eventFromError(source, innerFailure(raw))
	case kindNativeError:
		return eventFromError(source, raw.(error))
	case kindPlainRecord:
		event := eventFromRecord(source, raw, cfg)
		AddExceptionMechanism(event, &Mechanism{Synthetic: boolp(true)})
		if cfg.rejection {
			AddExceptionMechanism(event, &Mechanism{Data: map[string]any{"rejection": true}})
		}
		return event
	default:
		text := fmt.Sprint(raw)
		event := EventFromString(source, text, cfg.synthetic, cfg.attachStacktrace)
		// Force a well-formed, if degenerate, exception shape so downstream
		// consumers always find a canonical slot.
		AddExceptionTypeValue(event, text, "")
		AddExceptionMechanism(event, &Mechanism{Synthetic: boolp(true)})
		if cfg.rejection {
			AddExceptionMechanism(event, &Mechanism{Data: map[string]any{"rejection": true}})
		}
		return event
	}
}

// eventFromError builds an event directly from a native error: frames come
// from the stack source, type and value from the error itself. No synthetic
// marking; this is a real capture.
func eventFromError(source StackSource, err error) *Event {
	value := ExceptionValue{
		Type:  errorTypeName(err),
		Value: err.Error(),
	}
	if frames := source.Frames(err); len(frames) > 0 {
		value.Stacktrace = &Stacktrace{Frames: frames}
	}
	return &Event{Exception: &Exception{Values: []ExceptionValue{value}}}
}

// eventFromRecord serializes a structured non-error value. encoding/json
// emits map keys in sorted order, so two structurally identical records yield
// the same grouping key.
func eventFromRecord(source StackSource, raw any, cfg classifyConfig) *Event {
	serialized, err := json.Marshal(raw)
	if err != nil {
		serialized = []byte(fmt.Sprint(raw))
	}
	value := ExceptionValue{
		Type:  reflect.TypeOf(raw).String(),
		Value: string(serialized),
	}
	if cfg.attachStacktrace && cfg.synthetic != nil {
		if frames := source.Frames(cfg.synthetic); len(frames) > 0 {
			value.Stacktrace = &Stacktrace{Frames: frames}
		}
	}
	return &Event{Exception: &Exception{Values: []ExceptionValue{value}}}
}

// errorTypeName reports the concrete type of an error for the exception slot.
func errorTypeName(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.Name()
}

// EventFromException classifies a raw failure into an event ready for the
// filter stage: the generic handled mechanism is stamped (merge semantics:
// fields already set by the classifier are kept), the level is forced to
// error, and a pre-assigned event id from the hint is copied in.
// Classification cannot fail.
func EventFromException(source StackSource, options *ClientOptions, raw any, hint *EventHint) *Event {
	var opts []ClassifyOption
	if options != nil && options.AttachStacktrace {
		opts = append(opts, WithAttachStacktrace())
	}
	if hint != nil && hint.Synthetic != nil {
		opts = append(opts, WithSyntheticTrace(hint.Synthetic))
	}
	event := EventFromUnknownInput(source, raw, opts...)
	AddExceptionMechanism(event, &Mechanism{Handled: boolp(true), Type: "generic"})
	event.Level = LevelError
	if hint != nil && hint.EventID != "" {
		event.EventID = hint.EventID
	}
	return event
}

// EventFromMessage builds a message-only event without running the
// classifier. The level defaults to info; a synthetic failure supplied via
// the hint recovers call-site context when stack attachment is enabled.
func EventFromMessage(source StackSource, options *ClientOptions, text string, level Level, hint *EventHint) *Event {
	if level == "" {
		level = LevelInfo
	}
	var synthetic error
	if hint != nil {
		synthetic = hint.Synthetic
	}
	attach := options != nil && options.AttachStacktrace
	event := EventFromString(source, text, synthetic, attach)
	event.Level = level
	if hint != nil && hint.EventID != "" {
		event.EventID = hint.EventID
	}
	return event
}

// EventFromString is the pure message builder. A stack is computed and
// attached only when attachStacktrace is set AND a synthetic failure was
// supplied; the common plain-message path skips stack computation entirely.
func EventFromString(source StackSource, text string, synthetic error, attachStacktrace bool) *Event {
	event := &Event{Message: text}
	if !attachStacktrace || synthetic == nil {
		return event
	}
	if source == nil {
		source = RuntimeStackSource{}
	}
	if frames := source.Frames(synthetic); len(frames) > 0 {
		event.Stacktrace = &Stacktrace{Frames: frames}
	}
	return event
}
