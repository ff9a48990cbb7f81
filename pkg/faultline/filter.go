// filter.go implements the processor chain and the canonical inbound filter.

package faultline

import (
	"fmt"
	"log/slog"
	"regexp"
	"sync"
)

// EventProcessor inspects an event before dispatch. It returns the event
// (possibly rewritten) to continue the chain, or nil to drop it.
type EventProcessor func(event *Event) *Event

// ProcessorChain runs registered processors in registration order. A nil
// result drops the event and stops the chain.
type ProcessorChain struct {
	mu    sync.Mutex
	procs []EventProcessor
}

// Register appends a processor to the chain.
func (c *ProcessorChain) Register(p EventProcessor) {
	if p == nil {
		return
	}
	c.mu.Lock()
	c.procs = append(c.procs, p)
	c.mu.Unlock()
}

// Run passes the event through every registered processor in order.
func (c *ProcessorChain) Run(event *Event) *Event {
	c.mu.Lock()
	procs := make([]EventProcessor, len(c.procs))
	copy(procs, c.procs)
	c.mu.Unlock()

	for _, p := range procs {
		event = p(event)
		if event == nil {
			return nil
		}
	}
	return event
}

// FilterOptions configures the inbound filter. An instance-level partial and
// a client-level partial compose into the effective options.
type FilterOptions struct {
	// AllowURLs keeps only events whose origin URL matches one of the
	// patterns, when any are configured.
	AllowURLs []Pattern

	// DenyURLs drops events whose origin URL matches any pattern. Deny is
	// evaluated before allow.
	DenyURLs []Pattern

	// IgnoreErrors drops events whose message matches any pattern. String
	// patterns compare exactly.
	IgnoreErrors []Pattern

	// IgnoreInternal drops events raised by the SDK itself. Pointer
	// distinguishes "not set" (defaults to enabled) from explicit false.
	IgnoreInternal *bool
}

// builtinIgnorePatterns cover the opaque cross-origin failure message some
// hosts substitute for real errors. They are always appended to the effective
// ignore list, even when the caller supplies an empty one; this is documented
// default behavior.
var builtinIgnorePatterns = []Pattern{
	Regex(regexp.MustCompile(`^Script error\.?$`)),
	Regex(regexp.MustCompile(`^Javascript error: Script error\.? on line 0$`)),
}

// mergeFilterOptions composes the effective options: list-valued options are
// the union of instance and client lists (duplicates permitted), and
// IgnoreInternal takes the instance value when explicitly set.
func mergeFilterOptions(instance, client FilterOptions) FilterOptions {
	merged := FilterOptions{
		AllowURLs: concatPatterns(instance.AllowURLs, client.AllowURLs),
		DenyURLs:  concatPatterns(instance.DenyURLs, client.DenyURLs),
	}
	merged.IgnoreErrors = concatPatterns(instance.IgnoreErrors, client.IgnoreErrors)
	merged.IgnoreErrors = append(merged.IgnoreErrors, builtinIgnorePatterns...)

	switch {
	case instance.IgnoreInternal != nil:
		merged.IgnoreInternal = instance.IgnoreInternal
	case client.IgnoreInternal != nil:
		merged.IgnoreInternal = client.IgnoreInternal
	default:
		merged.IgnoreInternal = boolp(true)
	}
	return merged
}

func concatPatterns(a, b []Pattern) []Pattern {
	if len(a)+len(b) == 0 {
		return nil
	}
	out := make([]Pattern, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// InboundFilter is the canonical filter-stage processor. It holds the
// instance-level options; the client-level partial is supplied when the
// processor is built.
type InboundFilter struct {
	instance FilterOptions
}

// NewInboundFilter creates an inbound filter with instance-level options.
func NewInboundFilter(instance FilterOptions) *InboundFilter {
	return &InboundFilter{instance: instance}
}

// Processor returns the chain processor evaluating the composed options.
func (f *InboundFilter) Processor(client FilterOptions) EventProcessor {
	opts := mergeFilterOptions(f.instance, client)
	return func(event *Event) *Event {
		if event == nil {
			return nil
		}
		if reason := dropReason(event, opts); reason != "" {
			slog.Debug("faultline: event dropped by inbound filter",
				"event_id", event.EventID, "reason", reason)
			return nil
		}
		return event
	}
}

// dropReason evaluates the fixed predicate order; the first true predicate
// wins. Each predicate extracts defensively: a panic during extraction yields
// the predicate's safe default (do not drop) and never aborts the chain.
func dropReason(event *Event, opts FilterOptions) string {
	if *opts.IgnoreInternal && safeBool(func() bool { return isInternalEvent(event) }) {
		return "internal"
	}
	if safeBool(func() bool { return messageIgnored(event, opts.IgnoreErrors) }) {
		return "ignore_errors"
	}
	if safeBool(func() bool { return urlDenied(event, opts.DenyURLs) }) {
		return "deny_urls"
	}
	if safeBool(func() bool { return urlNotAllowed(event, opts.AllowURLs) }) {
		return "allow_urls"
	}
	return ""
}

// safeBool runs a predicate, converting a panic into the safe default.
func safeBool(fn func() bool) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("faultline: filter predicate failed, keeping event", "panic", fmt.Sprint(r))
			result = false
		}
	}()
	return fn()
}

// isInternalEvent reports whether the canonical exception value carries the
// reserved internal-error marker.
func isInternalEvent(event *Event) bool {
	value := event.exceptionValue()
	return value != nil && value.Type == internalErrorType
}

// messageIgnored checks every candidate message against the ignore list.
// String patterns compare exactly here.
func messageIgnored(event *Event, patterns []Pattern) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, msg := range possibleMessages(event) {
		if matchesAny(msg, patterns, true) {
			return true
		}
	}
	return false
}

// possibleMessages collects the texts an ignore pattern can match: the event
// message, the canonical exception value, and the "type: value" rendering.
func possibleMessages(event *Event) []string {
	var msgs []string
	if event.Message != "" {
		msgs = append(msgs, event.Message)
	}
	if value := event.exceptionValue(); value != nil && value.Value != "" {
		msgs = append(msgs, value.Value)
		if value.Type != "" {
			msgs = append(msgs, value.Type+": "+value.Value)
		}
	}
	return msgs
}

// urlDenied reports whether the origin URL matches any deny pattern. String
// patterns compare by substring.
func urlDenied(event *Event, patterns []Pattern) bool {
	if len(patterns) == 0 {
		return false
	}
	url := originURL(event)
	return url != "" && matchesAny(url, patterns, false)
}

// urlNotAllowed drops events whose origin URL matches none of the configured
// allow patterns. An event with no resolvable origin is kept.
func urlNotAllowed(event *Event, patterns []Pattern) bool {
	if len(patterns) == 0 {
		return false
	}
	url := originURL(event)
	return url != "" && !matchesAny(url, patterns, false)
}

// originURL resolves the canonical origin of an event: the filename of the
// last stack frame, taken from the event-level trace when present, otherwise
// from the canonical exception value's own trace. Frames without a usable
// filename are skipped walking backwards.
func originURL(event *Event) string {
	frames := eventFrames(event)
	for i := len(frames) - 1; i >= 0; i-- {
		switch frames[i].Filename {
		case "", "<anonymous>", "[native code]":
			continue
		default:
			return frames[i].Filename
		}
	}
	return ""
}

func eventFrames(event *Event) []StackFrame {
	if event.Stacktrace != nil && len(event.Stacktrace.Frames) > 0 {
		return event.Stacktrace.Frames
	}
	if value := event.exceptionValue(); value != nil && value.Stacktrace != nil {
		return value.Stacktrace.Frames
	}
	return nil
}
