// wrap.go implements the reentrancy-safe instrumentation wrapper. Wrapping is
// idempotent: an explicit side table maps callable identity to its wrapped
// form, so nested wrap calls never stack wrappers.

package faultline

import (
	"reflect"
	"runtime"
	"sync"
)

// Callable is the unit the instrumentation wrapper operates on. Wrapped
// callables keep the calling convention of the original.
type Callable func(args ...any) any

// WrapOption configures Wrap.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	mechanism *Mechanism
}

// WithWrapMechanism stamps the given mechanism onto events captured by the
// wrapper, including failures from re-wrapped callable arguments.
func WithWrapMechanism(m *Mechanism) WrapOption {
	return func(c *wrapConfig) {
		c.mechanism = m
	}
}

// wrapRegistry is the side table relating original-callable identity to
// wrapped-callable identity. It observes the callables, never owns them:
// entries are lookup relations keyed by function code pointer.
//
// Closures minted from one function literal share a code pointer and
// therefore share identity; instrumented callables are expected to be
// distinct functions, which is the common case at instrumentation boundaries.
type wrapRegistry struct {
	mu      sync.Mutex
	wrapped map[uintptr]Callable
	marks   map[uintptr]struct{}
}

func newWrapRegistry() *wrapRegistry {
	return &wrapRegistry{
		wrapped: make(map[uintptr]Callable),
		marks:   make(map[uintptr]struct{}),
	}
}

// lookup returns the cached wrapped form of the callable, or the callable
// itself when it is already a wrapped form.
func (r *wrapRegistry) lookup(key uintptr, fn Callable) (Callable, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, marked := r.marks[key]; marked {
		return fn, true
	}
	if w, ok := r.wrapped[key]; ok {
		return w, true
	}
	return nil, false
}

func (r *wrapRegistry) record(originalKey uintptr, wrapped Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrapped[originalKey] = wrapped
	r.marks[callableKey(wrapped)] = struct{}{}
}

func (r *wrapRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wrapped)
}

// callableKey resolves the identity of a callable. Zero means the callable
// could not be introspected.
func callableKey(fn Callable) uintptr {
	if fn == nil {
		return 0
	}
	return reflect.ValueOf(fn).Pointer()
}

// Wrap returns a callable with the same calling convention as fn that reports
// any panic raised during invocation exactly once and never re-panics; from
// the caller's point of view a failing fn simply returns nil.
//
// Callable arguments are re-wrapped with the same options before delegating,
// so failures inside callbacks are attributed with the same mechanism.
// Wrapping an already-wrapped callable returns it unchanged, and wrapping a
// callable that has a cached wrapped form returns the cache. A callable that
// cannot be introspected is returned as-is; the wrap degrades, it never
// fails.
func (c *Client) Wrap(fn Callable, opts ...WrapOption) Callable {
	if fn == nil {
		return nil
	}
	key := callableKey(fn)
	if key == 0 {
		return fn
	}
	if existing, ok := c.registry.lookup(key, fn); ok {
		return existing
	}

	cfg := wrapConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Best-effort name preservation: the original's name travels in the
	// mechanism data rather than on the wrapper itself.
	name := ""
	if f := runtime.FuncForPC(key); f != nil {
		name = f.Name()
	}

	wrapped := Callable(func(args ...any) (result any) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			// Raise the suppression counter first so an ambient handler
			// re-entered by this same failure skips reporting. The decrement
			// is scheduled by the guard.
			c.guard.Suppress()
			c.captureWrapped(r, name, args, cfg.mechanism)
		}()

		delegated := args
		if rewrapArgs(args) {
			delegated = make([]any, len(args))
			for i, a := range args {
				if inner, ok := a.(Callable); ok {
					delegated[i] = c.Wrap(inner, opts...)
				} else {
					delegated[i] = a
				}
			}
		}
		return fn(delegated...)
	})

	c.registry.record(key, wrapped)
	return wrapped
}

// rewrapArgs reports whether any argument is itself a callable.
func rewrapArgs(args []any) bool {
	for _, a := range args {
		if _, ok := a.(Callable); ok {
			return true
		}
	}
	return false
}

// captureWrapped classifies the recovered failure, stamps the supplied
// mechanism (first writer wins), records the original call arguments as
// diagnostic context, and hands the event to the client pipeline.
func (c *Client) captureWrapped(recovered any, name string, args []any, mechanism *Mechanism) {
	event := c.eventFromUnknown(recovered)
	AddExceptionMechanism(event, mechanism)
	AddExceptionMechanism(event, &Mechanism{
		Handled: boolp(false),
		Type:    "instrument",
		Data:    map[string]any{"function": name},
	})
	event.Level = LevelError
	if len(args) > 0 {
		if event.Extra == nil {
			event.Extra = make(map[string]any, 1)
		}
		if _, exists := event.Extra["arguments"]; !exists {
			event.Extra["arguments"] = args
		}
	}
	c.CaptureEvent(event)
}
