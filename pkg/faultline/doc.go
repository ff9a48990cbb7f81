// Package faultline captures arbitrary runtime failures, normalizes them
// into canonical events, and runs them through a configurable filter stage
// before delivery.
//
// # Core Components
//
// The library is organized around these concepts:
//
//   - Event: the canonical record describing one captured failure or message
//   - Classifier: turns a raw failure of unknown shape into an Event
//     (EventFromUnknownInput, EventFromException, EventFromMessage)
//   - Mechanism tagger: attaches capture metadata with first-writer-wins
//     merge semantics (AddExceptionMechanism, AddExceptionTypeValue)
//   - Wrap: reentrancy-safe instrumentation of callables; failures are
//     captured exactly once and never re-panic
//   - InboundFilter / ProcessorChain: per-event drop-or-rewrite decisions
//     before dispatch
//   - Transport: destination for filtered events and sessions (console,
//     webhook, pubsub, stream, async, multi, noop)
//
// # Quick Start
//
//	client := faultline.NewClient(
//	    faultline.WithTransport(console.New()),
//	    faultline.WithDefaultScrubbing(),
//	    faultline.WithOptions(faultline.ClientOptions{
//	        AttachStacktrace: true,
//	        IgnoreErrors:     []faultline.Pattern{faultline.Literal("context canceled")},
//	    }),
//	)
//	defer client.Close()
//
//	handler := client.Wrap(riskyHandler)
//	handler(payload)
//
// For code outside the wrapper:
//
//	defer faultline.Recover(ctx, client)
//
// # Design Principles
//
//   - Capture never aborts the caller: every public entry point either
//     returns a value or silently degrades
//   - Delivery is fire-and-forget: transport failures are logged, never
//     retried by the core
//   - One failure, one event: the reentrancy guard suppresses duplicate
//     reports when instrumentation is nested or re-entered by an ambient
//     handler
package faultline
