// Package audit implements async delivery of account-activity events.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON writer, backend forwarder, fan-out).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: one user action with its target and free-form metadata.
//
// The package never decides which events to emit; the flows do. Delivery
// is best-effort: a failing sink is logged and the event is gone.
package audit
