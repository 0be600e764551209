// Package audit implements async event dispatching for gate decisions and session changes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zerolog, no-op).
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//   - [Event]: structured audit record carrying timestamp, type, user, token id, IP and route.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Gate does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goGate or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
