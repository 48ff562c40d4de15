// Package audit buffers authentication events and hands them to a sink on
// a single background goroutine.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, zerolog, fan-out, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full semantics.
//   - [Event]: one sign-in, gate, bearer, or sign-out outcome.
//
// The package never decides which events to emit. The engine does that.
package audit
