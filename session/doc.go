// Package session persists login sessions for the refresh-token protocol.
//
// # Storage backends
//
// Three implementations share the same capability surface (Create, Get,
// SetValid, Ping): [MemoryStore] for tests and single-process setups,
// [RedisStore] with a compact binary encoding, and [PostgresStore] for
// durable relational storage.
//
// # Lifecycle
//
// A session is created valid at sign-in and is never deleted in normal
// flow. The only mutation is the validity flag, flipped to false by
// revocation. Lookups of unknown ids return [ErrNotFound]; storage
// failures are wrapped with [ErrUnavailable].
//
// # What this package must NOT do
//
//   - Import tokenAuth, jwt, or middleware (no upward imports).
//   - Interpret tokens or make authentication decisions.
package session
