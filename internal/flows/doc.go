// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunSignIn, RunGate, RunBearer, RunSignOut) accepts a
// typed dependency struct and returns a result carrying either the outcome
// or a classified failure kind. The Engine maps failure kinds onto its
// public error taxonomy, metrics, and audit events.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenAuth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
