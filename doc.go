// Package tokenAuth authenticates HTTP clients with a pair of signed tokens
// backed by server-side session records.
//
// Sign-in verifies a username and password, stores a valid session, and
// issues a short-lived access token that carries a user snapshot plus a
// longer-lived refresh token that names the session. Requests are gated on
// the access token alone; once it stops verifying, the refresh token renews
// it silently as long as its session is still marked valid.
//
// # Architecture boundaries
//
// tokenAuth is the public surface. It exposes [Engine], [Builder], [Config],
// and the classified errors [AuthError], [NotFoundError], and
// [InfrastructureError]. Flow orchestration and audit dispatch live under
// internal/. Token transport (cookies or bearer headers) lives in the
// middleware package.
//
// # What this package must NOT do
//
//   - Touch the session store while an access token verifies.
//   - Issue tokens when the session write failed or the caller gave up.
//   - Report a store outage as an authentication failure.
package tokenAuth
