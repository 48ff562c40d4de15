// Package jwt issues and verifies the two token kinds of the session
// protocol: short-lived access tokens carrying the user snapshot, and
// long-lived refresh tokens carrying only a session id.
//
// The kinds are signed with separate keys and tagged with a "typ" claim, so
// neither can be accepted in place of the other.
package jwt
