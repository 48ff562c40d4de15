package internaldefs

import (
	tokenAuth "github.com/MrEthical07/tokenAuth"
)

type CounterDef struct {
	ID   tokenAuth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   tokenAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for events lost to dispatcher backpressure.
const AuditDroppedName = "tokenauth_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: tokenAuth.MetricSignInSuccess, Name: "tokenauth_signin_success_total", Help: "Successful sign-ins."},
	{ID: tokenAuth.MetricSignInFailure, Name: "tokenauth_signin_failure_total", Help: "Failed sign-ins of any cause."},
	{ID: tokenAuth.MetricSignInUnknownUser, Name: "tokenauth_signin_unknown_user_total", Help: "Sign-ins naming an unknown username."},
	{ID: tokenAuth.MetricSignInBadPassword, Name: "tokenauth_signin_bad_password_total", Help: "Sign-ins with a wrong password."},
	{ID: tokenAuth.MetricGateAccessValid, Name: "tokenauth_gate_access_valid_total", Help: "Requests admitted on a valid access token."},
	{ID: tokenAuth.MetricGateRenewed, Name: "tokenauth_gate_renewed_total", Help: "Requests admitted after silent access renewal."},
	{ID: tokenAuth.MetricGateNoTokens, Name: "tokenauth_gate_no_tokens_total", Help: "Requests carrying no tokens."},
	{ID: tokenAuth.MetricGateRefreshInvalid, Name: "tokenauth_gate_refresh_invalid_total", Help: "Requests rejected for a missing or failing refresh token."},
	{ID: tokenAuth.MetricGateSessionInvalid, Name: "tokenauth_gate_session_invalid_total", Help: "Renewals rejected for a missing or revoked session."},
	{ID: tokenAuth.MetricGateUserNotFound, Name: "tokenauth_gate_user_not_found_total", Help: "Renewals whose user no longer exists."},
	{ID: tokenAuth.MetricBearerSuccess, Name: "tokenauth_bearer_success_total", Help: "Verified bearer tokens."},
	{ID: tokenAuth.MetricBearerFailure, Name: "tokenauth_bearer_failure_total", Help: "Rejected bearer tokens."},
	{ID: tokenAuth.MetricSessionCreated, Name: "tokenauth_session_created_total", Help: "Created sessions."},
	{ID: tokenAuth.MetricSessionRevoked, Name: "tokenauth_session_revoked_total", Help: "Sessions marked invalid."},
	{ID: tokenAuth.MetricSignOut, Name: "tokenauth_signout_total", Help: "Sign-out requests."},
	{ID: tokenAuth.MetricStoreUnavailable, Name: "tokenauth_store_unavailable_total", Help: "Session or user store failures and timeouts."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenAuth.MetricGateLatency, Name: "tokenauth_gate_latency_seconds", Help: "Gate latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds, matching
// tokenAuth.HistogramBounds.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each of the eight buckets, the last being +Inf.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the eight engine buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
