package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/jwt"
	"github.com/MrEthical07/tokenAuth/session"
)

// GateFailureKind classifies gate failures for root-level mapping.
type GateFailureKind int

const (
	GateFailureNone GateFailureKind = iota
	GateFailureNoTokens
	GateFailureRefreshInvalid
	GateFailureSessionInvalid
	GateFailureUserNotFound
	GateFailureStore
	GateFailureCancelled
	GateFailureIssueAccess
)

// GateOutcome reports which path admitted the request.
type GateOutcome int

const (
	GateOutcomeNone GateOutcome = iota
	GateOutcomeAccessValid
	GateOutcomeRenewed
)

// GateResult carries the admitted identity or failure metadata.
type GateResult struct {
	Failure     GateFailureKind
	Outcome     GateOutcome
	Err         error
	AccessErr   error
	User        identity.User
	SessionID   string
	AccessToken string
}

// GateDeps captures gate flow dependencies.
type GateDeps struct {
	ParseAccess  func(string) (*jwt.AccessClaims, error)
	ParseRefresh func(string) (*jwt.RefreshClaims, error)
	SignAccess   func(identity.User) (string, error)
	Sessions     SessionReader
	Users        UserReader
	StoreContext StoreContext
}

// RunGate admits a request on a valid access token, or silently renews the
// access token from a refresh token whose session is still valid. The
// session store is never consulted while the access token verifies.
func RunGate(ctx context.Context, accessToken, refreshToken string, deps GateDeps) GateResult {
	if accessToken == "" && refreshToken == "" {
		return GateResult{Failure: GateFailureNoTokens}
	}

	var accessErr error
	if accessToken != "" {
		claims, err := deps.ParseAccess(accessToken)
		if err == nil {
			return GateResult{
				Outcome:     GateOutcomeAccessValid,
				User:        claims.User,
				AccessToken: accessToken,
			}
		}
		accessErr = err
	}

	if refreshToken == "" {
		return GateResult{
			Failure:   GateFailureRefreshInvalid,
			Err:       accessErr,
			AccessErr: accessErr,
		}
	}

	refresh, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return GateResult{
			Failure:   GateFailureRefreshInvalid,
			Err:       err,
			AccessErr: accessErr,
		}
	}
	sessionID := refresh.Session

	storeCtx, cancel := deps.StoreContext.derive(ctx)
	sess, err := deps.Sessions.Get(storeCtx, sessionID)
	cancel()
	if err != nil {
		failure := GateFailureStore
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrCorrupt) {
			failure = GateFailureSessionInvalid
		}
		return GateResult{Failure: failure, Err: err, AccessErr: accessErr, SessionID: sessionID}
	}
	if !sess.Valid {
		return GateResult{Failure: GateFailureSessionInvalid, AccessErr: accessErr, SessionID: sessionID}
	}

	storeCtx, cancel = deps.StoreContext.derive(ctx)
	rec, err := deps.Users.GetByID(storeCtx, sess.UserID)
	cancel()
	if err != nil {
		failure := GateFailureStore
		if errors.Is(err, identity.ErrNotFound) {
			failure = GateFailureUserNotFound
		}
		return GateResult{Failure: failure, Err: err, AccessErr: accessErr, SessionID: sessionID}
	}

	if err := ctx.Err(); err != nil {
		return GateResult{Failure: GateFailureCancelled, Err: err, AccessErr: accessErr, SessionID: sessionID}
	}

	user := rec.Sanitize()
	access, err := deps.SignAccess(user)
	if err != nil {
		return GateResult{Failure: GateFailureIssueAccess, Err: err, AccessErr: accessErr, SessionID: sessionID}
	}

	return GateResult{
		Outcome:     GateOutcomeRenewed,
		AccessErr:   accessErr,
		User:        user,
		SessionID:   sessionID,
		AccessToken: access,
	}
}
