package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/session"
)

// SignInFailureKind classifies sign-in failures for root-level mapping.
type SignInFailureKind int

const (
	SignInFailureNone SignInFailureKind = iota
	SignInFailureCredentials
	SignInFailureLookup
	SignInFailureSessionCreate
	SignInFailureCancelled
	SignInFailureIssueTokens
)

// SignInResult carries either the issued token pair or failure metadata.
type SignInResult struct {
	Failure      SignInFailureKind
	Err          error
	User         identity.User
	SessionID    string
	AccessToken  string
	RefreshToken string
}

// SignInDeps captures sign-in flow dependencies.
type SignInDeps struct {
	VerifyCredentials func(ctx context.Context, username, password string) (identity.User, error)
	LookupFailed      error
	UserAgent         func(context.Context) string
	Sessions          SessionCreator
	StoreContext      StoreContext
	SignAccess        func(identity.User) (string, error)
	SignRefresh       func(sessionID string) (string, error)
}

// RunSignIn verifies credentials, records a valid session, and issues the
// token pair. Tokens are only minted after the session write succeeded and
// while ctx is still live.
func RunSignIn(ctx context.Context, username, password string, deps SignInDeps) SignInResult {
	user, err := deps.VerifyCredentials(ctx, username, password)
	if err != nil {
		failure := SignInFailureCredentials
		if deps.LookupFailed != nil && errors.Is(err, deps.LookupFailed) {
			failure = SignInFailureLookup
		}
		return SignInResult{Failure: failure, Err: err}
	}

	var userAgent string
	if deps.UserAgent != nil {
		userAgent = deps.UserAgent(ctx)
	}

	storeCtx, cancel := deps.StoreContext.derive(ctx)
	sess, err := deps.Sessions.Create(storeCtx, session.Params{
		UserID:    user.ID,
		UserAgent: userAgent,
		Valid:     true,
	})
	cancel()
	if err != nil {
		return SignInResult{
			Failure: SignInFailureSessionCreate,
			Err:     err,
			User:    user,
		}
	}

	if err := ctx.Err(); err != nil {
		return SignInResult{
			Failure:   SignInFailureCancelled,
			Err:       err,
			User:      user,
			SessionID: sess.ID,
		}
	}

	access, err := deps.SignAccess(user)
	if err != nil {
		return SignInResult{Failure: SignInFailureIssueTokens, Err: err, User: user, SessionID: sess.ID}
	}
	refresh, err := deps.SignRefresh(sess.ID)
	if err != nil {
		return SignInResult{Failure: SignInFailureIssueTokens, Err: err, User: user, SessionID: sess.ID}
	}

	return SignInResult{
		User:         user,
		SessionID:    sess.ID,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
