package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenAuth/jwt"
	"github.com/MrEthical07/tokenAuth/session"
)

// SignOutDeps captures sign-out flow dependencies.
type SignOutDeps struct {
	RevokeOnSignOut bool
	ParseRefresh    func(string) (*jwt.RefreshClaims, error)
	Sessions        SessionRevoker
	StoreContext    StoreContext
}

// SignOutResult reports whether a session was revoked server-side.
type SignOutResult struct {
	SessionID string
	Revoked   bool
	Err       error
}

// RunSignOut revokes the session behind a verifiable refresh token when
// revocation is enabled. With revocation disabled it touches nothing, and
// an unverifiable or absent refresh token is never an error.
func RunSignOut(ctx context.Context, refreshToken string, deps SignOutDeps) SignOutResult {
	if !deps.RevokeOnSignOut || refreshToken == "" {
		return SignOutResult{}
	}

	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return SignOutResult{}
	}

	storeCtx, cancel := deps.StoreContext.derive(ctx)
	err = deps.Sessions.SetValid(storeCtx, claims.Session, false)
	cancel()
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return SignOutResult{SessionID: claims.Session}
		}
		return SignOutResult{SessionID: claims.Session, Err: err}
	}

	return SignOutResult{SessionID: claims.Session, Revoked: true}
}
