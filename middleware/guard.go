package middleware

import (
	"context"
	"net/http"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/rs/zerolog/hlog"
)

// Gatekeeper is the engine side of RequireSession.
type Gatekeeper interface {
	Gate(ctx context.Context, tokens tokenAuth.Tokens) (*tokenAuth.GateResult, error)
}

// BearerVerifier is the engine side of RequireBearer.
type BearerVerifier interface {
	VerifyBearer(ctx context.Context, token string) (identity.User, error)
}

// RequireSession admits requests whose cookies pass Engine.Gate. A renewed
// access token is written back as a fresh access cookie before the wrapped
// handler runs.
func RequireSession(engine Gatekeeper, cookies *CookieTransport) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := gate(w, r, engine, cookies)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(tokenAuth.WithUser(r.Context(), user)))
		})
	}
}

func gate(w http.ResponseWriter, r *http.Request, engine Gatekeeper, transport Transport) (identity.User, bool) {
	if engine == nil {
		WriteError(w, r, tokenAuth.ErrEngineNotReady)
		return identity.User{}, false
	}

	res, err := engine.Gate(r.Context(), transport.ExtractTokens(r))
	if err != nil {
		WriteError(w, r, err)
		return identity.User{}, false
	}
	if res.Refreshed {
		transport.AttachToken(w, TokenAccess, res.AccessToken)
		hlog.FromRequest(r).Debug().Str("session_id", res.SessionID).Msg("access token renewed")
	}
	return res.User, true
}
