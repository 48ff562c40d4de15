package middleware

import (
	"net"
	"net/http"

	tokenAuth "github.com/MrEthical07/tokenAuth"
)

// Authenticator is satisfied by *tokenAuth.Engine.
type Authenticator interface {
	Gatekeeper
	BearerVerifier
}

// Authenticate uses RequireBearer for requests carrying a bearer token and
// RequireSession for everything else.
func Authenticate(engine Authenticator, cookies *CookieTransport) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		bearer := RequireBearer(engine)(next)
		session := RequireSession(engine, cookies)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := SelectTransport(r, cookies).(BearerTransport); ok {
				bearer.ServeHTTP(w, r)
				return
			}
			session.ServeHTTP(w, r)
		})
	}
}

// ClientContext copies the client address and user agent into the request
// context so the engine can record them on sessions and audit events.
func ClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tokenAuth.WithUserAgent(r.Context(), r.UserAgent())
		ctx = tokenAuth.WithClientIP(ctx, clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
