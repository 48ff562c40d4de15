package middleware

import (
	"net/http"

	tokenAuth "github.com/MrEthical07/tokenAuth"
)

// RequireBearer admits requests whose Authorization header carries a
// verifying access token. There is no refresh fallback and no store call.
func RequireBearer(engine BearerVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, r, tokenAuth.ErrEngineNotReady)
				return
			}

			tokens := BearerTransport{}.ExtractTokens(r)
			user, err := engine.VerifyBearer(r.Context(), tokens.Access)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(tokenAuth.WithUser(r.Context(), user)))
		})
	}
}
