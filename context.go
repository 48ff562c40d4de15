package tokenAuth

import (
	"context"

	"github.com/MrEthical07/tokenAuth/identity"
)

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type userContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the client agent label recorded on new sessions.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithUser attaches an authenticated user. Guards call it after admitting a
// request.
func WithUser(ctx context.Context, user identity.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user attached by WithUser.
func UserFromContext(ctx context.Context) (identity.User, bool) {
	if ctx == nil {
		return identity.User{}, false
	}
	user, ok := ctx.Value(userContextKey{}).(identity.User)
	return user, ok
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}
