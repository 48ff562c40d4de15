package flows

import (
	"context"

	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/session"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	SignIn  SignInDeps
	Gate    GateDeps
	Bearer  BearerDeps
	SignOut SignOutDeps
}

// SessionCreator persists new sessions.
type SessionCreator interface {
	Create(ctx context.Context, p session.Params) (*session.Session, error)
}

// SessionReader loads sessions by id.
type SessionReader interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// SessionRevoker flips the validity flag of a session.
type SessionRevoker interface {
	SetValid(ctx context.Context, id string, valid bool) error
}

// UserReader re-fetches users by id during renewal.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*identity.Record, error)
}

// StoreContext derives a bounded context for one store call.
type StoreContext func(context.Context) (context.Context, context.CancelFunc)

func (s StoreContext) derive(ctx context.Context) (context.Context, context.CancelFunc) {
	if s == nil {
		return ctx, func() {}
	}
	return s(ctx)
}
