// Package credential checks a username and password against the user store.
package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenAuth/identity"
)

var (
	// ErrUnknownUser is returned when no account has the given username.
	ErrUnknownUser = errors.New("unknown user")
	// ErrBadCredentials is returned when the password does not match.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrLookupFailed wraps user store failures.
	ErrLookupFailed = errors.New("credential lookup failed")
)

// UserLookup is the read side of the user store the verifier needs.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*identity.Record, error)
}

// Hasher verifies a plaintext password against a stored hash.
type Hasher interface {
	Verify(password string, encodedHash string) (bool, error)
}

// Verifier resolves credentials to a sanitized user. It has no side effects.
type Verifier struct {
	users  UserLookup
	hasher Hasher
	dummy  string
}

// NewVerifier returns a Verifier. dummyHash is verified against the supplied
// password when the username is unknown so both failure paths cost one hash
// computation; pass an empty string to skip it.
func NewVerifier(users UserLookup, hasher Hasher, dummyHash string) *Verifier {
	return &Verifier{users: users, hasher: hasher, dummy: dummyHash}
}

// Verify returns the sanitized user for a matching username and password.
func (v *Verifier) Verify(ctx context.Context, username, password string) (identity.User, error) {
	rec, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			if v.dummy != "" {
				_, _ = v.hasher.Verify(password, v.dummy)
			}
			return identity.User{}, ErrUnknownUser
		}
		return identity.User{}, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	ok, err := v.hasher.Verify(password, rec.PasswordHash)
	if err != nil {
		// An unparseable stored hash can never match.
		return identity.User{}, fmt.Errorf("%w: %v", ErrBadCredentials, err)
	}
	if !ok {
		return identity.User{}, ErrBadCredentials
	}

	return rec.Sanitize(), nil
}
