package tokenAuth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/tokenAuth/credential"
	"github.com/MrEthical07/tokenAuth/jwt"
)

var (
	// ErrNoTokens is returned by Gate when neither token is present.
	ErrNoTokens = errors.New("No authentication tokens found")
	// ErrRefreshInvalid is returned when the refresh path cannot be taken
	// because the refresh token is absent, expired, or forged.
	ErrRefreshInvalid = errors.New("Refresh token is invalid or expired")
	// ErrSessionInvalid is returned when the refresh token names a session
	// that is missing or revoked.
	ErrSessionInvalid = errors.New("Session is no longer valid")
	// ErrUnknownUser is returned by SignIn for an unknown username.
	ErrUnknownUser = credential.ErrUnknownUser
	// ErrBadCredentials is returned by SignIn for a wrong password.
	ErrBadCredentials = credential.ErrBadCredentials
	// ErrInvalidCredentials replaces both credential errors when generic
	// credential errors are enabled.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingBearer is returned by VerifyBearer for an empty token.
	ErrMissingBearer = errors.New("missing bearer token")
	// ErrTokenInvalid and ErrTokenExpired are the codec verification failures.
	ErrTokenInvalid = jwt.ErrTokenInvalid
	ErrTokenExpired = jwt.ErrTokenExpired
	// ErrUserNotFound is returned when a session outlives its user.
	ErrUserNotFound = errors.New("User not found")
	// ErrStoreUnavailable marks session or user store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned by methods on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not ready")
)

// AuthError is a credential or token failure. Status is the HTTP status a
// transport should answer with.
type AuthError struct {
	Message string
	Status  int
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(http.StatusUnauthorized)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError reports a missing resource referenced by an otherwise valid
// credential.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Resource + " not found"
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// InfrastructureError reports a store failure or timeout. It is never an
// authentication verdict.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("tokenAuth: %s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// Retryable reports whether the same call may succeed if repeated.
func (e *InfrastructureError) Retryable() bool {
	return !errors.Is(e.Err, context.Canceled)
}

func authError(status int, cause error) *AuthError {
	return &AuthError{Message: cause.Error(), Status: status, Err: cause}
}

func infraError(op string, err error) *InfrastructureError {
	return &InfrastructureError{Op: op, Err: fmt.Errorf("%w: %w", ErrStoreUnavailable, err)}
}

// IsAuthError reports whether err is, or wraps, an *AuthError.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsInfrastructure reports whether err is, or wraps, an *InfrastructureError.
func IsInfrastructure(err error) bool {
	var target *InfrastructureError
	return errors.As(err, &target)
}

// HTTPStatus maps an error from the Engine onto a response status.
func HTTPStatus(err error) int {
	var (
		authErr  *AuthError
		notFound *NotFoundError
		infra    *InfrastructureError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &authErr):
		if authErr.Status != 0 {
			return authErr.Status
		}
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &infra):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
