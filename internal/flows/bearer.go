package flows

import (
	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/jwt"
)

// BearerFailureKind classifies bearer verification failures.
type BearerFailureKind int

const (
	BearerFailureNone BearerFailureKind = iota
	BearerFailureMissing
	BearerFailureInvalid
)

// BearerResult carries the verified user or failure metadata.
type BearerResult struct {
	Failure BearerFailureKind
	Err     error
	User    identity.User
}

// BearerDeps captures bearer flow dependencies.
type BearerDeps struct {
	ParseAccess func(string) (*jwt.AccessClaims, error)
}

// RunBearer verifies an access token presented as a bearer credential.
// There is no refresh fallback and no store access.
func RunBearer(token string, deps BearerDeps) BearerResult {
	if token == "" {
		return BearerResult{Failure: BearerFailureMissing}
	}

	claims, err := deps.ParseAccess(token)
	if err != nil {
		return BearerResult{Failure: BearerFailureInvalid, Err: err}
	}

	return BearerResult{User: claims.User}
}
