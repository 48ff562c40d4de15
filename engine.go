package tokenAuth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenAuth/credential"
	internalaudit "github.com/MrEthical07/tokenAuth/internal/audit"
	"github.com/MrEthical07/tokenAuth/internal/flows"
	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/jwt"
	"github.com/MrEthical07/tokenAuth/password"
	"github.com/MrEthical07/tokenAuth/session"
	"github.com/rs/zerolog"
)

const (
	msgUnknownUser        = "Username does not exist."
	msgBadPassword        = "Incorrect password."
	msgInvalidCredentials = "Invalid username or password."
	msgAccessExpired      = "Access token has expired"
	msgAccessInvalid      = "Invalid access token"
)

// Engine runs sign-in, request gating, bearer verification, and sign-out.
// It is safe for concurrent use once built.
type Engine struct {
	config     Config
	sessions   SessionStore
	users      UserStore
	hasher     *password.Argon2
	verifier   *credential.Verifier
	jwtManager *jwt.Manager
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     zerolog.Logger
	flowDeps   flows.Deps
}

func (e *Engine) initFlowDeps() {
	e.flowDeps = flows.Deps{
		SignIn: flows.SignInDeps{
			VerifyCredentials: func(ctx context.Context, username, password string) (identity.User, error) {
				storeCtx, cancel := e.storeContext(ctx)
				defer cancel()
				return e.verifier.Verify(storeCtx, username, password)
			},
			LookupFailed: credential.ErrLookupFailed,
			UserAgent:    userAgentFromContext,
			Sessions:     e.sessions,
			StoreContext: e.storeContext,
			SignAccess:   e.jwtManager.SignAccess,
			SignRefresh:  e.jwtManager.SignRefresh,
		},
		Gate: flows.GateDeps{
			ParseAccess:  e.jwtManager.ParseAccess,
			ParseRefresh: e.jwtManager.ParseRefresh,
			SignAccess:   e.jwtManager.SignAccess,
			Sessions:     e.sessions,
			Users:        e.users,
			StoreContext: e.storeContext,
		},
		Bearer: flows.BearerDeps{
			ParseAccess: e.jwtManager.ParseAccess,
		},
		SignOut: flows.SignOutDeps{
			RevokeOnSignOut: e.config.Security.RevokeOnSignOut,
			ParseRefresh:    e.jwtManager.ParseRefresh,
			Sessions:        e.sessions,
			StoreContext:    e.storeContext,
		},
	}
}

func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Session.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.config.Session.StoreTimeout)
}

// SignIn verifies username and password, records a new valid session, and
// issues an access and refresh token pair.
//
// Credential failures are returned as *AuthError, store failures as
// *InfrastructureError. No session is written when credentials fail, and
// no tokens are issued when ctx ends before the session is stored.
func (e *Engine) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunSignIn(ctx, username, password, e.flowDeps.SignIn)

	switch res.Failure {
	case flows.SignInFailureNone:
	case flows.SignInFailureCredentials:
		e.metricInc(MetricSignInFailure)
		if errors.Is(res.Err, ErrUnknownUser) {
			e.metricInc(MetricSignInUnknownUser)
		} else {
			e.metricInc(MetricSignInBadPassword)
		}
		e.emitAudit(ctx, auditEventSignInFailure, false, "", "", res.Err, func() map[string]string {
			return map[string]string{"username": username}
		})
		return nil, e.credentialError(res.Err)
	case flows.SignInFailureLookup:
		e.metricInc(MetricSignInFailure)
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventSignInFailure, false, "", "", ErrStoreUnavailable, nil)
		return nil, infraError("user.lookup", res.Err)
	case flows.SignInFailureSessionCreate:
		e.metricInc(MetricSignInFailure)
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventSignInFailure, false, res.User.ID, "", ErrStoreUnavailable, nil)
		return nil, infraError("session.create", res.Err)
	case flows.SignInFailureCancelled:
		e.metricInc(MetricSignInFailure)
		e.logger.Debug().Str("session_id", res.SessionID).Err(res.Err).Msg("sign-in cancelled after session write")
		return nil, &InfrastructureError{Op: "signin", Err: res.Err}
	default:
		e.metricInc(MetricSignInFailure)
		return nil, fmt.Errorf("tokenAuth: issue tokens: %w", res.Err)
	}

	e.metricInc(MetricSignInSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSignInSuccess, true, res.User.ID, res.SessionID, nil, nil)

	return &SignInResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         res.User,
		SessionID:    res.SessionID,
	}, nil
}

func (e *Engine) credentialError(err error) error {
	if e.config.Security.GenericCredentialErrors {
		return &AuthError{Message: msgInvalidCredentials, Status: http.StatusUnauthorized, Err: ErrInvalidCredentials}
	}
	if errors.Is(err, ErrUnknownUser) {
		return &AuthError{Message: msgUnknownUser, Status: http.StatusBadRequest, Err: err}
	}
	return &AuthError{Message: msgBadPassword, Status: http.StatusBadRequest, Err: err}
}

// Gate decides whether a request carrying tokens is authenticated.
//
// A verifying access token admits the request without touching any store.
// Otherwise a verifying refresh token whose session is still valid mints a
// new access token from a fresh read of the user (Refreshed is true).
//
// The returned result is never nil; its State reflects the transition taken
// even when err is non-nil.
func (e *Engine) Gate(ctx context.Context, tokens Tokens) (*GateResult, error) {
	if e == nil || e.jwtManager == nil {
		return &GateResult{State: StateUnauthenticated}, ErrEngineNotReady
	}

	start := time.Now()
	res := flows.RunGate(ctx, tokens.Access, tokens.Refresh, e.flowDeps.Gate)
	e.metrics.Observe(MetricGateLatency, time.Since(start))

	if res.AccessErr != nil {
		e.logger.Debug().Err(res.AccessErr).Msg("access token rejected, trying refresh token")
	}

	switch res.Failure {
	case flows.GateFailureNone:
	case flows.GateFailureNoTokens:
		e.metricInc(MetricGateNoTokens)
		e.emitAudit(ctx, auditEventGateRejected, false, "", "", ErrNoTokens, nil)
		return &GateResult{State: StateNoTokensPresent}, authError(http.StatusUnauthorized, ErrNoTokens)
	case flows.GateFailureRefreshInvalid:
		e.metricInc(MetricGateRefreshInvalid)
		e.emitAudit(ctx, auditEventGateRejected, false, "", "", ErrRefreshInvalid, nil)
		cause := ErrRefreshInvalid
		if res.Err != nil {
			cause = fmt.Errorf("%w: %w", ErrRefreshInvalid, res.Err)
		}
		return &GateResult{State: StateAccessExpiredRefreshInvalid}, &AuthError{
			Message: ErrRefreshInvalid.Error(),
			Status:  http.StatusUnauthorized,
			Err:     cause,
		}
	case flows.GateFailureSessionInvalid:
		e.metricInc(MetricGateSessionInvalid)
		e.emitAudit(ctx, auditEventGateRejected, false, "", res.SessionID, ErrSessionInvalid, nil)
		return &GateResult{State: StateAccessExpiredRefreshInvalid, SessionID: res.SessionID},
			authError(http.StatusUnauthorized, ErrSessionInvalid)
	case flows.GateFailureUserNotFound:
		e.metricInc(MetricGateUserNotFound)
		e.emitAudit(ctx, auditEventGateRejected, false, "", res.SessionID, ErrUserNotFound, nil)
		return &GateResult{State: StateUnauthenticated, SessionID: res.SessionID},
			&NotFoundError{Resource: "user", Err: ErrUserNotFound}
	case flows.GateFailureStore:
		e.metricInc(MetricStoreUnavailable)
		e.logger.Warn().Err(res.Err).Str("session_id", res.SessionID).Msg("store unavailable during renewal")
		e.emitAudit(ctx, auditEventGateRejected, false, "", res.SessionID, ErrStoreUnavailable, nil)
		return &GateResult{State: StateUnauthenticated, SessionID: res.SessionID}, infraError("gate.renew", res.Err)
	case flows.GateFailureCancelled:
		return &GateResult{State: StateUnauthenticated, SessionID: res.SessionID},
			&InfrastructureError{Op: "gate.renew", Err: res.Err}
	default:
		return &GateResult{State: StateUnauthenticated, SessionID: res.SessionID},
			fmt.Errorf("tokenAuth: issue access token: %w", res.Err)
	}

	if res.Outcome == flows.GateOutcomeRenewed {
		e.metricInc(MetricGateRenewed)
		e.emitAudit(ctx, auditEventGateRenewed, true, res.User.ID, res.SessionID, nil, nil)
		return &GateResult{
			State:       StateAccessExpiredRefreshValid,
			User:        res.User,
			SessionID:   res.SessionID,
			AccessToken: res.AccessToken,
			Refreshed:   true,
		}, nil
	}

	e.metricInc(MetricGateAccessValid)
	e.emitAudit(ctx, auditEventGateAccepted, true, res.User.ID, "", nil, nil)
	return &GateResult{
		State:       StateAccessValid,
		User:        res.User,
		AccessToken: res.AccessToken,
	}, nil
}

// VerifyBearer verifies an access token presented as a bearer credential.
// There is no refresh fallback and no store access; the codec error stays
// reachable through errors.Is.
func (e *Engine) VerifyBearer(ctx context.Context, token string) (identity.User, error) {
	if e == nil || e.jwtManager == nil {
		return identity.User{}, ErrEngineNotReady
	}

	res := flows.RunBearer(token, e.flowDeps.Bearer)
	switch res.Failure {
	case flows.BearerFailureNone:
		e.metricInc(MetricBearerSuccess)
		return res.User, nil
	case flows.BearerFailureMissing:
		e.metricInc(MetricBearerFailure)
		e.emitAudit(ctx, auditEventBearerRejected, false, "", "", ErrMissingBearer, nil)
		return identity.User{}, authError(http.StatusUnauthorized, ErrMissingBearer)
	default:
		e.metricInc(MetricBearerFailure)
		e.emitAudit(ctx, auditEventBearerRejected, false, "", "", res.Err, nil)
		msg := msgAccessInvalid
		if errors.Is(res.Err, ErrTokenExpired) {
			msg = msgAccessExpired
		}
		return identity.User{}, &AuthError{Message: msg, Status: http.StatusUnauthorized, Err: res.Err}
	}
}

// SignOut ends a client's authentication. The transport clears the token
// carriers; server-side state is left untouched unless
// Security.RevokeOnSignOut is set, in which case the session behind a
// verifiable refresh token is marked invalid. A failed revocation is logged
// and does not fail the sign-out.
func (e *Engine) SignOut(ctx context.Context, tokens Tokens) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	res := flows.RunSignOut(ctx, tokens.Refresh, e.flowDeps.SignOut)
	if res.Err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.logger.Warn().Err(res.Err).Str("session_id", res.SessionID).Msg("revoke on sign-out failed")
	}
	if res.Revoked {
		e.metricInc(MetricSessionRevoked)
	}

	e.metricInc(MetricSignOut)
	e.emitAudit(ctx, auditEventSignOut, true, "", res.SessionID, nil, func() map[string]string {
		if res.Revoked {
			return map[string]string{"revoked": "true"}
		}
		return nil
	})
	return nil
}

// RevokeSession marks a session invalid so its refresh token can no longer
// renew access. Outstanding access tokens stay valid until they expire.
func (e *Engine) RevokeSession(ctx context.Context, sessionID string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	storeCtx, cancel := e.storeContext(ctx)
	err := e.sessions.SetValid(storeCtx, sessionID, false)
	cancel()
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return &NotFoundError{Resource: "session", Err: err}
		}
		e.metricInc(MetricStoreUnavailable)
		return infraError("session.revoke", err)
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventSessionRevoked, true, "", sessionID, nil, nil)
	return nil
}

// HashPassword hashes a new password with the engine's Argon2 parameters.
func (e *Engine) HashPassword(plain string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(plain)
}

// Ping checks both stores.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessions == nil || e.users == nil {
		return ErrEngineNotReady
	}

	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	if err := e.sessions.Ping(storeCtx); err != nil {
		return infraError("session.ping", err)
	}
	if err := e.users.Ping(storeCtx); err != nil {
		return infraError("user.ping", err)
	}
	return nil
}

// AccessTTL is the access token lifetime, which transports use as cookie
// Max-Age.
func (e *Engine) AccessTTL() time.Duration {
	return e.config.JWT.AccessTTL
}

// RefreshTTL is the refresh token lifetime.
func (e *Engine) RefreshTTL() time.Duration {
	return e.config.JWT.RefreshTTL
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) AuditStats() AuditStats {
	if e == nil {
		return AuditStats{}
	}
	return e.audit.Stats()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
