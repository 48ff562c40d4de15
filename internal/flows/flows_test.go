package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/jwt"
	"github.com/MrEthical07/tokenAuth/session"
)

type stubSessions struct {
	sess   *session.Session
	getErr error
	setErr error
	gets   int
	sets   int
}

func (s *stubSessions) Create(_ context.Context, p session.Params) (*session.Session, error) {
	return &session.Session{ID: "s1", UserID: p.UserID, UserAgent: p.UserAgent, Valid: p.Valid}, nil
}

func (s *stubSessions) Get(context.Context, string) (*session.Session, error) {
	s.gets++
	return s.sess, s.getErr
}

func (s *stubSessions) SetValid(context.Context, string, bool) error {
	s.sets++
	return s.setErr
}

type stubUsers struct {
	rec *identity.Record
	err error
}

func (u stubUsers) GetByID(context.Context, string) (*identity.Record, error) {
	return u.rec, u.err
}

var testUser = identity.User{ID: "u1", Username: "alice"}

func gateDeps(sessions *stubSessions, users stubUsers, accessOK bool) GateDeps {
	return GateDeps{
		ParseAccess: func(tok string) (*jwt.AccessClaims, error) {
			if accessOK && tok == "access" {
				return &jwt.AccessClaims{User: testUser}, nil
			}
			return nil, jwt.ErrTokenExpired
		},
		ParseRefresh: func(tok string) (*jwt.RefreshClaims, error) {
			if tok == "refresh" {
				return &jwt.RefreshClaims{Session: "s1"}, nil
			}
			return nil, jwt.ErrTokenInvalid
		},
		SignAccess: func(u identity.User) (string, error) { return "new-access:" + u.FirstName, nil },
		Sessions:   sessions,
		Users:      users,
	}
}

func TestRunGateTransitions(t *testing.T) {
	fresh := &identity.Record{User: identity.User{ID: "u1", Username: "alice", FirstName: "Fresh"}}

	tests := []struct {
		name     string
		access   string
		refresh  string
		accessOK bool
		sessions *stubSessions
		users    stubUsers
		failure  GateFailureKind
		outcome  GateOutcome
		gets     int
	}{
		{name: "no tokens", failure: GateFailureNoTokens},
		{name: "access valid", access: "access", refresh: "refresh", accessOK: true, sessions: &stubSessions{}, outcome: GateOutcomeAccessValid},
		{name: "access expired no refresh", access: "access", failure: GateFailureRefreshInvalid},
		{name: "refresh invalid", access: "access", refresh: "forged", failure: GateFailureRefreshInvalid},
		{
			name: "renewed", access: "access", refresh: "refresh",
			sessions: &stubSessions{sess: &session.Session{ID: "s1", UserID: "u1", Valid: true}},
			users:    stubUsers{rec: fresh},
			outcome:  GateOutcomeRenewed, gets: 1,
		},
		{
			name: "session revoked", refresh: "refresh",
			sessions: &stubSessions{sess: &session.Session{ID: "s1", UserID: "u1", Valid: false}},
			failure:  GateFailureSessionInvalid, gets: 1,
		},
		{
			name: "session missing", refresh: "refresh",
			sessions: &stubSessions{getErr: session.ErrNotFound},
			failure:  GateFailureSessionInvalid, gets: 1,
		},
		{
			name: "session corrupt", refresh: "refresh",
			sessions: &stubSessions{getErr: session.ErrCorrupt},
			failure:  GateFailureSessionInvalid, gets: 1,
		},
		{
			name: "session store down", refresh: "refresh",
			sessions: &stubSessions{getErr: session.ErrUnavailable},
			failure:  GateFailureStore, gets: 1,
		},
		{
			name: "user gone", refresh: "refresh",
			sessions: &stubSessions{sess: &session.Session{ID: "s1", UserID: "u1", Valid: true}},
			users:    stubUsers{err: identity.ErrNotFound},
			failure:  GateFailureUserNotFound, gets: 1,
		},
		{
			name: "user store down", refresh: "refresh",
			sessions: &stubSessions{sess: &session.Session{ID: "s1", UserID: "u1", Valid: true}},
			users:    stubUsers{err: identity.ErrUnavailable},
			failure:  GateFailureStore, gets: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sessions := tc.sessions
			if sessions == nil {
				sessions = &stubSessions{}
			}
			res := RunGate(context.Background(), tc.access, tc.refresh, gateDeps(sessions, tc.users, tc.accessOK))

			if res.Failure != tc.failure {
				t.Fatalf("expected failure %v, got %v (err=%v)", tc.failure, res.Failure, res.Err)
			}
			if res.Outcome != tc.outcome {
				t.Fatalf("expected outcome %v, got %v", tc.outcome, res.Outcome)
			}
			if sessions.gets != tc.gets {
				t.Fatalf("expected %d session reads, got %d", tc.gets, sessions.gets)
			}
			if res.Failure != GateFailureNone && res.AccessToken != "" {
				t.Fatal("failed gate must not carry a token")
			}
			if res.Outcome == GateOutcomeRenewed && res.AccessToken != "new-access:Fresh" {
				t.Fatalf("expected token minted from fresh record, got %q", res.AccessToken)
			}
		})
	}
}

func TestRunGateCancelledBeforeMint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sessions := &stubSessions{sess: &session.Session{ID: "s1", UserID: "u1", Valid: true}}
	users := stubUsers{rec: &identity.Record{User: testUser}}
	deps := gateDeps(sessions, users, false)
	deps.Users = cancellingUsers{stubUsers: users, cancel: cancel}

	res := RunGate(ctx, "", "refresh", deps)
	if res.Failure != GateFailureCancelled || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected cancellation, got %+v", res)
	}
	if res.AccessToken != "" {
		t.Fatal("expected no token")
	}
}

type cancellingUsers struct {
	stubUsers
	cancel context.CancelFunc
}

func (u cancellingUsers) GetByID(ctx context.Context, id string) (*identity.Record, error) {
	defer u.cancel()
	return u.stubUsers.GetByID(ctx, id)
}

func TestRunSignIn(t *testing.T) {
	lookupFailed := errors.New("lookup failed")
	deps := SignInDeps{
		VerifyCredentials: func(_ context.Context, username, password string) (identity.User, error) {
			switch {
			case username == "down":
				return identity.User{}, lookupFailed
			case username != "alice" || password != "correct":
				return identity.User{}, errors.New("bad credentials")
			}
			return testUser, nil
		},
		LookupFailed: lookupFailed,
		UserAgent:    func(context.Context) string { return "ua" },
		Sessions:     &stubSessions{},
		SignAccess:   func(identity.User) (string, error) { return "a", nil },
		SignRefresh:  func(id string) (string, error) { return "r:" + id, nil },
	}

	res := RunSignIn(context.Background(), "alice", "correct", deps)
	if res.Failure != SignInFailureNone || res.AccessToken != "a" || res.RefreshToken != "r:s1" || res.SessionID != "s1" {
		t.Fatalf("unexpected result %+v", res)
	}

	if res := RunSignIn(context.Background(), "alice", "wrong", deps); res.Failure != SignInFailureCredentials {
		t.Fatalf("expected credential failure, got %+v", res)
	}
	if res := RunSignIn(context.Background(), "down", "x", deps); res.Failure != SignInFailureLookup {
		t.Fatalf("expected lookup failure, got %+v", res)
	}
}

func TestRunBearer(t *testing.T) {
	deps := BearerDeps{ParseAccess: func(tok string) (*jwt.AccessClaims, error) {
		if tok == "ok" {
			return &jwt.AccessClaims{User: testUser}, nil
		}
		return nil, jwt.ErrTokenInvalid
	}}

	if res := RunBearer("", deps); res.Failure != BearerFailureMissing {
		t.Fatalf("expected missing, got %+v", res)
	}
	if res := RunBearer("bad", deps); res.Failure != BearerFailureInvalid || !errors.Is(res.Err, jwt.ErrTokenInvalid) {
		t.Fatalf("expected invalid, got %+v", res)
	}
	if res := RunBearer("ok", deps); res.Failure != BearerFailureNone || res.User != testUser {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestRunSignOut(t *testing.T) {
	parse := func(tok string) (*jwt.RefreshClaims, error) {
		if tok == "refresh" {
			return &jwt.RefreshClaims{Session: "s1"}, nil
		}
		return nil, jwt.ErrTokenInvalid
	}

	disabled := &stubSessions{}
	res := RunSignOut(context.Background(), "refresh", SignOutDeps{ParseRefresh: parse, Sessions: disabled})
	if res.Revoked || disabled.sets != 0 {
		t.Fatal("expected no store call with revocation disabled")
	}

	enabled := &stubSessions{}
	deps := SignOutDeps{RevokeOnSignOut: true, ParseRefresh: parse, Sessions: enabled}
	if res := RunSignOut(context.Background(), "refresh", deps); !res.Revoked || res.SessionID != "s1" {
		t.Fatalf("expected revocation, got %+v", res)
	}
	if res := RunSignOut(context.Background(), "forged", deps); res.Revoked || res.Err != nil {
		t.Fatalf("expected silent no-op for forged token, got %+v", res)
	}

	enabled.setErr = session.ErrNotFound
	if res := RunSignOut(context.Background(), "refresh", deps); res.Err != nil || res.Revoked {
		t.Fatalf("expected missing session to be ignored, got %+v", res)
	}
	enabled.setErr = session.ErrUnavailable
	if res := RunSignOut(context.Background(), "refresh", deps); !errors.Is(res.Err, session.ErrUnavailable) {
		t.Fatalf("expected store error to be reported, got %+v", res)
	}
}
