package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://app.example"

type pingableSessions struct {
	*session.MemoryStore
	pingErr error
}

func (p *pingableSessions) Ping(ctx context.Context) error {
	if p.pingErr != nil {
		return p.pingErr
	}
	return p.MemoryStore.Ping(ctx)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	handler  http.Handler
	engine   *tokenAuth.Engine
	sessions *pingableSessions
	clock    *testClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := tokenAuth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", 32))
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16

	users := identity.NewMemoryStore()
	sessions := &pingableSessions{MemoryStore: session.NewMemoryStore()}
	clock := &testClock{now: time.Now().UTC()}

	engine, err := tokenAuth.New().
		WithConfig(cfg).
		WithSessionStore(sessions).
		WithUserStore(users).
		WithClock(clock.Now).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	hash, err := engine.HashPassword("correct horse")
	require.NoError(t, err)
	_, err = users.Create(context.Background(), identity.Record{
		User:         identity.User{Username: "alice", Email: "alice@example.com", FirstName: "Alice"},
		PasswordHash: hash,
	})
	require.NoError(t, err)

	handler := NewRouter(engine, Options{Logger: zerolog.Nop(), CORSOrigins: []string{testOrigin}})
	return &testServer{handler: handler, engine: engine, sessions: sessions, clock: clock}
}

func (s *testServer) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("User-Agent", "Firefox/128.0")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signIn(t *testing.T) (access, refresh *http.Cookie) {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signin", `{"username":"alice","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return cookie(rec, "accessToken"), cookie(rec, "refreshToken")
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSignIn(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signin", `{"username":"alice","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	require.NotEmpty(t, body["accessToken"])

	access := cookie(rec, "accessToken")
	refresh := cookie(rec, "refreshToken")
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	require.Equal(t, body["accessToken"], access.Value)
	require.Equal(t, 3600, access.MaxAge)
	require.Equal(t, 86400, refresh.MaxAge)
	require.True(t, access.HttpOnly)
	require.True(t, refresh.HttpOnly)
	require.Equal(t, 1, s.sessions.Len())
}

func TestSignInRejections(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "unknown user", body: `{"username":"bob","password":"x"}`, status: http.StatusBadRequest, message: "Username does not exist."},
		{name: "wrong password", body: `{"username":"alice","password":"nope"}`, status: http.StatusBadRequest, message: "Incorrect password."},
		{name: "missing fields", body: `{"username":"alice"}`, status: http.StatusBadRequest, message: "Username and password are required"},
		{name: "not json", body: `username=alice`, status: http.StatusBadRequest, message: "Username and password are required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/auth/signin", tc.body)
			require.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			require.Equal(t, tc.message, body["message"])
			require.EqualValues(t, tc.status, body["status"])
			require.Nil(t, cookie(rec, "accessToken"))
		})
	}
	require.Zero(t, s.sessions.Len())
}

func TestCheck(t *testing.T) {
	s := newTestServer(t)
	access, refresh := s.signIn(t)

	t.Run("no tokens", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/auth/check", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "No authentication tokens found", decode(t, rec)["message"])
	})

	t.Run("access valid", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/auth/check", "", access, refresh)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		require.Equal(t, true, body["valid"])
		require.Equal(t, "Access token is valid", body["message"])
		user, ok := body["user"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "alice", user["username"])
		require.NotContains(t, user, "passwordHash")
		require.Nil(t, cookie(rec, "accessToken"))
	})

	t.Run("renewed from refresh", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/auth/check", "", refresh)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		require.Equal(t, true, body["refreshed"])
		require.Equal(t, "Token refreshed successfully", body["message"])
		renewed := cookie(rec, "accessToken")
		require.NotNil(t, renewed)
		require.Equal(t, body["accessToken"], renewed.Value)
	})

	t.Run("garbage refresh", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/auth/check", "", &http.Cookie{Name: "refreshToken", Value: "garbage"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Refresh token is invalid or expired", decode(t, rec)["message"])
	})
}

func TestCheckRevokedSession(t *testing.T) {
	s := newTestServer(t)
	access, refresh := s.signIn(t)

	other, err := s.engine.SignIn(context.Background(), "alice", "correct horse")
	require.NoError(t, err)
	require.NoError(t, s.engine.RevokeSession(context.Background(), other.SessionID))

	s.clock.Advance(61 * time.Minute)

	rec := s.do(t, http.MethodGet, "/api/v1/auth/check", "",
		&http.Cookie{Name: "accessToken", Value: other.AccessToken},
		&http.Cookie{Name: "refreshToken", Value: other.RefreshToken},
	)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "Session is no longer valid", body["message"])
	require.NotContains(t, body, "accessToken")
	require.Empty(t, rec.Result().Cookies())

	// the revoked session does not affect other sessions of the same user
	rec = s.do(t, http.MethodGet, "/api/v1/auth/check", "", access, refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode(t, rec)["refreshed"])
	require.NotNil(t, cookie(rec, "accessToken"))
}

func TestSignOutClearsCookiesOnly(t *testing.T) {
	s := newTestServer(t)
	access, refresh := s.signIn(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signout", "", access, refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Successfully signed out", decode(t, rec)["message"])

	for _, name := range []string{"accessToken", "refreshToken"} {
		c := cookie(rec, name)
		require.NotNil(t, c, name)
		require.Empty(t, c.Value)
		require.Negative(t, c.MaxAge)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/auth/check", "", refresh)
	require.Equal(t, http.StatusOK, rec.Code, "session stays valid server-side by default")

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signout", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutes(t *testing.T) {
	s := newTestServer(t)
	access, refresh := s.signIn(t)

	rec := s.do(t, http.MethodGet, "/api/v1/me", "", refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cookie(rec, "accessToken"), "guard renews the access cookie")
	user := decode(t, rec)["user"].(map[string]any)
	require.Equal(t, "alice", user["username"])

	rec = s.do(t, http.MethodGet, "/api/v1/me", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/token/me", nil)
	req.Header.Set("Authorization", "Bearer "+access.Value)
	out := httptest.NewRecorder()
	s.handler.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/token/me", "", access, refresh)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "bearer route ignores cookies")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Server is up", rec.Body.String())

	s.sessions.pingErr = errors.New("connection refused")
	rec = s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.Equal(t, "Service temporarily unavailable", decode(t, rec)["message"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.signIn(t)

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "tokenauth_signin_success_total 1")
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/api/v1/auth/signin"},
	} {
		rec := s.do(t, tc.method, tc.path, "")
		require.Equal(t, http.StatusNotFound, rec.Code, tc.path)
		body := decode(t, rec)
		require.Equal(t, "404 Error: request not found.", body["message"])
		require.EqualValues(t, 404, body["status"])
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/signin", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/auth/signin", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
