package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/middleware"
	"github.com/rs/zerolog/hlog"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 2 * time.Second
)

var errBadRequestBody = &tokenAuth.AuthError{
	Message: "Username and password are required",
	Status:  http.StatusBadRequest,
}

type handlers struct {
	engine  *tokenAuth.Engine
	cookies *middleware.CookieTransport
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInResponse struct {
	AccessToken string `json:"accessToken"`
}

type checkResponse struct {
	Valid       bool           `json:"valid"`
	Refreshed   bool           `json:"refreshed,omitempty"`
	User        *identity.User `json:"user,omitempty"`
	AccessToken string         `json:"accessToken,omitempty"`
	Message     string         `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	User identity.User `json:"user"`
}

func (h *handlers) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		middleware.WriteError(w, r, errBadRequestBody)
		return
	}

	res, err := h.engine.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	h.cookies.AttachToken(w, middleware.TokenAccess, res.AccessToken)
	h.cookies.AttachToken(w, middleware.TokenRefresh, res.RefreshToken)
	hlog.FromRequest(r).Info().
		Str("user_id", res.User.ID).
		Str("session_id", res.SessionID).
		Msg("signed in")

	middleware.WriteJSON(w, http.StatusOK, signInResponse{AccessToken: res.AccessToken})
}

func (h *handlers) check(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Gate(r.Context(), h.cookies.ExtractTokens(r))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if res.Refreshed {
		h.cookies.AttachToken(w, middleware.TokenAccess, res.AccessToken)
		middleware.WriteJSON(w, http.StatusOK, checkResponse{
			Valid:       true,
			Refreshed:   true,
			AccessToken: res.AccessToken,
			Message:     "Token refreshed successfully",
		})
		return
	}

	user := res.User
	middleware.WriteJSON(w, http.StatusOK, checkResponse{
		Valid:   true,
		User:    &user,
		Message: "Access token is valid",
	})
}

func (h *handlers) signOut(w http.ResponseWriter, r *http.Request) {
	_ = h.engine.SignOut(r.Context(), h.cookies.ExtractTokens(r))
	h.cookies.ClearTokens(w)
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Successfully signed out"})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	user, ok := tokenAuth.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, errors.New("httpapi: guard did not set a user"))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, userResponse{User: user})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.engine.Ping(ctx); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Server is up")
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusNotFound, middleware.ErrorBody{
		Message: "404 Error: request not found.",
		Status:  http.StatusNotFound,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
