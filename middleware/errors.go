package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/rs/zerolog/hlog"
)

// ErrorBody is the JSON shape of every rejection.
type ErrorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// WriteError answers with the status and message that match err's class.
// Infrastructure and unclassified errors are logged through the request
// logger and their details are not sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := tokenAuth.HTTPStatus(err)

	var (
		infra   *tokenAuth.InfrastructureError
		message string
	)
	switch {
	case tokenAuth.IsAuthError(err), tokenAuth.IsNotFound(err):
		message = err.Error()
	case errors.As(err, &infra):
		hlog.FromRequest(r).Error().Err(err).Str("op", infra.Op).Msg("auth backend unavailable")
		if infra.Retryable() {
			w.Header().Set("Retry-After", "1")
		}
		message = "Service temporarily unavailable"
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("unexpected auth error")
		message = http.StatusText(http.StatusInternalServerError)
	}

	WriteJSON(w, status, ErrorBody{Message: message, Status: status})
}

// WriteJSON writes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
