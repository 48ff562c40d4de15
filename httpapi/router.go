// Package httpapi is the HTTP surface of the auth server: sign-in, the
// auth check, sign-out, two protected routes, health and metrics.
package httpapi

import (
	"net/http"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/internal/logging"
	promexport "github.com/MrEthical07/tokenAuth/metrics/export/prometheus"
	"github.com/MrEthical07/tokenAuth/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Options configures NewRouter.
type Options struct {
	Logger zerolog.Logger
	// CORSOrigins lists browser origins allowed to send credentialed requests.
	CORSOrigins []string
	// Metrics serves /metrics. Nil exposes the engine counters through a
	// private Prometheus registry.
	Metrics http.Handler
}

// NewRouter wires every route against engine, which must be built.
func NewRouter(engine *tokenAuth.Engine, opts Options) http.Handler {
	h := &handlers{
		engine:  engine,
		cookies: middleware.CookieTransportFor(engine),
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = promexport.Handler(promexport.NewCollector(engine))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/signin", h.signIn)
	mux.HandleFunc("GET /api/v1/auth/check", h.check)
	mux.HandleFunc("POST /api/v1/auth/signout", h.signOut)
	mux.Handle("GET /api/v1/me", middleware.RequireSession(engine, h.cookies)(http.HandlerFunc(h.me)))
	mux.Handle("GET /api/v1/token/me", middleware.RequireBearer(engine)(http.HandlerFunc(h.me)))
	mux.HandleFunc("GET /health", h.health)
	mux.Handle("GET /metrics", metrics)
	mux.HandleFunc("/", notFound)

	handler := middleware.ClientContext(mux)
	handler = withCORS(opts.CORSOrigins, handler)
	return logging.AccessLog(opts.Logger, handler)
}

// withCORS allows credentialed requests from the configured origins so
// browsers send and accept the token cookies.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{middleware.HeaderAccessToken},
		AllowCredentials: true,
	})
	return c.Handler(h)
}
