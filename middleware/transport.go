package middleware

import (
	"net/http"
	"strings"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
)

// TokenKind selects which token a transport attaches.
type TokenKind int

const (
	TokenAccess TokenKind = iota
	TokenRefresh
)

// Header names used by BearerTransport for outgoing tokens.
const (
	HeaderAccessToken  = "X-Access-Token"
	HeaderRefreshToken = "X-Refresh-Token"
)

// Transport moves tokens in and out of HTTP messages.
type Transport interface {
	ExtractTokens(r *http.Request) tokenAuth.Tokens
	AttachToken(w http.ResponseWriter, kind TokenKind, token string)
	ClearTokens(w http.ResponseWriter)
}

// CookieTransport stores tokens in two HttpOnly cookies whose Max-Age
// matches the token lifetimes.
type CookieTransport struct {
	cfg        tokenAuth.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCookieTransport(cfg tokenAuth.CookieConfig, accessTTL, refreshTTL time.Duration) *CookieTransport {
	return &CookieTransport{cfg: cfg, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// CookieTransportFor builds a CookieTransport from an engine's settings.
func CookieTransportFor(engine *tokenAuth.Engine) *CookieTransport {
	cfg := engine.Config()
	return NewCookieTransport(cfg.Cookie, engine.AccessTTL(), engine.RefreshTTL())
}

func (c *CookieTransport) ExtractTokens(r *http.Request) tokenAuth.Tokens {
	var out tokenAuth.Tokens
	if ck, err := r.Cookie(c.cfg.AccessName); err == nil {
		out.Access = ck.Value
	}
	if ck, err := r.Cookie(c.cfg.RefreshName); err == nil {
		out.Refresh = ck.Value
	}
	return out
}

func (c *CookieTransport) AttachToken(w http.ResponseWriter, kind TokenKind, token string) {
	name, ttl := c.cfg.AccessName, c.accessTTL
	if kind == TokenRefresh {
		name, ttl = c.cfg.RefreshName, c.refreshTTL
	}
	http.SetCookie(w, c.cookie(name, token, int(ttl/time.Second)))
}

func (c *CookieTransport) ClearTokens(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(c.cfg.AccessName, "", -1))
	http.SetCookie(w, c.cookie(c.cfg.RefreshName, "", -1))
}

func (c *CookieTransport) cookie(name, value string, maxAge int) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: c.cfg.HTTPOnly,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	}
	if maxAge < 0 {
		ck.Expires = time.Unix(0, 0)
	}
	return ck
}

// BearerTransport reads the access token from the Authorization header and
// hands tokens back in response headers. It never carries a refresh token
// inbound.
type BearerTransport struct{}

func (BearerTransport) ExtractTokens(r *http.Request) tokenAuth.Tokens {
	token, _ := bearerToken(r.Header.Get("Authorization"))
	return tokenAuth.Tokens{Access: token}
}

func (BearerTransport) AttachToken(w http.ResponseWriter, kind TokenKind, token string) {
	if kind == TokenRefresh {
		w.Header().Set(HeaderRefreshToken, token)
		return
	}
	w.Header().Set(HeaderAccessToken, token)
}

// ClearTokens is a no-op; bearer clients discard their own tokens.
func (BearerTransport) ClearTokens(http.ResponseWriter) {}

// SelectTransport returns bearer when the Authorization header holds a
// bearer token and cookies otherwise. Other schemes such as Basic fall back
// to cookies.
func SelectTransport(r *http.Request, cookies *CookieTransport) Transport {
	if _, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return BearerTransport{}
	}
	return cookies
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
