package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 shared secrets.
	MethodHS256 SigningMethod = "hs256"
)

// Token kinds carried in the "typ" claim.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	// ErrTokenInvalid covers bad signatures, malformed tokens, wrong kind,
	// and issuer or audience mismatch.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned once the clock reaches the token expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Keys is the key material for one token kind. For HS256 PrivateKey is the
// shared secret and PublicKey is unused. Ed25519 keys may be raw or PEM.
type Keys struct {
	PrivateKey []byte
	PublicKey  []byte
	KeyID      string
}

func (k Keys) empty() bool {
	return len(k.PrivateKey) == 0 && len(k.PublicKey) == 0
}

// Config configures a [Manager]. Refresh keys default to the access keys
// when left empty.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	AccessKeys    Keys
	RefreshKeys   Keys
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	Now           func() time.Time
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	Kind string        `json:"typ"`
	User identity.User `json:"user"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	Kind    string `json:"typ"`
	Session string `json:"session"`
	jwt.RegisteredClaims
}

type keySet struct {
	sign   any
	verify any
	kid    string
}

// Manager signs and parses tokens. It holds no mutable state and is safe
// for concurrent use.
type Manager struct {
	config  Config
	method  jwt.SigningMethod
	access  keySet
	refresh keySet
}

// NewManager validates cfg and resolves key material once.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RefreshKeys.empty() {
		cfg.RefreshKeys = cfg.AccessKeys
	}

	m := &Manager{config: cfg}

	var err error
	switch cfg.SigningMethod {
	case MethodHS256:
		m.method = jwt.SigningMethodHS256
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
	default:
		return nil, errors.New("unsupported signing method")
	}

	if m.access, err = resolveKeys(cfg.SigningMethod, cfg.AccessKeys); err != nil {
		return nil, fmt.Errorf("access keys: %w", err)
	}
	if m.refresh, err = resolveKeys(cfg.SigningMethod, cfg.RefreshKeys); err != nil {
		return nil, fmt.Errorf("refresh keys: %w", err)
	}

	return m, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// SignAccess issues an access token embedding user. Output is
// deterministic for a given user and clock reading.
func (m *Manager) SignAccess(user identity.User) (string, error) {
	now := m.config.Now()
	claims := AccessClaims{
		Kind:             KindAccess,
		User:             user,
		RegisteredClaims: m.registered(user.ID, now, m.config.AccessTTL),
	}
	return m.sign(claims, m.access)
}

// SignRefresh issues a refresh token bound to sessionID.
func (m *Manager) SignRefresh(sessionID string) (string, error) {
	now := m.config.Now()
	claims := RefreshClaims{
		Kind:             KindRefresh,
		Session:          sessionID,
		RegisteredClaims: m.registered("", now, m.config.RefreshTTL),
	}
	return m.sign(claims, m.refresh)
}

// ParseAccess verifies an access token and returns its claims.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims, m.access); err != nil {
		return nil, err
	}
	if claims.Kind != KindAccess {
		return nil, fmt.Errorf("%w: unexpected token kind %q", ErrTokenInvalid, claims.Kind)
	}
	if claims.User.ID == "" || claims.Subject != claims.User.ID {
		return nil, fmt.Errorf("%w: subject does not match user", ErrTokenInvalid)
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token and returns its claims.
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims, m.refresh); err != nil {
		return nil, err
	}
	if claims.Kind != KindRefresh {
		return nil, fmt.Errorf("%w: unexpected token kind %q", ErrTokenInvalid, claims.Kind)
	}
	if claims.Session == "" {
		return nil, fmt.Errorf("%w: missing session", ErrTokenInvalid)
	}
	return claims, nil
}

func (m *Manager) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    m.config.Issuer,
	}
	if m.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	return rc
}

func (m *Manager) sign(claims jwt.Claims, keys keySet) (string, error) {
	token := jwt.NewWithClaims(m.method, claims)
	if keys.kid != "" {
		token.Header["kid"] = keys.kid
	}
	return token.SignedString(keys.sign)
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, keys keySet) error {
	if tokenStr == "" {
		return fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if keys.kid != "" {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			if kid != keys.kid {
				return nil, errors.New("unknown kid")
			}
		}
		return keys.verify, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}

	iat, err := claims.GetIssuedAt()
	if err == nil && iat != nil && iat.After(m.config.Now().Add(m.config.MaxFutureIAT)) {
		return fmt.Errorf("%w: iat too far in the future", ErrTokenInvalid)
	}

	return nil
}

func resolveKeys(method SigningMethod, k Keys) (keySet, error) {
	ks := keySet{kid: strings.TrimSpace(k.KeyID)}

	switch method {
	case MethodHS256:
		if len(k.PrivateKey) == 0 {
			return keySet{}, errors.New("hs256 requires private key")
		}
		ks.sign = k.PrivateKey
		ks.verify = k.PrivateKey
	case MethodEd25519:
		if len(k.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(k.PrivateKey)
			if err != nil {
				return keySet{}, err
			}
			ks.sign = priv
			ks.verify = priv.Public()
		}
		if len(k.PublicKey) > 0 {
			pub, err := parseEdPublicKey(k.PublicKey)
			if err != nil {
				return keySet{}, err
			}
			ks.verify = pub
		}
		if ks.verify == nil {
			return keySet{}, errors.New("ed25519 requires public or private key")
		}
	}

	return ks, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
