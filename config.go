package tokenAuth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config is the complete engine configuration. Build clones it, so changes
// made after Build have no effect on a running Engine.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Cookie   CookieConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token lifetimes and signing keys.
//
// For hs256, AccessSecret and RefreshSecret are the two independent MAC
// secrets. For ed25519, PrivateKey and PublicKey sign access tokens and
// KeyID is stamped in the kid header. The Refresh* keypair signs refresh
// tokens; when it is left empty the access keypair signs both kinds.
type JWTConfig struct {
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	SigningMethod     string // "hs256" (default) or "ed25519"
	AccessSecret      []byte
	RefreshSecret     []byte
	PrivateKey        []byte
	PublicKey         []byte
	KeyID             string
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte
	RefreshKeyID      string
	Issuer            string
	Audience          string
	Leeway            time.Duration
	MaxFutureIAT      time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig bounds store calls and sets how long records are retained.
type SessionConfig struct {
	RedisPrefix  string
	StoreTimeout time.Duration
	// Retention is the record TTL applied by stores that support expiry.
	// Zero keeps records forever.
	Retention time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig shapes the two token cookies.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Path        string
	Domain      string
	HTTPOnly    bool
	Secure      bool
	SameSite    http.SameSite
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters. MinLength only applies when
// hashing new passwords.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig toggles optional hardening. Both options are off by
// default.
type SecurityConfig struct {
	// RevokeOnSignOut marks the session invalid when SignOut receives a
	// verifiable refresh token.
	RevokeOnSignOut bool
	// GenericCredentialErrors collapses unknown-user and wrong-password
	// into ErrInvalidCredentials.
	GenericCredentialErrors bool
}

/*
====================================
AUDIT & METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the gate histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration: 1h access tokens, 24h
// refresh tokens, HttpOnly cookies, and a 2s store timeout. Secrets are left
// empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     time.Hour,
			RefreshTTL:    24 * time.Hour,
			SigningMethod: "hs256",
			Leeway:        0,
			MaxFutureIAT:  time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix:  "sess",
			StoreTimeout: 2 * time.Second,
			Retention:    24 * time.Hour,
		},
		Cookie: CookieConfig{
			AccessName:  "accessToken",
			RefreshName: "refreshToken",
			Path:        "/",
			HTTPOnly:    true,
			Secure:      false,
			SameSite:    http.SameSiteLaxMode,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MaxLength:   1024,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.JWT.RefreshPrivateKey = cloneBytes(cfg.JWT.RefreshPrivateKey)
	out.JWT.RefreshPublicKey = cloneBytes(cfg.JWT.RefreshPublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first configuration problem found, or nil.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be greater than AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}
	if c.JWT.Issuer != "" && strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must not be blank")
	}
	if c.JWT.MaxFutureIAT < 0 || c.JWT.MaxFutureIAT > 24*time.Hour {
		return errors.New("JWT MaxFutureIAT must be between 0 and 24h")
	}
	switch strings.ToLower(c.JWT.SigningMethod) {
	case "hs256":
		if len(c.JWT.AccessSecret) < 32 {
			return errors.New("JWT AccessSecret must be at least 32 bytes")
		}
		if len(c.JWT.RefreshSecret) < 32 {
			return errors.New("JWT RefreshSecret must be at least 32 bytes")
		}
		if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
			return errors.New("JWT AccessSecret and RefreshSecret must differ")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("JWT ed25519 requires PrivateKey and PublicKey")
		}
		hasPriv, hasPub := len(c.JWT.RefreshPrivateKey) > 0, len(c.JWT.RefreshPublicKey) > 0
		if hasPriv != hasPub {
			return errors.New("JWT ed25519 RefreshPrivateKey and RefreshPublicKey must be set together")
		}
		if hasPriv && string(c.JWT.RefreshPrivateKey) == string(c.JWT.PrivateKey) {
			return errors.New("JWT ed25519 refresh keypair must differ from the access keypair")
		}
	default:
		return errors.New("JWT SigningMethod must be 'hs256' or 'ed25519'")
	}

	// Session
	if c.Session.StoreTimeout <= 0 {
		return errors.New("Session StoreTimeout must be > 0")
	}
	if c.Session.Retention < 0 {
		return errors.New("Session Retention must be >= 0")
	}
	if c.Session.Retention > 0 && c.Session.Retention < c.JWT.RefreshTTL {
		return errors.New("Session Retention must cover JWT RefreshTTL")
	}

	// Cookie
	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" {
		return errors.New("Cookie names must be set")
	}
	if c.Cookie.AccessName == c.Cookie.RefreshName {
		return errors.New("Cookie AccessName and RefreshName must differ")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 0 {
		return errors.New("Password MinLength must be >= 0")
	}
	if c.Password.MaxLength > 0 && c.Password.MinLength > c.Password.MaxLength {
		return errors.New("Password MinLength must not exceed MaxLength")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
