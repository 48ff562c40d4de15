// Package config loads server configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/spf13/viper"
)

// Session store backends accepted by SESSION_STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds server configuration loaded from the environment.
type Config struct {
	// Addr is the HTTP listen address (e.g. :4000).
	Addr string `mapstructure:"TOKENAUTH_ADDR"`
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`

	// DatabaseURL is the Postgres DSN. Empty runs the user store in memory.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SessionStore selects the session backend: memory, redis or postgres.
	SessionStore string `mapstructure:"SESSION_STORE"`
	RedisAddr    string `mapstructure:"REDIS_ADDR"`
	RedisPass    string `mapstructure:"REDIS_PASSWORD"`
	RedisDB      int    `mapstructure:"REDIS_DB"`
	// StoreTimeout bounds each session and user store call (e.g. "2s").
	StoreTimeout string `mapstructure:"STORE_TIMEOUT"`

	JWTAccessSecret  string `mapstructure:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	JWTIssuer        string `mapstructure:"JWT_ISSUER"`
	JWTAudience      string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (default "1h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (default "24h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`

	CookieDomain   string `mapstructure:"COOKIE_DOMAIN"`
	CookieSecure   bool   `mapstructure:"COOKIE_SECURE"`
	CookieSameSite string `mapstructure:"COOKIE_SAMESITE"`
	// CORSOrigins is a comma-separated list of allowed browser origins.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	RevokeOnSignOut         bool `mapstructure:"REVOKE_ON_SIGNOUT"`
	GenericCredentialErrors bool `mapstructure:"GENERIC_CREDENTIAL_ERRORS"`
	AuditEnabled            bool `mapstructure:"AUDIT_ENABLED"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is ignored.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore missing file

	v.AutomaticEnv()

	v.SetDefault("TOKENAUTH_ADDR", ":4000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_STORE", StoreMemory)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("STORE_TIMEOUT", "2s")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("JWT_REFRESH_TTL", "24h")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("COOKIE_SAMESITE", "lax")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REVOKE_ON_SIGNOUT", false)
	v.SetDefault("GENERIC_CREDENTIAL_ERRORS", false)
	v.SetDefault("AUDIT_ENABLED", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("config: TOKENAUTH_ADDR must be set")
	}

	switch cfg.SessionStore {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: SESSION_STORE=postgres requires DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("config: SESSION_STORE must be memory, redis or postgres, got %q", cfg.SessionStore)
	}

	if cfg.SessionStore == StoreRedis && cfg.RedisAddr == "" {
		return nil, errors.New("config: SESSION_STORE=redis requires REDIS_ADDR")
	}

	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}

	if cfg.IsProduction() && !cfg.CookieSecure {
		return nil, errors.New("config: COOKIE_SECURE must be true when APP_ENV=production")
	}

	return &cfg, nil
}

// IsProduction reports whether Env names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// CORSOriginList returns the allowed origins from the comma-separated config.
func (c *Config) CORSOriginList() []string {
	if c == nil || c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ToEngineConfig maps the server settings onto the engine configuration
// and validates the result.
func (c *Config) ToEngineConfig() (tokenAuth.Config, error) {
	cfg := tokenAuth.DefaultConfig()

	accessTTL, err := parseDuration("JWT_ACCESS_TTL", c.JWTAccessTTL)
	if err != nil {
		return tokenAuth.Config{}, err
	}
	refreshTTL, err := parseDuration("JWT_REFRESH_TTL", c.JWTRefreshTTL)
	if err != nil {
		return tokenAuth.Config{}, err
	}
	storeTimeout, err := parseDuration("STORE_TIMEOUT", c.StoreTimeout)
	if err != nil {
		return tokenAuth.Config{}, err
	}
	sameSite, err := parseSameSite(c.CookieSameSite)
	if err != nil {
		return tokenAuth.Config{}, err
	}

	cfg.JWT.AccessTTL = accessTTL
	cfg.JWT.RefreshTTL = refreshTTL
	cfg.JWT.AccessSecret = []byte(c.JWTAccessSecret)
	cfg.JWT.RefreshSecret = []byte(c.JWTRefreshSecret)
	cfg.JWT.Issuer = c.JWTIssuer
	cfg.JWT.Audience = c.JWTAudience

	cfg.Session.StoreTimeout = storeTimeout
	if cfg.Session.Retention != 0 && cfg.Session.Retention < refreshTTL {
		cfg.Session.Retention = refreshTTL
	}

	cfg.Cookie.Domain = c.CookieDomain
	cfg.Cookie.Secure = c.CookieSecure
	cfg.Cookie.SameSite = sameSite

	cfg.Security.RevokeOnSignOut = c.RevokeOnSignOut
	cfg.Security.GenericCredentialErrors = c.GenericCredentialErrors
	cfg.Audit.Enabled = c.AuditEnabled

	if err := cfg.Validate(); err != nil {
		return tokenAuth.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return d, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("config: COOKIE_SAMESITE must be lax, strict or none, got %q", value)
	}
}
