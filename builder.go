package tokenAuth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/tokenAuth/credential"
	internalaudit "github.com/MrEthical07/tokenAuth/internal/audit"
	"github.com/MrEthical07/tokenAuth/jwt"
	"github.com/MrEthical07/tokenAuth/password"
	"github.com/rs/zerolog"
)

// dummyPassword is hashed once at Build so that unknown usernames cost a
// full Argon2 verification.
const dummyPassword = "tokenAuth-dummy-password"

// Builder assembles an Engine. A Builder can be used for one Build only.
type Builder struct {
	config Config

	sessions SessionStore
	users    UserStore

	auditSink AuditSink
	logger    *zerolog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessions = store
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithAuditSink sets the audit destination. Events are only dispatched when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithClock overrides the token clock. Tests use it to step past expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.sessions == nil {
		return nil, errors.New("session store required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MinPasswordBytes: cfg.Password.MinLength,
		MaxPasswordBytes: cfg.Password.MaxLength,
	})
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	jwtManager, err := jwt.NewManager(jwtConfig(cfg.JWT, b.now))
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	e := &Engine{
		config:     cfg,
		sessions:   b.sessions,
		users:      b.users,
		hasher:     hasher,
		verifier:   credential.NewVerifier(b.users, hasher, dummyHash),
		jwtManager: jwtManager,
		metrics:    NewMetrics(cfg.Metrics),
		logger:     logger.With().Str("component", "tokenAuth").Logger(),
	}
	e.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	e.initFlowDeps()

	b.built = true
	return e, nil
}

func jwtConfig(cfg JWTConfig, now func() time.Time) jwt.Config {
	out := jwt.Config{
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		SigningMethod: jwt.SigningMethod(strings.ToLower(cfg.SigningMethod)),
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		Leeway:        cfg.Leeway,
		MaxFutureIAT:  cfg.MaxFutureIAT,
		Now:           now,
	}
	if out.SigningMethod == jwt.MethodEd25519 {
		out.AccessKeys = jwt.Keys{PrivateKey: cfg.PrivateKey, PublicKey: cfg.PublicKey, KeyID: cfg.KeyID}
		// left empty, the manager reuses the access keypair
		out.RefreshKeys = jwt.Keys{PrivateKey: cfg.RefreshPrivateKey, PublicKey: cfg.RefreshPublicKey, KeyID: cfg.RefreshKeyID}
		return out
	}
	out.AccessKeys = jwt.Keys{PrivateKey: cfg.AccessSecret}
	out.RefreshKeys = jwt.Keys{PrivateKey: cfg.RefreshSecret}
	return out
}
