package tokenAuth

import (
	"context"

	internalaudit "github.com/MrEthical07/tokenAuth/internal/audit"
	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/session"
)

// SessionStore persists session records. session.MemoryStore,
// session.RedisStore and session.PostgresStore implement it.
//
// Implementations must return errors wrapping session.ErrNotFound for
// unknown ids and session.ErrUnavailable for backend failures.
type SessionStore interface {
	Create(ctx context.Context, p session.Params) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	SetValid(ctx context.Context, id string, valid bool) error
	Ping(ctx context.Context) error
}

// UserStore resolves users for credential checks and renewal.
// identity.MemoryStore and identity.PostgresStore implement it.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*identity.Record, error)
	GetByID(ctx context.Context, id string) (*identity.Record, error)
	Ping(ctx context.Context) error
}

// Tokens is the pair of credentials a transport extracted from a request.
// Either field may be empty.
type Tokens struct {
	Access  string
	Refresh string
}

// SignInResult is returned by a successful SignIn.
type SignInResult struct {
	AccessToken  string
	RefreshToken string
	User         identity.User
	SessionID    string
}

// GateState is the authentication state a request resolved to.
type GateState int

const (
	StateUnauthenticated GateState = iota
	StateAccessValid
	StateAccessExpiredRefreshValid
	StateAccessExpiredRefreshInvalid
	StateNoTokensPresent
)

func (s GateState) String() string {
	switch s {
	case StateAccessValid:
		return "access_valid"
	case StateAccessExpiredRefreshValid:
		return "access_expired_refresh_valid"
	case StateAccessExpiredRefreshInvalid:
		return "access_expired_refresh_invalid"
	case StateNoTokensPresent:
		return "no_tokens_present"
	default:
		return "unauthenticated"
	}
}

// GateResult describes an admitted request. When Refreshed is true,
// AccessToken is newly minted and must be handed back to the client.
type GateResult struct {
	State       GateState
	User        identity.User
	SessionID   string
	AccessToken string
	Refreshed   bool
}

// AuditEvent is the audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink consumes audit events.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events on a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZerologSink logs audit events.
type ZerologSink = internalaudit.ZerologSink

// MultiSink fans audit events out to several sinks.
type MultiSink = internalaudit.MultiSink

// AuditStats reports dispatcher counters.
type AuditStats = internalaudit.Stats

var (
	NewChannelSink    = internalaudit.NewChannelSink
	NewJSONWriterSink = internalaudit.NewJSONWriterSink
	NewZerologSink    = internalaudit.NewZerologSink
)
