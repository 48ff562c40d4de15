package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no session exists for the requested id.
	ErrNotFound = errors.New("session not found")
	// ErrUnavailable wraps storage backend failures.
	ErrUnavailable = errors.New("session store unavailable")
	// ErrCorrupt is returned when a stored record cannot be decoded.
	ErrCorrupt = errors.New("session record corrupt")
)

// Session is one login of one user agent.
//
// Valid starts true and only ever transitions to false through revocation.
type Session struct {
	ID        string
	UserID    string
	UserAgent string
	Valid     bool
	CreatedAt time.Time
}

// Params holds the caller-supplied fields of a new session. The store
// assigns the id and creation time.
type Params struct {
	UserID    string
	UserAgent string
	Valid     bool
}

// NewID returns a fresh time-ordered session identifier.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func clone(s *Session) *Session {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
