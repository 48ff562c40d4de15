package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	opts     options
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		opts:     buildOptions(opts),
	}
}

// Create stores a new session and returns it with its assigned id.
func (m *MemoryStore) Create(ctx context.Context, p Params) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := NewID()
	if err != nil {
		return nil, err
	}

	s := Session{
		ID:        id,
		UserID:    p.UserID,
		UserAgent: p.UserAgent,
		Valid:     p.Valid,
		CreatedAt: m.opts.now().UTC(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	return clone(&s), nil
}

// Get returns a copy of the session or [ErrNotFound].
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return clone(&s), nil
}

// SetValid flips the validity flag of an existing session.
func (m *MemoryStore) SetValid(ctx context.Context, id string, valid bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Valid = valid
	m.sessions[id] = s
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len reports the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
