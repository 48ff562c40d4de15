package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps user records in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]Record
	byUsername map[string]string
	now        func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]Record),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

// Create adds a record. An empty ID is replaced with a generated one.
func (m *MemoryStore) Create(ctx context.Context, rec Record) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := m.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byUsername[rec.Username]; ok {
		return nil, ErrDuplicate
	}
	if _, ok := m.byID[rec.ID]; ok {
		return nil, ErrDuplicate
	}
	m.byID[rec.ID] = rec
	m.byUsername[rec.Username] = rec.ID

	out := rec
	return &out, nil
}

// GetByUsername looks a record up by exact username.
func (m *MemoryStore) GetByUsername(ctx context.Context, username string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	rec := m.byID[id]
	return &rec, nil
}

// GetByID looks a record up by id.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Delete removes a record. Deleting an unknown id is not an error.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.byID[id]; ok {
		delete(m.byUsername, rec.Username)
		delete(m.byID, id)
	}
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
