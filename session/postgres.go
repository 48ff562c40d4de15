package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions in the sessions table created by the
// bundled migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts options
}

// NewPostgresStore creates a new PostgreSQL-backed session store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		opts: buildOptions(opts),
	}
}

// Create inserts a new session row. Retried inserts reuse the same id and
// are absorbed by the conflict clause.
func (s *PostgresStore) Create(ctx context.Context, p Params) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        id,
		UserID:    p.UserID,
		UserAgent: p.UserAgent,
		Valid:     p.Valid,
		CreatedAt: s.opts.now().UTC().Truncate(time.Microsecond),
	}

	query := `
		INSERT INTO sessions (id, user_id, user_agent, valid, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = withRetry(ctx, s.opts.retry, func() (struct{}, error) {
		_, err := s.pool.Exec(ctx, query, sess.ID, sess.UserID, sess.UserAgent, sess.Valid, sess.CreatedAt)
		if err != nil {
			return struct{}{}, classifyPgError(err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// Get retrieves a session by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, user_id, user_agent, valid, created_at
		FROM sessions
		WHERE id = $1
	`

	return withRetry(ctx, s.opts.retry, func() (*Session, error) {
		var sess Session
		err := s.pool.QueryRow(ctx, query, id).Scan(
			&sess.ID,
			&sess.UserID,
			&sess.UserAgent,
			&sess.Valid,
			&sess.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, classifyPgError(err)
		}
		sess.CreatedAt = sess.CreatedAt.UTC()
		return &sess, nil
	})
}

// SetValid updates the validity flag of an existing session.
func (s *PostgresStore) SetValid(ctx context.Context, id string, valid bool) error {
	query := `UPDATE sessions SET valid = $2 WHERE id = $1`

	_, err := withRetry(ctx, s.opts.retry, func() (struct{}, error) {
		result, err := s.pool.Exec(ctx, query, id, valid)
		if err != nil {
			return struct{}{}, classifyPgError(err)
		}
		if result.RowsAffected() == 0 {
			return struct{}{}, ErrNotFound
		}
		return struct{}{}, nil
	})
	return err
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// classifyPgError maps malformed ids to ErrNotFound; every other database
// error is treated as a backend failure.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
