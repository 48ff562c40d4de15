package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads and writes the users table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed user store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const selectUserColumns = `
	SELECT id, username, email, first_name, last_name, password_hash, created_at, updated_at
	FROM users
`

// Create inserts a new user. The database assigns the id when rec.ID is empty.
func (s *PostgresStore) Create(ctx context.Context, rec Record) (*Record, error) {
	query := `
		INSERT INTO users (id, username, email, first_name, last_name, password_hash)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	out := rec
	err := s.pool.QueryRow(ctx, query,
		rec.ID,
		rec.Username,
		rec.Email,
		rec.FirstName,
		rec.LastName,
		rec.PasswordHash,
	).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &out, nil
}

// GetByUsername looks a user up by exact username.
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*Record, error) {
	return s.getOne(ctx, selectUserColumns+` WHERE username = $1`, username)
}

// GetByID looks a user up by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Record, error) {
	return s.getOne(ctx, selectUserColumns+` WHERE id = $1`, id)
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg string) (*Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&rec.ID,
		&rec.Username,
		&rec.Email,
		&rec.FirstName,
		&rec.LastName,
		&rec.PasswordHash,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &rec, nil
}
