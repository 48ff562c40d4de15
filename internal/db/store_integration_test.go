//go:build integration

package db_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/internal/db"
	"github.com/MrEthical07/tokenAuth/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway Postgres, applies the migrations and
// returns a pool connected to it.
func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	require.NoError(t, db.Migrate(dsn, db.Up))
	require.NoError(t, db.Migrate(dsn, db.Up), "second run must be a no-op")

	pool, err := db.NewPool(ctx, &db.PoolConfig{ConnString: dsn, MaxConns: 5, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool, dsn
}

func TestPostgresStores(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, dsn := setupPostgres(t, ctx)
	users := identity.NewPostgresStore(pool)
	sessions := session.NewPostgresStore(pool)

	t.Run("users", func(t *testing.T) {
		rec, err := users.Create(ctx, identity.Record{
			User:         identity.User{Username: "alice", Email: "alice@example.com", FirstName: "Alice"},
			PasswordHash: "$argon2id$placeholder",
		})
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID)
		require.False(t, rec.CreatedAt.IsZero())

		_, err = users.Create(ctx, identity.Record{User: identity.User{Username: "alice"}, PasswordHash: "x"})
		require.ErrorIs(t, err, identity.ErrDuplicate)

		byName, err := users.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, rec.ID, byName.ID)
		require.Equal(t, "$argon2id$placeholder", byName.PasswordHash)

		byID, err := users.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		require.Equal(t, "Alice", byID.Sanitize().FirstName)

		_, err = users.GetByUsername(ctx, "bob")
		require.ErrorIs(t, err, identity.ErrNotFound)
		_, err = users.GetByID(ctx, "not-a-uuid")
		require.ErrorIs(t, err, identity.ErrNotFound)
	})

	t.Run("sessions", func(t *testing.T) {
		owner, err := users.Create(ctx, identity.Record{User: identity.User{Username: "carol"}, PasswordHash: "x"})
		require.NoError(t, err)

		sess, err := sessions.Create(ctx, session.Params{UserID: owner.ID, UserAgent: "Firefox", Valid: true})
		require.NoError(t, err)

		got, err := sessions.Get(ctx, sess.ID)
		require.NoError(t, err)
		require.Equal(t, owner.ID, got.UserID)
		require.Equal(t, "Firefox", got.UserAgent)
		require.True(t, got.Valid)

		require.NoError(t, sessions.SetValid(ctx, sess.ID, false))
		got, err = sessions.Get(ctx, sess.ID)
		require.NoError(t, err)
		require.False(t, got.Valid)

		_, err = sessions.Get(ctx, "0190a6f0-0000-7000-8000-000000000000")
		require.True(t, errors.Is(err, session.ErrNotFound))
		require.ErrorIs(t, sessions.SetValid(ctx, "garbage", false), session.ErrNotFound)
		require.NoError(t, sessions.Ping(ctx))
	})

	t.Run("gate after user deleted", func(t *testing.T) {
		now := time.Now().UTC()
		cfg := tokenAuth.DefaultConfig()
		cfg.JWT.AccessSecret = []byte(strings.Repeat("a", 32))
		cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", 32))
		cfg.Password.Memory = 8 * 1024
		cfg.Password.Time = 1
		cfg.Password.Parallelism = 1

		engine, err := tokenAuth.New().
			WithConfig(cfg).
			WithSessionStore(sessions).
			WithUserStore(users).
			WithClock(func() time.Time { return now }).
			Build()
		require.NoError(t, err)
		defer engine.Close()

		hash, err := engine.HashPassword("correct horse")
		require.NoError(t, err)
		_, err = users.Create(ctx, identity.Record{User: identity.User{Username: "dave"}, PasswordHash: hash})
		require.NoError(t, err)

		res, err := engine.SignIn(ctx, "dave", "correct horse")
		require.NoError(t, err)

		_, err = pool.Exec(ctx, "DELETE FROM users WHERE id = $1", res.User.ID)
		require.NoError(t, err)

		// the session row outlives its user
		sess, err := sessions.Get(ctx, res.SessionID)
		require.NoError(t, err)
		require.True(t, sess.Valid)

		now = now.Add(61 * time.Minute)
		_, err = engine.Gate(ctx, tokenAuth.Tokens{Access: res.AccessToken, Refresh: res.RefreshToken})
		require.True(t, tokenAuth.IsNotFound(err), "got %v", err)
		require.ErrorIs(t, err, tokenAuth.ErrUserNotFound)
	})

	t.Run("down", func(t *testing.T) {
		require.NoError(t, db.Migrate(dsn, db.Down))
		_, err := users.GetByUsername(ctx, "alice")
		require.ErrorIs(t, err, identity.ErrUnavailable)
	})
}
