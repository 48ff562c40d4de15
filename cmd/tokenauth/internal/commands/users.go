package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/internal/db"
	"github.com/MrEthical07/tokenAuth/password"
)

type HashPasswordCmd struct{}

func (c *HashPasswordCmd) Run() error {
	return hashPassword(os.Stdin, os.Stdout)
}

func hashPassword(in io.Reader, out io.Writer) error {
	plain, err := readPassword(in)
	if err != nil {
		return err
	}

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, hash)
	return err
}

type CreateUserCmd struct {
	Username    string `arg:"" help:"unique login name"`
	Email       string `help:"email address"`
	FirstName   string `help:"given name"`
	LastName    string `help:"family name"`
	DatabaseURL string `help:"PostgreSQL connection string" env:"DATABASE_URL" required:""`
}

func (c *CreateUserCmd) Run(ctx context.Context) error {
	plain, err := readPassword(os.Stdin)
	if err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, &db.PoolConfig{ConnString: c.DatabaseURL, MinConns: 1, MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	rec, err := c.create(ctx, identity.NewPostgresStore(pool), plain)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, rec.ID)
	return nil
}

type userCreator interface {
	Create(ctx context.Context, rec identity.Record) (*identity.Record, error)
}

func (c *CreateUserCmd) create(ctx context.Context, users userCreator, plain string) (*identity.Record, error) {
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		return nil, err
	}

	rec, err := users.Create(ctx, identity.Record{
		User: identity.User{
			Username:  c.Username,
			Email:     c.Email,
			FirstName: c.FirstName,
			LastName:  c.LastName,
		},
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create user %q: %w", c.Username, err)
	}
	return rec, nil
}
