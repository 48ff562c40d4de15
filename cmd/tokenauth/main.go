package main

import (
	"context"

	"github.com/MrEthical07/tokenAuth/cmd/tokenauth/internal/commands"
	"github.com/alecthomas/kong"
)

var version = "dev"

type cli struct {
	Debug   bool `help:"Enable debug logging."`
	Version kong.VersionFlag

	Serve        commands.ServeCmd        `cmd:"" help:"Start the auth server."`
	Migrate      commands.MigrateCmd      `cmd:"" help:"Apply or roll back the database schema."`
	HashPassword commands.HashPasswordCmd `cmd:"" name:"hash-password" help:"Print an Argon2id hash of a password read from stdin."`
	CreateUser   commands.CreateUserCmd   `cmd:"" name:"create-user" help:"Create a user whose password is read from stdin."`
}

func main() {
	var c cli
	ctx := context.Background()
	cmd := kong.Parse(&c,
		kong.Name("tokenauth"),
		kong.Description("Session and token authentication server."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: c.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
