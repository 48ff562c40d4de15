package commands

import (
	"github.com/MrEthical07/tokenAuth/internal/db"
	"github.com/MrEthical07/tokenAuth/internal/logging"
)

type MigrateCmd struct {
	Direction   string `arg:"" optional:"" help:"up or down" enum:"up,down" default:"up"`
	DatabaseURL string `help:"PostgreSQL connection string" env:"DATABASE_URL" required:""`
}

func (c *MigrateCmd) Run(globals *Globals) error {
	log := logging.Setup(globals.Debug)

	if err := db.Migrate(c.DatabaseURL, c.Direction); err != nil {
		return err
	}
	log.Info().Str("direction", c.Direction).Msg("Migrations applied")
	return nil
}
