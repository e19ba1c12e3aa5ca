package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"spotifiuby/internal/config"
	"spotifiuby/internal/logging"
	"spotifiuby/internal/store"
)

func main() {
	app := &cli.Command{
		Name:  "spotifiuby",
		Usage: "Songs catalog service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Flags:  []cli.Flag{configFlag()},
				Action: runServe,
			},
			{
				Name:  "migrate",
				Usage: "Apply or roll back the Postgres schema",
				Commands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "Apply all pending migrations",
						Flags:  []cli.Flag{configFlag()},
						Action: migrateAction(store.MigrateUp),
					},
					{
						Name:   "down",
						Usage:  "Roll back all migrations",
						Flags:  []cli.Flag{configFlag()},
						Action: migrateAction(store.MigrateDown),
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Insert demo catalog data when the catalog is empty",
				Flags:  []cli.Flag{configFlag()},
				Action: runSeed,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a YAML configuration file",
	}
}

// setup loads configuration and installs the global logger.
func setup(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	logging.SetGlobalLogger(logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}))
	return cfg, nil
}

func migrateAction(direction store.MigrateDirection) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.Driver != config.DriverPostgres {
			return fmt.Errorf("migrations apply to the %s driver only", config.DriverPostgres)
		}

		db, err := openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.Migrate(db, direction); err != nil {
			return err
		}
		log.Info().Str("direction", string(direction)).Msg("migrations applied")
		return nil
	}
}
