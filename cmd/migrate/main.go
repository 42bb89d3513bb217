// Command migrate runs schema migrations outside the API process.
//
//	migrate up | down [N] | force VERSION | version
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/config"
	"github.com/yourusername/marketplace-api/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Log.Level, "console")

	if err := run(cfg, flag.Args()); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func run(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate [-config path] up | down [N] | force VERSION | version")
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	path := cfg.Database.MigrationsPath
	if path == "" {
		path = "migrations"
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if len(args) > 1 {
			if steps, err = strconv.Atoi(args[1]); err != nil || steps <= 0 {
				return fmt.Errorf("down expects a positive step count")
			}
		}
		err = m.Steps(-steps)
	case "force":
		// Снимает флаг dirty после упавшей миграции
		if len(args) < 2 {
			return fmt.Errorf("force expects a version")
		}
		version, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		err = m.Force(version)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if verr != nil {
			return verr
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("No change")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("command", args[0]).Msg("Done")
	return nil
}
