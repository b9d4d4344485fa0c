package main

import (
	"flag"
	"os"

	"github.com/Rrens/chat-share/internal/config"
	"github.com/Rrens/chat-share/internal/logging"
	"github.com/Rrens/chat-share/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration instead of applying pending ones")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if _, closer, err := logging.Setup(cfg.Logging, os.Getenv("ENV") == "production"); err == nil {
		defer closer.Close()
	}

	if cfg.Database.Driver != "postgres" {
		log.Info().Str("driver", cfg.Database.Driver).Msg("Schema is applied on startup for this driver; nothing to migrate")
		return
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("source", cfg.Database.MigrationsPath).
		Msg("Connecting to database")

	if *down {
		err = postgres.RollbackMigrations(cfg.Database.DSN(), cfg.Database.MigrationsPath)
	} else {
		err = postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsPath)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
