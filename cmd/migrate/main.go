package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"doodle-chain/internal/config"
	"doodle-chain/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

const migrationsDir = "db/migrations"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogPretty)

	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate up | down [-steps N] | create NAME")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch cmd := flag.Arg(0); cmd {
	case "up":
		m := mustMigrator(cfg)
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		log.Info().Msg("database migrations applied")
	case "down":
		fs := flag.NewFlagSet("down", flag.ExitOnError)
		steps := fs.Int("steps", 1, "number of migrations to roll back")
		_ = fs.Parse(flag.Args()[1:])
		m := mustMigrator(cfg)
		if err := m.Steps(-*steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("database rollback failed")
		}
		log.Info().Int("steps", *steps).Msg("database migrations rolled back")
	case "create":
		if flag.NArg() < 2 {
			log.Fatal().Msg("migration name is required")
		}
		if err := create(flag.Arg(1), time.Now().UTC()); err != nil {
			log.Fatal().Err(err).Msg("create migration failed")
		}
	default:
		log.Fatal().Str("command", cmd).Msg("unknown command")
	}
}

func mustMigrator(cfg config.Config) *migrate.Migrate {
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}
	m, err := migrate.New("file://"+migrationsDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("migration setup failed")
	}
	return m
}

func create(name string, now time.Time) error {
	if strings.ContainsAny(name, " ") {
		return errors.New("migration name must not contain spaces")
	}
	base := fmt.Sprintf("%s_%s", now.Format("20060102150405"), name)
	upPath := filepath.Join(migrationsDir, base+".up.sql")
	downPath := filepath.Join(migrationsDir, base+".down.sql")

	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return fmt.Errorf("create migrations dir: %w", err)
	}
	if err := writeFile(upPath, "-- up migration\n"); err != nil {
		return err
	}
	if err := writeFile(downPath, "-- down migration\n"); err != nil {
		return err
	}
	log.Info().Str("up", upPath).Str("down", downPath).Msg("migration created")
	return nil
}

func writeFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
