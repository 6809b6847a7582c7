// Package main applies the gateway's database schema and seeds the chain registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/config"
	"github.com/Aghostraa/oli-frontend/internal/logging"
	"github.com/Aghostraa/oli-frontend/internal/storage"
	"github.com/Aghostraa/oli-frontend/migrations"
)

func main() {
	var (
		action = flag.String("action", "up", "up, down, version or seed (seed is postgres only)")
		dbType = flag.String("db", "postgres", "postgres or clickhouse")
		dir    = flag.String("dir", "", "read <dir>/postgres and <dir>/clickhouse instead of the embedded migrations")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger().WithFields(map[string]interface{}{
		"db":     *dbType,
		"action": *action,
	})

	ctx, cancel := context.WithTimeout(logging.WithLogger(context.Background(), logger), 5*time.Minute)
	defer cancel()

	switch *dbType {
	case "postgres":
		err = migratePostgres(ctx, cfg, *action, source(*dir, "postgres", migrations.Postgres))
	case "clickhouse":
		err = migrateClickHouse(ctx, cfg, *action, source(*dir, "clickhouse", migrations.ClickHouse))
	default:
		err = fmt.Errorf("unknown database type %q", *dbType)
	}
	if err != nil {
		cancel()
		logger.WithError(err).Fatal("Migration failed")
	}
}

// source picks the on-disk override when -dir is set
func source(dir, db string, embedded func() fs.FS) fs.FS {
	if dir == "" {
		return embedded()
	}
	return os.DirFS(filepath.Join(dir, db))
}

func migratePostgres(ctx context.Context, cfg *config.Config, action string, files fs.FS) error {
	logger := logging.FromContext(ctx)

	if action == "seed" {
		db, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()

		written, err := storage.NewChainRepository(db).SeedDefaults(ctx, chains.DefaultDescriptors())
		if err != nil {
			return err
		}
		logger.WithField("chains", written).Info("Seeded chain registry")
		return nil
	}

	migrator, err := storage.NewPostgresMigrator(cfg.Database.Postgres.URL(), files)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.WithError(err).Warn("Error closing migrator")
		}
	}()

	switch action {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "version":
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		return err
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	logger.WithFields(map[string]interface{}{
		"version": version,
		"dirty":   dirty,
	}).Info("Postgres schema version")
	return nil
}

func migrateClickHouse(ctx context.Context, cfg *config.Config, action string, files fs.FS) error {
	if action != "up" {
		return fmt.Errorf("clickhouse migrations only support up, got %q", action)
	}

	db, err := storage.NewClickHouseDB(ctx, &cfg.Database.ClickHouse)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Error closing ClickHouse connection")
		}
	}()

	applied, err := storage.RunClickHouseMigrations(ctx, db, files)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).WithField("files", applied).Info("ClickHouse migrations applied")
	return nil
}
