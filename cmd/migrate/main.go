package main

// Run database migrations for the configured history store:
//   go run ./cmd/migrate

import (
	"context"
	"log"
	"os"

	"summarize-backend/internal/shared/config"
	"summarize-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var (
		driver db.Driver
		dsn    string
		opts   = db.OptionsFromEnv(db.DefaultMigrateOptions())
	)
	switch cfg.HistoryStore {
	case "postgres":
		driver, dsn = db.Postgres, cfg.DatabaseURL
	case "sqlite":
		path, err := db.SQLiteDSN(cfg.SQLitePath)
		if err != nil {
			log.Printf("invalid sqlite path: %v", err)
			os.Exit(1)
		}
		driver, dsn = db.SQLite, path
		opts = db.DefaultSQLiteOptions()
	default:
		log.Printf("HISTORY_STORE=%s has no migrations", cfg.HistoryStore)
		return
	}

	sqlDB, err := db.Connect(ctx, driver, dsn, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, driver); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	log.Printf("migrations applied (%s)", driver)
}
