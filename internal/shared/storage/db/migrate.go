package db

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// RunMigrations applies the embedded SQL migrations for driver via goose. If database is nil,
// it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, driver Driver) error {
	if database == nil {
		return nil
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(driver.Dialect()); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, migrationDir(driver))
}

func migrationDir(driver Driver) string {
	if driver == SQLite {
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}
