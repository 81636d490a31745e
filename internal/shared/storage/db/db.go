package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	_ "modernc.org/sqlite"             // register sqlite as database/sql driver

	"summarize-backend/internal/shared/telemetry"
)

// Driver names a registered database/sql driver.
type Driver string

const (
	Postgres Driver = "pgx"
	SQLite   Driver = "sqlite"
)

// Dialect returns the goose dialect for d.
func (d Driver) Dialect() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = sql.Open

// DefaultServerOptions returns defaults for long-running server processes.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultSQLiteOptions serializes access through one connection; sqlite allows a single writer.
func DefaultSQLiteOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultMigrateOptions returns defaults for short-lived CLI migrations.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// OptionsFromEnv overrides defaults with DB_* env vars if present.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	if v, ok := readEnvInt("DB_MAX_OPEN_CONNS"); ok {
		opts.MaxOpenConns = v
	}
	if v, ok := readEnvInt("DB_MAX_IDLE_CONNS"); ok {
		opts.MaxIdleConns = v
	}
	if v, ok := readEnvDuration("DB_CONN_MAX_LIFETIME"); ok {
		opts.ConnMaxLifetime = v
	}
	if v, ok := readEnvDuration("DB_CONN_MAX_IDLE_TIME"); ok {
		opts.ConnMaxIdleTime = v
	}
	if v, ok := readEnvDuration("DB_PING_TIMEOUT"); ok {
		opts.PingTimeout = v
	}
	return opts
}

// SQLiteDSN builds a modernc sqlite DSN for path with WAL and a busy timeout, creating the
// parent directory when needed.
func SQLiteDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("SQLITE_PATH is empty")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode(), nil
}

// Connect opens a *sql.DB for driver and dsn and verifies connectivity.
// The returned *sql.DB should be shared and re-used by callers.
func Connect(ctx context.Context, driver Driver, dsn string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s dsn is empty", driver)
	}

	db, err := openDB(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	applyOptions(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(db, driver)
	return db, nil
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(db *sql.DB, driver Driver) {
	stats := db.Stats()
	telemetry.Info("db.init", map[string]any{
		"driver":   string(driver),
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"max_open": stats.MaxOpenConnections,
	})
}

func readEnvInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err})
		return 0, false
	}
	return val, true
}

func readEnvDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "error": err})
		return 0, false
	}
	return val, true
}
