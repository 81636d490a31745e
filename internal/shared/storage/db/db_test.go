package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                    { return nil }
func (nopStmt) NumInput() int                                   { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func ensureTestDriverRegistered() {
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
}

func withTestDriver(t *testing.T) func() {
	t.Helper()
	ensureTestDriverRegistered()
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return sql.Open("dbtest", dsn)
	}
	return func() {
		openDB = prev
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFromEnv(DefaultServerOptions())
	db, err := Connect(context.Background(), Postgres, "ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	stats := db.Stats()
	if stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", stats.MaxOpenConnections)
	}
	if opts.MaxIdleConns != 3 {
		t.Fatalf("expected MaxIdleConns=3, got %d", opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("expected ConnMaxLifetime=20m, got %s", opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("expected ConnMaxIdleTime=45s, got %s", opts.ConnMaxIdleTime)
	}
	if opts.PingTimeout != time.Second {
		t.Fatalf("expected PingTimeout=1s, got %s", opts.PingTimeout)
	}
}

func TestConnectRejectsEmptyDSN(t *testing.T) {
	if _, err := Connect(context.Background(), Postgres, "  ", DefaultServerOptions()); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestSQLiteDSNCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	dsn, err := SQLiteDSN(path)
	if err != nil {
		t.Fatalf("SQLiteDSN: %v", err)
	}
	if !strings.HasPrefix(dsn, "file:"+path+"?") || !strings.Contains(dsn, "journal_mode%28WAL%29") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if _, err := SQLiteDSN(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestRunMigrationsSQLite(t *testing.T) {
	dsn, err := SQLiteDSN(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("SQLiteDSN: %v", err)
	}
	ctx := context.Background()
	database, err := Connect(ctx, SQLite, dsn, DefaultSQLiteOptions())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer database.Close()

	if err := RunMigrations(ctx, database, SQLite); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	// A second run is a no-op.
	if err := RunMigrations(ctx, database, SQLite); err != nil {
		t.Fatalf("RunMigrations again: %v", err)
	}

	var name string
	row := database.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'analysis_records'")
	if err := row.Scan(&name); err != nil {
		t.Fatalf("analysis_records table missing: %v", err)
	}
}

func TestDriverDialect(t *testing.T) {
	if Postgres.Dialect() != "postgres" || SQLite.Dialect() != "sqlite3" {
		t.Fatalf("unexpected dialects %q %q", Postgres.Dialect(), SQLite.Dialect())
	}
	if migrationDir(SQLite) != "migrations/sqlite" || migrationDir(Postgres) != "migrations/postgres" {
		t.Fatalf("unexpected migration dirs")
	}
}
