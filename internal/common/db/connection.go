package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ridership3d/internal/common/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DB struct {
	conn   *sql.DB
	driver string
	logger logger.Logger
}

// New opens and pings a database. For sqlite, dsn is a file path.
func New(driver, dsn string, logger logger.Logger) (*DB, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		dsn = dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(time.Hour)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("Database connection established", "driver", driver)

	return &DB{
		conn:   conn,
		driver: driver,
		logger: logger,
	}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Rebind rewrites ? placeholders into the driver's bind syntax.
func (db *DB) Rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS load_runs (
		run_id         TEXT PRIMARY KEY,
		source         TEXT NOT NULL,
		source_name    TEXT NOT NULL,
		schema_kind    TEXT NOT NULL,
		null_policy    TEXT NOT NULL,
		digest         TEXT NOT NULL DEFAULT '',
		encoding       TEXT,
		input_rows     INTEGER NOT NULL DEFAULT 0,
		retained_rows  INTEGER NOT NULL DEFAULT 0,
		dropped_rows   INTEGER NOT NULL DEFAULT 0,
		zero_filled    INTEGER NOT NULL DEFAULT 0,
		distinct_lines INTEGER NOT NULL DEFAULT 0,
		cached         BOOLEAN NOT NULL DEFAULT FALSE,
		error_kind     TEXT,
		error_message  TEXT,
		duration_ms    BIGINT NOT NULL DEFAULT 0,
		created_at     BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_load_runs_created_at ON load_runs (created_at)`,
}

// Migrate creates the history tables when missing.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying migration: %w", err)
		}
	}
	db.logger.Debug("Database schema up to date", "driver", db.driver)
	return nil
}
