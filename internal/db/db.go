// internal/db/db.go
package db

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/unclebandit/leadgen-backend/internal/config"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// DB wraps sqlx.DB with the driver it was opened with.
type DB struct {
	*sqlx.DB
	Driver string
}

// Open connects to the configured store and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	driver := cfg.Driver
	dsn := cfg.GetDatabaseURL()
	if driver == "sqlite" {
		dsn = sqliteDSN(dsn)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.MaxConns)
		conn.SetMaxIdleConns(cfg.MinConns)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	logrus.WithField("driver", driver).Info("Connected to database")
	return &DB{DB: conn, Driver: driver}, nil
}

// OpenSQLite opens a SQLite file store and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	d, err := Open(ctx, config.DatabaseConfig{Driver: "sqlite", SQLitePath: path})
	if err != nil {
		return nil, err
	}
	if err := d.EnsureSchema(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func sqliteDSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
}

// EnsureSchema creates missing tables for the current driver.
func (d *DB) EnsureSchema(ctx context.Context) error {
	raw, err := schemaFS.ReadFile("schema/" + d.Driver + ".sql")
	if err != nil {
		return fmt.Errorf("failed to read %s schema: %w", d.Driver, err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Health pings the database with a short deadline.
func (d *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.PingContext(ctx)
}
