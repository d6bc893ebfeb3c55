// Package database centralises sqlx connection helpers.  Three drivers are
// supported: go-sql-driver/mysql (the default, also fine for MariaDB),
// lib/pq for PostgreSQL, and mattn/go-sqlite3 for local demos and tests.
//
// Public entry points:
//
//	Open(driver, dsn)                          conservative pool sizes.
//	OpenWithOptions(driver, dsn, maxOpen, maxIdle)  fine-grained control.
//	EnsureTables(ctx, db, schemas)             idempotent DDL (schema.go).
//
// Both Open helpers Ping before returning so bootstrap fails fast.
//
// MySQL DSNs are rewritten to set clientFoundRows (UPDATE reports matched
// rather than changed rows, which the reorder and not-found checks depend
// on) and parseTime (DATETIME columns scan into time.Time).
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported driver names.
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

// Open returns a pool with 15 max open and 5 idle connections.
func Open(driver, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(driver, dsn, 15, 5)
}

// OpenWithOptions lets callers tune the pool.  Zero values keep the
// defaults.  SQLite is always limited to one open connection.
func OpenWithOptions(driver, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	if maxOpen <= 0 {
		maxOpen = 15
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}

	switch driver {
	case MySQL:
		fixed, err := mysqlDSN(dsn)
		if err != nil {
			return nil, err
		}
		dsn = fixed
	case Postgres:
	case SQLite:
		maxOpen, maxIdle = 1, 1
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: ping %s: %w", driver, err)
	}
	return db, nil
}

func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("database: mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
