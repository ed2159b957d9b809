// Package storage implements the catalog and credential stores on PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	infraconfig "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/config"
	infracontext "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/context"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime
	DefaultConnMaxLifetime = 5 * time.Minute
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Connect opens and pings a PostgreSQL pool. Zero pool settings fall back
// to the package defaults.
func Connect(cfg *infraconfig.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(orDefault(cfg.MaxConnections, DefaultMaxOpenConns))
	db.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, DefaultMaxIdleConns))
	db.SetConnMaxLifetime(orDefault(cfg.ConnMaxLifetime, DefaultConnMaxLifetime))

	ctx, cancel := infracontext.WithPingTimeout()
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Ping checks connectivity for readiness checks.
func Ping(db *sqlx.DB) func(ctx context.Context) error {
	return db.PingContext
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// execRequireRows turns a zero-row result into notFound.
func execRequireRows(result sql.Result, err error, op string, notFound error) error {
	if err != nil {
		return persistence(op, err)
	}
	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return persistence(op, affectedErr)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
