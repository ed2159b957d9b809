package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:blankimports // Postgres database driver
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:blankimports // File source driver

	infraconfig "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/config"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
)

// DefaultMigrationsPath is resolved relative to the working directory.
const DefaultMigrationsPath = "migrations"

// Migrator applies the schema in a migrations directory.
type Migrator struct {
	cfg  *infraconfig.DatabaseConfig
	path string
	log  logger.Logger
}

// NewMigrator creates a Migrator. An empty path uses DefaultMigrationsPath.
func NewMigrator(cfg *infraconfig.DatabaseConfig, path string, log logger.Logger) *Migrator {
	if path == "" {
		path = DefaultMigrationsPath
	}
	if absPath, err := filepath.Abs(path); err == nil {
		path = absPath
	}
	return &Migrator{cfg: cfg, path: path, log: log}
}

func (m *Migrator) open() (*migrate.Migrate, func(), error) {
	mig, err := migrate.New("file://"+m.path, m.cfg.MigrateURL())
	if err != nil {
		return nil, nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return mig, func() { _, _ = mig.Close() }, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	mig, closeFn, err := m.open()
	if err != nil {
		return err
	}
	defer closeFn()

	if err = mig.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.log.Info("No pending migrations", logger.String("migrations_path", m.path))
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	m.log.Info("Migrations applied successfully", logger.String("migrations_path", m.path))
	return nil
}

// Down rolls back steps migrations, at least one.
func (m *Migrator) Down(steps int) error {
	mig, closeFn, err := m.open()
	if err != nil {
		return err
	}
	defer closeFn()

	if steps <= 0 {
		steps = 1
	}

	if err = mig.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.log.Info("No migrations to rollback", logger.String("migrations_path", m.path))
			return nil
		}
		return fmt.Errorf("rollback migrations: %w", err)
	}

	m.log.Info("Migrations rolled back successfully",
		logger.String("migrations_path", m.path),
		logger.Int("steps", steps),
	)
	return nil
}

// Version returns the applied schema version. An empty database is 0, false.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	mig, closeFn, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer closeFn()

	version, dirty, err = mig.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get migration version: %w", err)
	}
	return version, dirty, nil
}
