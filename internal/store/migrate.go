package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ignaciov/matechat/internal/store/migrations"
)

// MigrateResult reports the schema version after migration and whether any
// migration actually ran.
type MigrateResult struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Migrate brings the cache schema up to date from the embedded migration
// files. Safe to call on every startup.
func (db *DB) Migrate() (MigrateResult, error) {
	var res MigrateResult

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return res, fmt.Errorf("load embedded migrations: %w", err)
	}
	drv, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return res, fmt.Errorf("sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		return res, fmt.Errorf("migrator: %w", err)
	}

	switch err := m.Up(); {
	case err == nil:
		res.Changed = true
	case errors.Is(err, migrate.ErrNoChange):
	default:
		return res, fmt.Errorf("apply migrations: %w", err)
	}

	res.Version, res.Dirty, _ = m.Version()
	return res, nil
}
