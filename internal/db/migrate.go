package db

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

// MigrationsTable keeps the storefront's schema version apart from other
// services sharing the database.
const MigrationsTable = "storefront_schema_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationResult reports the schema version before and after a run.
type MigrationResult struct {
	From uint
	To   uint
}

func (r MigrationResult) Applied() bool { return r.To != r.From }

func migrationSource() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	return src, nil
}

// LatestVersion is the highest version among the embedded migrations.
func LatestVersion() (uint, error) {
	src, err := migrationSource()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("first migration: %w", err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("migration after %d: %w", v, err)
		}
		v = next
	}
}

// RunMigrations brings the snapshot and event sequence tables up to the
// latest embedded version. A dirty schema is refused rather than retried.
func RunMigrations(dsn string, logger zerolog.Logger) (MigrationResult, error) {
	var res MigrationResult

	db, err := openDB(dsn)
	if err != nil {
		return res, fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()

	src, err := migrationSource()
	if err != nil {
		return res, err
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return res, fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
	if err != nil {
		return res, fmt.Errorf("create migrate instance: %w", err)
	}

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return res, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return res, fmt.Errorf("schema version %d in %s is dirty and must be fixed by hand", from, MigrationsTable)
	}
	res.From, res.To = from, from

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug().Uint("version", from).Msg("storefront schema up to date")
			return res, nil
		}
		return res, fmt.Errorf("migrate from version %d: %w", from, err)
	}

	if res.To, _, err = m.Version(); err != nil {
		return res, fmt.Errorf("read schema version: %w", err)
	}
	logger.Info().
		Uint("from", res.From).
		Uint("to", res.To).
		Str("table", MigrationsTable).
		Msg("storefront schema migrated")
	return res, nil
}
