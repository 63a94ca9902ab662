package catalog

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/files/*.sql
var migrationFiles embed.FS

// SchemaVersion is the highest schema version the embedded migrations
// produce. Opening a catalog whose config.schema_version exceeds this
// is fatal (SchemaTooNewError); never mutate in that case.
const SchemaVersion = 1

// migrateUp applies all pending migrations, tolerating the
// already-at-latest case, then checks that SchemaVersion still matches
// the highest version number present in the embedded migration files —
// catching the case where a migration is added without updating the
// constant.
func migrateUp(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationFiles, "migrations/files")
	if err != nil {
		return fmt.Errorf("creating migration source driver: %w", err)
	}
	defer sourceDriver.Close()

	latest, err := latestMigrationVersion(sourceDriver)
	if err != nil {
		return fmt.Errorf("inspecting embedded migrations: %w", err)
	}
	if latest != SchemaVersion {
		return fmt.Errorf("SchemaVersion constant (%d) does not match highest embedded migration version (%d)", SchemaVersion, latest)
	}

	m, err := newMigrate(db, sourceDriver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB, sourceDriver source.Driver) (*migrate.Migrate, error) {
	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating migration database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, nil
}

// latestMigrationVersion walks the embedded source driver to find the
// highest version number available, mirroring the teacher's
// getLatestVersion.
func latestMigrationVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	latest := version
	for {
		next, err := src.Next(latest)
		if err != nil {
			break
		}
		latest = next
	}
	return latest, nil
}
