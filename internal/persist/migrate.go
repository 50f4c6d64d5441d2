package persist

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationSet names a group of tables that are migrated together.
type MigrationSet string

// Migration sets; each keeps its own version table so both can share a database.
const (
	ConfigMigrations  MigrationSet = "configs"
	ResultsMigrations MigrationSet = "results"
)

func (s MigrationSet) versionTable() string {
	return "leadscore_" + string(s) + "_migrations"
}

func (s MigrationSet) defaultPath() string {
	if s == ConfigMigrations {
		return contract.GetConfigDBFilePath()
	}
	return contract.GetResultsDBFilePath()
}

// dialectDir returns the migrations directory of a set for a backend.
func dialectDir(set MigrationSet, backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return path.Join("migrations", string(set), "sqlite"), nil
	case schema.MySQLBackend:
		return path.Join("migrations", string(set), "mysql"), nil
	case schema.PostgreSQLBackend:
		return path.Join("migrations", string(set), "postgres"), nil
	default:
		return "", fmt.Errorf("migrations are not supported for %s backend", backend)
	}
}

// applySchema runs every up migration of a set. The statements are
// idempotent, so stores call this on open.
func applySchema(db *sql.DB, set MigrationSet, backend schema.DatabaseBackend) error {
	dir, err := dialectDir(set, backend)
	if err != nil {
		return err
	}
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		stmt, err := fs.ReadFile(migrationsFS, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(stmt)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Migrate runs database migrations for a set of tables.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func Migrate(set MigrationSet, backend schema.DatabaseBackend, connStr string, targetVersion int) error {
	dir, err := dialectDir(set, backend)
	if err != nil {
		return err
	}

	db, err := openSQL(backend, connStr, set.defaultPath())
	if err != nil {
		return err
	}

	// The migrate driver owns db from here on and closes it with m.Close.
	var driver database.Driver
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: set.versionTable()})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{MigrationsTable: set.versionTable()})
	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: set.versionTable()})
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	sourceDriver, err := iofs.New(migrationsFS, dir)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "leadscore", driver)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate to latest version: %w", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Printf("No migration needed. %s tables are already at the latest version.\n", set)
		} else {
			newVersion, _, _ := m.Version()
			fmt.Printf("Successfully migrated %s tables from version %d to version %d\n", set, currentVersion, newVersion)
		}
	case targetVersion == 0:
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back to version 0: %w", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Printf("No migration needed. %s tables are already at version 0\n", set)
		} else {
			fmt.Printf("Successfully rolled back %s tables from version %d to version 0\n", set, currentVersion)
		}
	default:
		err = m.Migrate(uint(targetVersion))
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Printf("No migration needed. %s tables are already at version %d\n", set, targetVersion)
		} else {
			fmt.Printf("Successfully migrated %s tables from version %d to version %d\n", set, currentVersion, targetVersion)
		}
	}
	return nil
}
