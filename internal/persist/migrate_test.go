package persist

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/huangsam/leadscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, dbPath, table string) bool {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestMigrate_ResultsUpAndDown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")

	require.NoError(t, Migrate(ResultsMigrations, schema.SQLiteBackend, dbPath, -1))
	assert.True(t, tableExists(t, dbPath, scoringRunsTable))
	assert.True(t, tableExists(t, dbPath, contactScoresTable))
	assert.True(t, tableExists(t, dbPath, ResultsMigrations.versionTable()))

	// Running again is a no-op.
	require.NoError(t, Migrate(ResultsMigrations, schema.SQLiteBackend, dbPath, -1))

	require.NoError(t, Migrate(ResultsMigrations, schema.SQLiteBackend, dbPath, 1))
	assert.True(t, tableExists(t, dbPath, scoringRunsTable))
	assert.False(t, tableExists(t, dbPath, contactScoresTable))

	require.NoError(t, Migrate(ResultsMigrations, schema.SQLiteBackend, dbPath, 0))
	assert.False(t, tableExists(t, dbPath, scoringRunsTable))
}

func TestMigrate_SetsShareDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")

	require.NoError(t, Migrate(ConfigMigrations, schema.SQLiteBackend, dbPath, -1))
	require.NoError(t, Migrate(ResultsMigrations, schema.SQLiteBackend, dbPath, -1))

	assert.True(t, tableExists(t, dbPath, frameworkConfigsTable))
	assert.True(t, tableExists(t, dbPath, scoringRunsTable))
	assert.True(t, tableExists(t, dbPath, ConfigMigrations.versionTable()))
	assert.True(t, tableExists(t, dbPath, ResultsMigrations.versionTable()))
}

func TestMigrate_UnsupportedBackend(t *testing.T) {
	err := Migrate(ConfigMigrations, schema.RedisBackend, "", -1)
	assert.Error(t, err)
}

func TestApplySchema_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer func() { _ = db.Close() }()

	require.NoError(t, applySchema(db, ConfigMigrations, schema.SQLiteBackend))
	require.NoError(t, applySchema(db, ConfigMigrations, schema.SQLiteBackend))
}
