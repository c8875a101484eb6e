package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), t.Name()+".db")
	db, err := Open(path)
	require.NoError(t, err, "failed to open test DB")
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRunsMigrations(t *testing.T) {
	db := setupTestDB(t)

	var tableCount int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('matched_trajectory', 'matched_segment', 'link_geometry')`,
	).Scan(&tableCount)
	require.NoError(t, err)
	require.Equal(t, 3, tableCount)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	db1, err := Open(path)
	require.NoError(t, err, "first open failed")
	db1.Close()

	db2, err := Open(path)
	require.NoError(t, err, "second open failed")
	defer db2.Close()

	var version uint
	var dirty bool
	row := db2.QueryRow(`SELECT version, dirty FROM schema_migrations`)
	require.NoError(t, row.Scan(&version, &dirty))
	require.False(t, dirty, "expected a clean migration state after reopening")
	require.EqualValues(t, 1, version)
}
