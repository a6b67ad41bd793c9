package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSqliteDB_Memory_Defaults(t *testing.T) {
	database, err := NewSqliteDB()
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT);")
	require.NoError(t, err)

	// the single pooled connection sees the table it created
	_, err = database.Exec("INSERT INTO t (v) VALUES ('x');")
	require.NoError(t, err)
}

func TestNewSqliteDB_File_CreatesParent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	database, err := NewSqliteDB(WithPath(dbPath))
	require.NoError(t, err)
	defer database.Close()

	assert.DirExists(t, filepath.Dir(dbPath))
	assert.FileExists(t, dbPath)
}

func TestNewSqliteDB_Schema(t *testing.T) {
	schema := "CREATE TABLE IF NOT EXISTS runs (id TEXT PRIMARY KEY);"
	dbPath := filepath.Join(t.TempDir(), "s.db")

	database, err := NewSqliteDB(WithPath(dbPath), WithSchema(schema))
	require.NoError(t, err)
	_, err = database.Exec("INSERT INTO runs (id) VALUES ('a');")
	require.NoError(t, err)
	require.NoError(t, database.Close())

	// reopening applies the schema again without clobbering rows
	database, err = NewSqliteDB(WithPath(dbPath), WithSchema(schema))
	require.NoError(t, err)
	defer database.Close()

	var count int
	require.NoError(t, database.Get(&count, "SELECT COUNT(*) FROM runs"))
	assert.Equal(t, 1, count)
}

func TestNewSqliteDB_BadSchema(t *testing.T) {
	_, err := NewSqliteDB(WithSchema("NOT SQL AT ALL"))
	assert.ErrorContains(t, err, "apply schema")
}

func TestNewSqliteDB_CustomPragmas(t *testing.T) {
	database, err := NewSqliteDB(WithPragmas("PRAGMA foreign_keys=ON;"))
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec("CREATE TABLE t2 (id INTEGER PRIMARY KEY);")
	assert.NoError(t, err)
}

func TestDriver(t *testing.T) {
	assert.Contains(t, []string{"ncruces/go-sqlite3", "mattn/go-sqlite3"}, Driver())
}
